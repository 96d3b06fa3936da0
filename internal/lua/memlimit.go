package lua

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	glua "github.com/yuin/gopher-lua"
)

// memoryMonitor kills a plugin VM once process allocation grows past the
// limit. gopher-lua has no per-VM accounting, so this reads the
// process-wide runtime.MemStats and concurrent plugins share one reading.
type memoryMonitor struct {
	limitBytes uint64
	baseline   uint64
	exceeded   atomic.Bool
}

// newMemoryMonitor returns nil when maxMB <= 0.
func newMemoryMonitor(maxMB int) *memoryMonitor {
	if maxMB <= 0 {
		return nil
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return &memoryMonitor{
		limitBytes: uint64(maxMB) * 1024 * 1024,
		baseline:   stats.Alloc,
	}
}

func (m *memoryMonitor) watch(ctx context.Context, L *glua.LState, plugin string) context.CancelFunc {
	if m == nil {
		return func() {}
	}

	monCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-monCtx.Done():
				return
			case <-ticker.C:
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)

				var delta uint64
				if stats.Alloc > m.baseline {
					delta = stats.Alloc - m.baseline
				}
				if delta > m.limitBytes {
					m.exceeded.Store(true)
					log.Warnf("memory limit exceeded for %s (delta=%dMB, limit=%dMB), killing VM",
						plugin, delta/(1024*1024), m.limitBytes/(1024*1024))
					L.Close()
					return
				}
			}
		}
	}()

	return cancel
}

func (m *memoryMonitor) wasExceeded() bool {
	if m == nil {
		return false
	}
	return m.exceeded.Load()
}
