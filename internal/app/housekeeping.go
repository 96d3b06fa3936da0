package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/petervdpas/codespace/internal/command"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/storage"
)

// SaveLabel renders the status bar text for the time since the last save.
func SaveLabel(last, now time.Time) string {
	elapsed := int(now.Sub(last) / time.Second)
	if elapsed <= 0 {
		return "Saved just now"
	}
	return fmt.Sprintf("Saved %ds ago", elapsed)
}

// saveStatus keeps the label current; it is rewritten every second.
type saveStatus struct {
	started  time.Time
	commands *command.Dispatcher
	label    atomic.Value
}

func newSaveStatus(cmds *command.Dispatcher, now time.Time) *saveStatus {
	s := &saveStatus{started: now, commands: cmds}
	s.update(now)
	return s
}

func (s *saveStatus) update(now time.Time) {
	last := s.commands.LastSaved()
	if last.IsZero() {
		last = s.started
	}
	s.label.Store(SaveLabel(last, now))
}

func (s *saveStatus) String() string {
	v, _ := s.label.Load().(string)
	return v
}

func (s *saveStatus) run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.update(now)
		}
	}
}

var autoSavePayload = json.RawMessage(`{"auto":true}`)

// autoSave saves on every tick while auto-save is on and the store is
// modified. The ticker follows settings changes.
func autoSave(ctx context.Context, store *content.Store, cmds *command.Dispatcher, settings *command.Settings) {
	changed := make(chan struct{}, 1)
	settings.OnChange(func(storage.Settings) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	interval := func(s storage.Settings) time.Duration {
		d := time.Duration(s.AutoSaveDelay) * time.Millisecond
		if d < 250*time.Millisecond {
			d = 250 * time.Millisecond
		}
		return d
	}

	t := time.NewTicker(interval(settings.Get()))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			t.Reset(interval(settings.Get()))
		case <-t.C:
			cur := settings.Get()
			if !cur.AutoSave || !store.Modified() {
				continue
			}
			if res := cmds.Dispatch(ctx, "project.save", autoSavePayload); !res.OK && res.Notice != nil {
				log.Warnf("auto-save: %s", res.Notice.Message)
			}
		}
	}
}

// pruneSurfaces drops surfaces that stopped sending heartbeats.
func pruneSurfaces(ctx context.Context, surfaces *preview.SurfaceTable, ttl time.Duration) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, id := range surfaces.PruneStale(now.Add(-ttl)) {
				log.Debugf("preview surface %s timed out", id)
			}
		}
	}
}

// watchSurfaces subscribes to surface join and leave events and returns
// the loop that hands them to fn.
func watchSurfaces(surfaces *preview.SurfaceTable, fn func(preview.SurfaceEvent)) func(context.Context) {
	events := surfaces.Subscribe()
	return func(ctx context.Context) {
		defer surfaces.Unsubscribe(events)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				fn(evt)
			}
		}
	}
}

func logSurfaceEvent(evt preview.SurfaceEvent) {
	switch {
	case evt.Type == "update" && evt.Surface != nil:
		log.Infof("preview surface %s connected (%s over %s)", evt.ID, evt.Surface.Kind, evt.Surface.Transport)
	case evt.Type == "remove":
		log.Infof("preview surface %s disconnected", evt.ID)
	}
}

// slotWatcher is a slot that sees writes made by other processes.
type slotWatcher interface {
	Watch(key string) (<-chan struct{}, func(), error)
}

// relaySlot returns a loop that republishes preview messages another
// process wrote to the shared slot key, so local live surfaces follow
// them. It returns nil when the slot cannot be watched.
func relaySlot(slot storage.Slot, poll *preview.SlotTransport, hub *preview.Hub) (func(context.Context), error) {
	w, ok := slot.(slotWatcher)
	if !ok {
		return nil, nil
	}
	ticks, cancel, err := w.Watch(poll.Key())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
				var since int64
				if last, ok := hub.Last(); ok {
					since = last.Timestamp
				}
				m, ok, err := poll.Poll(ctx, since)
				if err != nil {
					log.Warnf("preview relay: %v", err)
					continue
				}
				if !ok {
					continue
				}
				// Handles belong to the writer's cache.
				m.Handle = ""
				log.Debugf("preview update from another process at %d", m.Timestamp)
				hub.Publish(m)
			}
		}
	}, nil
}
