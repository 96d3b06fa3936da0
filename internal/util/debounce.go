package util

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Debouncer coalesces bursts of calls into one trailing-edge invocation.
// Each Call supersedes the previous pending one; only the arguments of the
// last call within the window are delivered.
type Debouncer[T any] struct {
	fire func(func())

	mu   sync.Mutex
	last T
	fn   func(T)
}

// NewDebouncer returns a Debouncer that invokes fn after wait has elapsed
// without a new Call.
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		fire: debounce.New(wait),
		fn:   fn,
	}
}

// Call schedules fn(v), replacing any pending invocation.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	d.last = v
	d.mu.Unlock()
	d.fire(d.run)
}

func (d *Debouncer[T]) run() {
	d.mu.Lock()
	v := d.last
	d.mu.Unlock()
	d.fn(v)
}
