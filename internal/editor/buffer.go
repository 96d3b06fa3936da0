package editor

import (
	"sync"

	"github.com/petervdpas/codespace/internal/lint"
)

// Widget is the editing component the session drives. The browser widget
// mirrors a Buffer over HTTP.
type Widget interface {
	SetValue(string)
	Value() string
	SetLanguage(string)
	SetMarkers([]lint.Marker)
}

// BufferState is what a client needs to mirror the buffer.
type BufferState struct {
	Value    string        `json:"value"`
	Language string        `json:"language"`
	Markers  []lint.Marker `json:"markers"`
	Version  uint64        `json:"version"`
}

// Buffer is an in-memory Widget. Every mutation bumps Version so pollers
// can tell when to refetch.
type Buffer struct {
	mu    sync.RWMutex
	state BufferState
}

func NewBuffer() *Buffer {
	return &Buffer{state: BufferState{Language: "plaintext", Markers: []lint.Marker{}}}
}

func (b *Buffer) SetValue(v string) {
	b.mu.Lock()
	b.state.Value = v
	b.state.Version++
	b.mu.Unlock()
}

func (b *Buffer) Value() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Value
}

func (b *Buffer) SetLanguage(l string) {
	b.mu.Lock()
	b.state.Language = l
	b.state.Version++
	b.mu.Unlock()
}

func (b *Buffer) SetMarkers(ms []lint.Marker) {
	if ms == nil {
		ms = []lint.Marker{}
	}
	b.mu.Lock()
	b.state.Markers = append([]lint.Marker{}, ms...)
	b.state.Version++
	b.mu.Unlock()
}

func (b *Buffer) State() BufferState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.state
	st.Markers = append([]lint.Marker{}, b.state.Markers...)
	return st
}
