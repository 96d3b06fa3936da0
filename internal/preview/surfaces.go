package preview

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SurfaceKind string

const (
	SurfaceFrame SurfaceKind = "frame"
	SurfacePopup SurfaceKind = "popup"
	SurfaceTab   SurfaceKind = "tab"
)

// Surface is one connected preview consumer.
type Surface struct {
	ID        string      `json:"id"`
	Kind      SurfaceKind `json:"kind"`
	Transport string      `json:"transport"`
	Connected time.Time   `json:"connected"`
	LastSeen  time.Time   `json:"last_seen"`
}

type SurfaceEvent struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Surface *Surface `json:"surface,omitempty"`
}

// SurfaceTable tracks surfaces by heartbeat.
type SurfaceTable struct {
	mu        sync.Mutex
	surfaces  map[string]Surface
	listeners []chan SurfaceEvent
	now       func() time.Time
}

func NewSurfaceTable() *SurfaceTable {
	return &SurfaceTable{surfaces: map[string]Surface{}, now: time.Now}
}

// Register adds a surface and returns its id.
func (t *SurfaceTable) Register(kind SurfaceKind, transport string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	s := Surface{ID: uuid.NewString(), Kind: kind, Transport: transport, Connected: now, LastSeen: now}
	t.surfaces[s.ID] = s
	t.notifyListeners(SurfaceEvent{Type: "update", ID: s.ID, Surface: &s})
	return s.ID
}

// Touch records a heartbeat. It reports false for unknown ids, which
// tells the caller to register again.
func (t *SurfaceTable) Touch(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.surfaces[id]
	if !ok {
		return false
	}
	s.LastSeen = t.now()
	t.surfaces[id] = s
	return true
}

func (t *SurfaceTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.surfaces[id]; !ok {
		return
	}
	delete(t.surfaces, id)
	t.notifyListeners(SurfaceEvent{Type: "remove", ID: id})
}

func (t *SurfaceTable) Get(id string) (Surface, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.surfaces[id]
	return s, ok
}

func (t *SurfaceTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.surfaces)
}

// Snapshot lists surfaces ordered by connect time.
func (t *SurfaceTable) Snapshot() []Surface {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Surface, 0, len(t.surfaces))
	for _, s := range t.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Connected.Equal(out[j].Connected) {
			return out[i].Connected.Before(out[j].Connected)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PruneStale removes surfaces not seen since cutoff and returns their ids.
func (t *SurfaceTable) PruneStale(cutoff time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var gone []string
	for id, s := range t.surfaces {
		if s.LastSeen.Before(cutoff) {
			delete(t.surfaces, id)
			gone = append(gone, id)
			t.notifyListeners(SurfaceEvent{Type: "remove", ID: id})
		}
	}
	sort.Strings(gone)
	return gone
}

func (t *SurfaceTable) Subscribe() chan SurfaceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan SurfaceEvent, 16)
	t.listeners = append(t.listeners, ch)
	return ch
}

func (t *SurfaceTable) Unsubscribe(ch chan SurfaceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, l := range t.listeners {
		if l == ch {
			close(l)
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *SurfaceTable) notifyListeners(evt SurfaceEvent) {
	for _, ch := range t.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
