package preview

import (
	"sync"
)

const (
	TypeUpdate = "preview-update"
	TypeReady  = "preview-ready"
)

// Message is the cross-surface wire shape.
type Message struct {
	Type      string `json:"type"`
	HTML      string `json:"html,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Handle    Handle `json:"handle,omitempty"`
}

// Hub fans messages out to subscribers. Publish never blocks; a
// subscriber whose buffer is full misses the message.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Message]struct{}
	last *Message
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Message]struct{})}
}

func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &m
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
			// drop on slow subscriber
		}
	}
}

// Last returns the most recent message, if any.
func (h *Hub) Last() (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Message{}, false
	}
	return *h.last, true
}

func (h *Hub) Subscribe() (ch chan Message, cancel func()) {
	ch = make(chan Message, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel = func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
