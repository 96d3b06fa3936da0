package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petervdpas/codespace/internal/storage"
)

// Transport delivers preview messages to surfaces.
type Transport interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// HubTransport publishes to live subscribers (websocket and SSE).
type HubTransport struct {
	hub *Hub
}

func NewHubTransport(h *Hub) *HubTransport { return &HubTransport{hub: h} }

func (t *HubTransport) Name() string { return "hub" }

func (t *HubTransport) Send(_ context.Context, m Message) error {
	t.hub.Publish(m)
	return nil
}

// SlotTransport is the polling fallback: the latest message is written to
// a shared slot key that surfaces read on an interval.
type SlotTransport struct {
	slot storage.Slot
	key  string
}

func NewSlotTransport(slot storage.Slot, key string) *SlotTransport {
	return &SlotTransport{slot: slot, key: key}
}

func (t *SlotTransport) Name() string { return "slot" }

func (t *SlotTransport) Key() string { return t.key }

func (t *SlotTransport) Send(ctx context.Context, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := t.slot.Put(ctx, t.key, b); err != nil {
		return fmt.Errorf("slot transport: %w", err)
	}
	return nil
}

// Poll returns the stored message when it is newer than since.
func (t *SlotTransport) Poll(ctx context.Context, since int64) (Message, bool, error) {
	b, err := t.slot.Get(ctx, t.key)
	if errors.Is(err, storage.ErrNotFound) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, false, fmt.Errorf("slot transport: %w", err)
	}
	if m.Timestamp <= since {
		return Message{}, false, nil
	}
	return m, true, nil
}
