package content

import (
	"fmt"
	"time"

	"github.com/petervdpas/codespace/internal/util"
)

// HistoryDepth is the number of snapshots kept.
const HistoryDepth = 10

type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Files     []File    `json:"files"`
	Folders   []Folder  `json:"folders"`
}

// History keeps the most recent project snapshots.
type History struct {
	ring *util.RingBuffer[HistoryEntry]
}

func NewHistory() *History {
	return &History{ring: util.NewRingBuffer[HistoryEntry](HistoryDepth)}
}

// Record snapshots the store's files and folders under the given label.
func (h *History) Record(s *Store, action string) HistoryEntry {
	st := s.State()
	e := HistoryEntry{
		Action:    action,
		Timestamp: time.Now().UTC(),
		Files:     st.Files,
		Folders:   st.Folders,
	}
	h.ring.Push(e)
	return e
}

// Entries returns snapshots newest first.
func (h *History) Entries() []HistoryEntry {
	return h.ring.Newest(-1)
}

// Restore rewinds the store's files and folders to entry i of Entries.
// Tabs and the active file are pruned to what still exists.
func (h *History) Restore(s *Store, i int) error {
	entries := h.Entries()
	if i < 0 || i >= len(entries) {
		return fmt.Errorf("history entry %d: %w", i, ErrNotFound)
	}
	e := entries[i]
	st := s.State()
	st.Files = append([]File{}, e.Files...)
	st.Folders = append([]Folder{}, e.Folders...)

	alive := map[string]bool{}
	for _, f := range st.Files {
		alive[f.ID] = true
	}
	tabs := st.OpenTabs[:0]
	for _, t := range st.OpenTabs {
		if alive[t] {
			tabs = append(tabs, t)
		}
	}
	st.OpenTabs = tabs
	if !alive[st.ActiveID] {
		st.ActiveID = ""
		if len(tabs) > 0 {
			st.ActiveID = tabs[len(tabs)-1]
		}
	}
	st.Modified = true
	s.Restore(st)
	return nil
}
