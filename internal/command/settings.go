package command

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/petervdpas/codespace/internal/storage"
)

// Settings holds the live editor settings. Updates are partial: fields
// absent from the patch keep their value.
type Settings struct {
	mu    sync.RWMutex
	cur   storage.Settings
	hooks []func(storage.Settings)
}

func NewSettings(initial storage.Settings) *Settings {
	return &Settings{cur: initial}
}

func (s *Settings) Get() storage.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// OnChange registers fn to run after every accepted update.
func (s *Settings) OnChange(fn func(storage.Settings)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *Settings) Set(next storage.Settings) error {
	if err := checkSettings(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = next
	hooks := append([]func(storage.Settings){}, s.hooks...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(next)
	}
	return nil
}

// Merge applies a JSON patch over the current settings.
func (s *Settings) Merge(patch json.RawMessage) (storage.Settings, error) {
	next := s.Get()
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &next); err != nil {
			return storage.Settings{}, err
		}
	}
	if err := s.Set(next); err != nil {
		return storage.Settings{}, err
	}
	return next, nil
}

func checkSettings(st storage.Settings) error {
	if st.FontSize < 6 || st.FontSize > 72 {
		return errors.New("fontSize must be 6..72")
	}
	if st.AutoSaveDelay < 250 {
		return errors.New("autoSaveDelay must be >= 250")
	}
	return nil
}
