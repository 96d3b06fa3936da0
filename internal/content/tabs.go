package content

// OpenTabs returns the open-tab sequence in the order tabs were opened.
func (s *Store) OpenTabs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.tabs...)
}

// ActiveFileID is "" when no file is bound to the editor.
func (s *Store) ActiveFileID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Activate appends id to the open tabs if absent and makes it active.
func (s *Store) Activate(id string) (File, error) {
	s.mu.Lock()
	f := s.fileLocked(id)
	if f == nil {
		s.mu.Unlock()
		return File{}, &FileNotFoundError{ID: id}
	}
	if indexOf(s.tabs, id) < 0 {
		s.tabs = append(s.tabs, id)
	}
	s.active = id
	out := *f
	c := s.bumpLocked(ChangeTabs, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

// CloseTab removes id from the open tabs. When it was active, activation
// moves to the most recently opened remaining tab, else clears. The new
// active id is returned.
func (s *Store) CloseTab(id string) (string, error) {
	s.mu.Lock()
	pos := indexOf(s.tabs, id)
	if pos < 0 {
		active := s.active
		s.mu.Unlock()
		return active, nil
	}
	s.tabs = append(s.tabs[:pos], s.tabs[pos+1:]...)
	if s.active == id {
		s.active = ""
		if n := len(s.tabs); n > 0 {
			s.active = s.tabs[n-1]
		}
	}
	active := s.active
	c := s.bumpLocked(ChangeTabs, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return active, nil
}
