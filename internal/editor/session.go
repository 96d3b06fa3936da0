// Package editor binds the active file of a project to an editing widget
// and keeps the preview and diagnostics in step with edits.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/format"
	"github.com/petervdpas/codespace/internal/lint"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/util"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("editor")

// ErrNoActiveFile is returned by edits made while no file is bound.
var ErrNoActiveFile = errors.New("no active file")

// Previewer is the slice of the preview pipeline an edit drives.
type Previewer interface {
	PushNow(ctx context.Context) preview.Message
	Recompute()
}

type Formatter interface {
	Format(ctx context.Context, ext, src string) (format.Result, error)
}

// Cursor is 1-based.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Options struct {
	Preview       Previewer
	Formatter     Formatter
	ValidateDelay time.Duration
}

// Session is the controller between the store and one widget.
type Session struct {
	store     *content.Store
	widget    Widget
	preview   Previewer
	formatter Formatter
	validate  *util.Debouncer[string]

	mu      sync.Mutex
	bound   string
	writing string
	cursor  Cursor
	markers map[string][]lint.Marker
}

func NewSession(s *content.Store, w Widget, opts Options) *Session {
	if opts.ValidateDelay <= 0 {
		opts.ValidateDelay = 500 * time.Millisecond
	}
	sess := &Session{
		store:     s,
		widget:    w,
		preview:   opts.Preview,
		formatter: opts.Formatter,
		cursor:    Cursor{Line: 1, Column: 1},
		markers:   map[string][]lint.Marker{},
	}
	sess.validate = util.NewDebouncer(opts.ValidateDelay, func(id string) {
		sess.ValidateNow(id)
	})
	s.Subscribe(sess.onChange)
	return sess
}

func (s *Session) Widget() Widget { return s.widget }

// Bound is the id of the file shown in the widget.
func (s *Session) Bound() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// OpenFile shows a file in the widget, appending it to the tabs.
func (s *Session) OpenFile(id string) error {
	f, err := s.store.Activate(id)
	if err != nil {
		return err
	}
	s.bind(f)
	return nil
}

func (s *Session) bind(f content.File) {
	s.mu.Lock()
	s.bound = f.ID
	s.cursor = Cursor{Line: 1, Column: 1}
	ms := s.markers[f.ID]
	s.mu.Unlock()

	s.widget.SetValue(f.Content)
	s.widget.SetLanguage(content.LanguageFor(f.Extension))
	s.widget.SetMarkers(ms)
	s.validate.Call(f.ID)
}

func (s *Session) blank() {
	s.mu.Lock()
	s.bound = ""
	s.cursor = Cursor{Line: 1, Column: 1}
	s.mu.Unlock()

	s.widget.SetValue("")
	s.widget.SetLanguage("plaintext")
	s.widget.SetMarkers(nil)
}

// OnChange records an edit of the active file and refreshes the preview
// on both paths.
func (s *Session) OnChange(ctx context.Context, body string) error {
	id := s.store.ActiveFileID()
	if id == "" {
		return ErrNoActiveFile
	}
	if err := s.write(id, body); err != nil {
		return err
	}
	if s.widget.Value() != body {
		s.widget.SetValue(body)
	}
	s.refresh(ctx, id)
	return nil
}

// write stores an edit made through the session. The change it triggers
// is not echoed back into the widget.
func (s *Session) write(id, body string) error {
	s.mu.Lock()
	s.writing = id
	s.mu.Unlock()
	err := s.store.SetContent(id, body)
	s.mu.Lock()
	s.writing = ""
	s.mu.Unlock()
	return err
}

func (s *Session) refresh(ctx context.Context, id string) {
	if s.preview != nil {
		s.preview.PushNow(ctx)
		s.preview.Recompute()
	}
	s.validate.Call(id)
}

// CloseTab closes a tab. A modified file is closed only when confirm
// approves it; a nil confirm refuses. Closing the bound file rebinds the
// widget to the tab the store activates next, or blanks it.
func (s *Session) CloseTab(id string, confirm func(content.File) bool) (bool, error) {
	f, err := s.store.File(id)
	if err != nil {
		return false, err
	}
	if f.Modified && (confirm == nil || !confirm(f)) {
		return false, nil
	}
	if _, err := s.store.CloseTab(id); err != nil {
		return false, err
	}
	s.sync(false)
	return true, nil
}

// sync rebinds the widget when the store's active file moved under it,
// or unconditionally when force is set.
func (s *Session) sync(force bool) {
	active := s.store.ActiveFileID()
	if active == s.Bound() && !force {
		return
	}
	if active == "" {
		s.blank()
		return
	}
	f, err := s.store.File(active)
	if err != nil {
		s.blank()
		return
	}
	s.bind(f)
}

func (s *Session) onChange(c content.Change) {
	switch c.Kind {
	case content.ChangeDelete, content.ChangeRestore:
		s.mu.Lock()
		for id := range s.markers {
			if _, err := s.store.File(id); err != nil {
				delete(s.markers, id)
			}
		}
		s.mu.Unlock()
		s.sync(c.Kind == content.ChangeRestore)
	case content.ChangeContent:
		s.reload(c.ID)
	}
}

// reload refreshes the widget when the bound file's content was rewritten
// outside the session, keeping the cursor where it still fits.
func (s *Session) reload(id string) {
	s.mu.Lock()
	skip := id != s.bound || id == s.writing
	s.mu.Unlock()
	if skip {
		return
	}
	f, err := s.store.File(id)
	if err != nil || f.Content == s.widget.Value() {
		return
	}
	s.widget.SetValue(f.Content)
	s.mu.Lock()
	s.cursor = clamp(s.cursor, f.Content)
	s.mu.Unlock()
	s.validate.Call(id)
}

// FormatActive formats the active file. On failure nothing changes and
// the error is returned for the caller to surface.
func (s *Session) FormatActive(ctx context.Context) (format.Result, error) {
	if s.formatter == nil {
		return format.Result{}, errors.New("formatting is not configured")
	}
	id := s.store.ActiveFileID()
	if id == "" {
		return format.Result{}, ErrNoActiveFile
	}
	f, err := s.store.File(id)
	if err != nil {
		return format.Result{}, err
	}
	res, err := s.formatter.Format(ctx, f.Extension, f.Content)
	if err != nil {
		return format.Result{}, fmt.Errorf("format %s: %w", f.FullName(), err)
	}
	if res.Unchanged {
		return res, nil
	}
	if err := s.write(id, res.Content); err != nil {
		return format.Result{}, err
	}
	s.widget.SetValue(res.Content)

	s.mu.Lock()
	s.cursor = clamp(s.cursor, res.Content)
	s.mu.Unlock()

	log.Debugf("formatted %s with %s (%s)", f.FullName(), res.Formatter, res.Layer)
	s.refresh(ctx, id)
	return res, nil
}

// clamp keeps the cursor inside body. The line is clamped to the line
// count and the column to one past the line's end.
func clamp(c Cursor, body string) Cursor {
	lines := strings.Split(body, "\n")
	c.Line = max(1, min(c.Line, len(lines)))
	c.Column = max(1, min(c.Column, len(lines[c.Line-1])+1))
	return c
}

func (s *Session) SetCursor(line, col int) Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = Cursor{Line: max(1, line), Column: max(1, col)}
	return s.cursor
}

func (s *Session) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// StatusLine renders the cursor position for the status bar.
func (s *Session) StatusLine() string {
	c := s.Cursor()
	return fmt.Sprintf("Ln %d, Col %d", c.Line, c.Column)
}

// ValidateNow lints a file and pushes the markers to the widget when the
// file is bound.
func (s *Session) ValidateNow(id string) []lint.Marker {
	f, err := s.store.File(id)
	if err != nil {
		return nil
	}
	ms := lint.Validate(f.Extension, f.Content)

	s.mu.Lock()
	s.markers[id] = ms
	bound := s.bound == id
	s.mu.Unlock()

	if bound {
		s.widget.SetMarkers(ms)
	}
	if n := lint.Count(ms)[lint.Error]; n > 0 {
		log.Debugf("%s: %d error marker(s)", f.FullName(), n)
	}
	return ms
}

// Markers returns the last validation result for a file.
func (s *Session) Markers(id string) []lint.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]lint.Marker{}, s.markers[id]...)
}
