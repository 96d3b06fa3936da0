// Package command maps named editor commands onto store, session and
// preview operations. Structural failures come back as notices and leave
// the store as it was.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/editor"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/storage"
	"github.com/petervdpas/codespace/internal/tree"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("command")

// Payload is the union of every command's arguments.
type Payload struct {
	ID        string            `json:"id,omitempty"`
	Kind      content.Kind      `json:"kind,omitempty"`
	Name      string            `json:"name,omitempty"`
	Extension string            `json:"extension,omitempty"`
	FolderID  string            `json:"folderId,omitempty"`
	TargetID  string            `json:"targetId,omitempty"`
	Direction content.Direction `json:"direction,omitempty"`
	Content   *string           `json:"content,omitempty"`
	Line      int               `json:"line,omitempty"`
	Column    int               `json:"column,omitempty"`
	Force     bool              `json:"force,omitempty"`
	Auto      bool              `json:"auto,omitempty"`
	Index     int               `json:"index,omitempty"`
	Settings  json.RawMessage   `json:"settings,omitempty"`
}

type Result struct {
	OK     bool            `json:"ok"`
	Notice *content.Notice `json:"notice,omitempty"`
	Data   any             `json:"data,omitempty"`
}

// Pinner is the preview operation behind preview.pin.
type Pinner interface {
	Pin(ctx context.Context, id string) (preview.Update, error)
}

type Deps struct {
	Store     *content.Store
	Session   *editor.Session
	Preview   Pinner
	Persister *storage.Persister
	History   *content.History
	Settings  *Settings
	Now       func() time.Time
}

type Dispatcher struct {
	d Deps

	mu        sync.Mutex
	lastSaved time.Time
}

func New(d Deps) *Dispatcher {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.History == nil {
		d.History = content.NewHistory()
	}
	if d.Settings == nil {
		d.Settings = NewSettings(storage.Settings{FontSize: 14, AutoSaveDelay: 2000})
	}
	return &Dispatcher{d: d}
}

func (d *Dispatcher) History() *content.History { return d.d.History }

func (d *Dispatcher) Settings() *Settings { return d.d.Settings }

// LastSaved is zero until the first save.
func (d *Dispatcher) LastSaved() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSaved
}

// Names lists every command Dispatch accepts.
func Names() []string {
	return []string{
		"file.create", "folder.create", "page.create",
		"file.rename", "folder.rename", "file.delete", "folder.delete",
		"file.move", "folder.move", "item.reorder",
		"tree.toggle", "tree.drop",
		"file.open", "tab.close",
		"editor.change", "editor.format", "editor.cursor",
		"preview.pin",
		"project.save", "project.rename",
		"history.restore", "settings.update",
	}
}

func success(data any, n *content.Notice) Result { return Result{OK: true, Notice: n, Data: data} }

func notice(level content.Level, title, msg string) *content.Notice {
	return &content.Notice{Level: level, Title: title, Message: msg}
}

func failed(name string, err error) Result {
	if !content.IsUserError(err) {
		log.Errorf("%s: %v", name, err)
	}
	n := content.NoticeFor(err)
	return Result{Notice: &n}
}

func fromTree(r tree.Result) Result {
	out := Result{OK: r.OK, Data: r.Nodes}
	if r.Notice.Title != "" || r.Notice.Message != "" {
		n := r.Notice
		out.Notice = &n
	}
	return out
}

// Dispatch runs one command.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) Result {
	var p Payload
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &p); err != nil {
			return Result{Notice: notice(content.LevelError, "Bad request", "invalid payload: "+err.Error())}
		}
	}
	if err := ctx.Err(); err != nil {
		return failed(name, err)
	}

	s := d.d.Store
	switch name {
	case "file.create":
		f, err := s.CreateFile(p.Name, p.Extension, p.FolderID)
		if err != nil {
			return failed(name, err)
		}
		d.open(f.ID)
		return success(f, notice(content.LevelSuccess, "File created", f.FullName()+" created"))

	case "page.create":
		f, err := s.CreatePage(p.Name, p.FolderID)
		if err != nil {
			return failed(name, err)
		}
		d.open(f.ID)
		return success(f, notice(content.LevelSuccess, "Page created", f.FullName()+" created"))

	case "folder.create":
		f, err := s.CreateFolder(p.Name, p.FolderID)
		if err != nil {
			return failed(name, err)
		}
		return success(f, notice(content.LevelSuccess, "Folder created", `Folder "`+f.Name+`" created`))

	case "file.rename":
		return fromTree(tree.CommitRename(s, content.KindFile, p.ID, p.Name))
	case "folder.rename":
		return fromTree(tree.CommitRename(s, content.KindFolder, p.ID, p.Name))

	case "file.delete":
		f, err := s.File(p.ID)
		if err != nil {
			return failed(name, err)
		}
		if err := s.DeleteFile(p.ID); err != nil {
			return failed(name, err)
		}
		return success(tree.Build(s), notice(content.LevelSuccess, "Deleted", f.FullName()+" deleted"))

	case "folder.delete":
		f, err := s.Folder(p.ID)
		if err != nil {
			return failed(name, err)
		}
		rm, err := s.DeleteFolder(p.ID)
		if err != nil {
			return failed(name, err)
		}
		msg := fmt.Sprintf(`Folder "%s" deleted with %d file(s)`, f.Name, len(rm.Files))
		return success(rm, notice(content.LevelSuccess, "Deleted", msg))

	case "file.move":
		return fromTree(tree.Drop(s, content.KindFile, p.ID, p.TargetID))
	case "folder.move":
		return fromTree(tree.Drop(s, content.KindFolder, p.ID, p.TargetID))
	case "tree.drop":
		return fromTree(tree.Drop(s, p.Kind, p.ID, p.TargetID))
	case "tree.toggle":
		return fromTree(tree.Toggle(s, p.ID))

	case "item.reorder":
		moved, err := s.Reorder(p.Kind, p.ID, p.Direction)
		if err != nil {
			return failed(name, err)
		}
		return success(map[string]any{"moved": moved, "nodes": tree.Build(s)}, nil)

	case "file.open":
		if err := d.d.Session.OpenFile(p.ID); err != nil {
			return failed(name, err)
		}
		return success(d.buffer(), nil)

	case "tab.close":
		force := p.Force
		closed, err := d.d.Session.CloseTab(p.ID, func(content.File) bool { return force })
		if err != nil {
			return failed(name, err)
		}
		if !closed {
			return Result{
				Notice: notice(content.LevelWarning, "Unsaved changes", "The file has unsaved changes. Close anyway?"),
				Data:   map[string]bool{"confirm": true},
			}
		}
		return success(d.buffer(), nil)

	case "editor.change":
		if p.Content == nil {
			return Result{Notice: notice(content.LevelError, "Bad request", "content is required")}
		}
		if err := d.d.Session.OnChange(ctx, *p.Content); err != nil {
			return failed(name, err)
		}
		return success(nil, nil)

	case "editor.format":
		res, err := d.d.Session.FormatActive(ctx)
		if err != nil {
			if errors.Is(err, editor.ErrNoActiveFile) {
				return Result{Notice: notice(content.LevelWarning, "Nothing to format", "Open a file first")}
			}
			log.Warnf("format: %v", err)
			return Result{Notice: notice(content.LevelError, "Format failed", err.Error())}
		}
		if res.Unchanged {
			return success(res, notice(content.LevelInfo, "Already formatted", "No changes needed"))
		}
		return success(res, notice(content.LevelSuccess, "Formatted", fmt.Sprintf("Formatted with %s", res.Formatter)))

	case "editor.cursor":
		c := d.d.Session.SetCursor(p.Line, p.Column)
		return success(map[string]any{"cursor": c, "status": d.d.Session.StatusLine()}, nil)

	case "preview.pin":
		if d.d.Preview == nil {
			return Result{Notice: notice(content.LevelError, "Preview unavailable", "no preview pipeline")}
		}
		u, err := d.d.Preview.Pin(ctx, p.ID)
		if err != nil {
			return failed(name, err)
		}
		return success(map[string]any{"handle": u.Handle, "sources": u.Sources.IDs()}, nil)

	case "project.save":
		return d.save(ctx, p.Auto)

	case "project.rename":
		if err := s.SetProjectName(p.Name); err != nil {
			return failed(name, err)
		}
		return success(s.ProjectName(), notice(content.LevelSuccess, "Renamed", "Project renamed to "+s.ProjectName()))

	case "history.restore":
		if err := d.d.History.Restore(s, p.Index); err != nil {
			return failed(name, err)
		}
		return success(tree.Build(s), notice(content.LevelSuccess, "Restored", "Project restored from history"))

	case "settings.update":
		next, err := d.d.Settings.Merge(p.Settings)
		if err != nil {
			return Result{Notice: notice(content.LevelError, "Invalid settings", err.Error())}
		}
		return success(next, notice(content.LevelSuccess, "Settings saved", "Settings updated"))

	default:
		return Result{Notice: notice(content.LevelError, "Unknown command", name)}
	}
}

func (d *Dispatcher) open(id string) {
	if d.d.Session == nil {
		return
	}
	if err := d.d.Session.OpenFile(id); err != nil {
		log.Warnf("open %s: %v", id, err)
	}
}

func (d *Dispatcher) buffer() any {
	if b, ok := d.d.Session.Widget().(*editor.Buffer); ok {
		return b.State()
	}
	return nil
}

// save persists the project. Explicit saves also record a history entry;
// auto saves are skipped when nothing changed.
func (d *Dispatcher) save(ctx context.Context, auto bool) Result {
	s := d.d.Store
	if auto && !s.Modified() {
		return success(nil, nil)
	}
	if d.d.Persister == nil {
		return Result{Notice: notice(content.LevelError, "Save failed", "no persistence slot configured")}
	}
	rev, err := d.d.Persister.Save(ctx, s, d.d.Settings.Get())
	if err != nil {
		log.Errorf("save: %v", err)
		return Result{Notice: notice(content.LevelError, "Save failed", err.Error())}
	}
	if !s.MarkSavedAt(rev) {
		log.Debugf("store changed during save, keeping modified flags")
	}
	now := d.d.Now()
	d.mu.Lock()
	d.lastSaved = now
	d.mu.Unlock()

	if auto {
		log.Debugf("auto-saved %q", s.ProjectName())
		return success(nil, nil)
	}
	d.d.History.Record(s, "save")
	log.Infof("saved %q", s.ProjectName())
	return success(nil, notice(content.LevelSuccess, "Saved", "Project saved"))
}
