package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
)

// Settings are the editor preferences stored with every snapshot.
type Settings struct {
	Theme         string `json:"theme"`
	FontSize      int    `json:"fontSize"`
	Minimap       bool   `json:"minimap"`
	WordWrap      bool   `json:"wordWrap"`
	AutoSave      bool   `json:"autoSave"`
	AutoSaveDelay int    `json:"autoSaveDelay"`
}

func SettingsFromConfig(e config.Editor) Settings {
	return Settings{
		Theme:         e.Theme,
		FontSize:      e.FontSize,
		Minimap:       e.Minimap,
		WordWrap:      e.WordWrap,
		AutoSave:      e.AutoSave,
		AutoSaveDelay: e.AutoSaveDelayMs,
	}
}

// Snapshot is the persisted project document.
type Snapshot struct {
	ProjectName     string           `json:"projectName"`
	Files           []content.File   `json:"files"`
	Folders         []content.Folder `json:"folders"`
	ExpandedFolders []string         `json:"expandedFolders"`
	Settings        Settings         `json:"settings"`
	OpenTabs        []string         `json:"openTabs"`
	CurrentFileID   *string          `json:"currentFileId"`
}

// ParseError reports a snapshot that could not be decoded.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("corrupt project snapshot in %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Warning describes something the load pass repaired or discarded.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnParse        = "parse"
	WarnRead         = "read"
	WarnDroppedFile  = "dropped-file"
	WarnDroppedDir   = "dropped-folder"
	WarnOrphan       = "orphan"
	WarnCycle        = "cycle"
	WarnDuplicate    = "duplicate"
	WarnPrunedTab    = "pruned-tab"
	WarnActiveMissed = "active-missing"
)

// Loaded is the outcome of Persister.Load.
type Loaded struct {
	State    content.State
	Settings Settings

	// Fresh is true when no usable snapshot existed and the caller should
	// seed the default project.
	Fresh bool

	// Err is the *ParseError behind a fallback, if any.
	Err error
}

// Persister saves and restores a content.Store through a Slot.
type Persister struct {
	slot     Slot
	key      string
	defaults Settings
	name     string
}

func NewPersister(slot Slot, key string, defaults Settings, defaultName string) *Persister {
	return &Persister{slot: slot, key: key, defaults: defaults, name: defaultName}
}

func (p *Persister) Key() string { return p.key }

// Encode builds the snapshot document for the store.
func Encode(st content.State, settings Settings) ([]byte, error) {
	snap := Snapshot{
		ProjectName:     st.ProjectName,
		Files:           st.Files,
		Folders:         st.Folders,
		ExpandedFolders: st.Expanded,
		Settings:        settings,
		OpenTabs:        st.OpenTabs,
	}
	if snap.Files == nil {
		snap.Files = []content.File{}
	}
	if snap.Folders == nil {
		snap.Folders = []content.Folder{}
	}
	if snap.ExpandedFolders == nil {
		snap.ExpandedFolders = []string{}
	}
	if snap.OpenTabs == nil {
		snap.OpenTabs = []string{}
	}
	if st.ActiveID != "" {
		id := st.ActiveID
		snap.CurrentFileID = &id
	}
	return json.Marshal(snap)
}

// Save overwrites the slot with the store's current state and returns the
// store revision that was written.
func (p *Persister) Save(ctx context.Context, s *content.Store, settings Settings) (uint64, error) {
	st := s.State()
	b, err := Encode(st, settings)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.slot.Put(ctx, p.key, b); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return st.Revision, nil
}

// Load reads and repairs the snapshot. It never fails: unreadable or
// corrupt data falls back to a fresh project with a warning.
func (p *Persister) Load(ctx context.Context) (Loaded, []Warning) {
	fresh := Loaded{
		State:    content.State{ProjectName: p.name},
		Settings: p.defaults,
		Fresh:    true,
	}

	b, err := p.slot.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return fresh, nil
	}
	if err != nil {
		fresh.Err = err
		return fresh, []Warning{{Code: WarnRead, Message: err.Error()}}
	}

	loaded, warns, err := Decode(b, p.defaults, p.name)
	if err != nil {
		perr := &ParseError{Key: p.key, Err: err}
		fresh.Err = perr
		return fresh, []Warning{{Code: WarnParse, Message: perr.Error()}}
	}
	return loaded, warns
}

// Restore loads the snapshot into s, seeding the default project when
// nothing usable was stored.
func (p *Persister) Restore(ctx context.Context, s *content.Store) (Loaded, []Warning) {
	loaded, warns := p.Load(ctx)
	s.Restore(loaded.State)
	if loaded.Fresh {
		if err := content.SeedDefault(s); err != nil {
			warns = append(warns, Warning{Code: WarnRead, Message: err.Error()})
		}
	}
	return loaded, warns
}

// raw* mirror the snapshot with pointer fields so missing values can be
// told apart from zero values.
type rawFile struct {
	ID        *string     `json:"id"`
	Name      *string     `json:"name"`
	Extension *string     `json:"extension"`
	Content   string      `json:"content"`
	FolderID  content.Ref `json:"folderId"`
	Order     *int        `json:"order"`
	Modified  bool        `json:"modified"`
}

type rawFolder struct {
	ID       *string     `json:"id"`
	Name     *string     `json:"name"`
	ParentID content.Ref `json:"parentId"`
	Order    *int        `json:"order"`
}

type rawSnapshot struct {
	ProjectName     string          `json:"projectName"`
	Files           []rawFile       `json:"files"`
	Folders         []rawFolder     `json:"folders"`
	ExpandedFolders []string        `json:"expandedFolders"`
	Settings        json.RawMessage `json:"settings"`
	OpenTabs        []string        `json:"openTabs"`
	CurrentFileID   *string         `json:"currentFileId"`
}

func present(s *string) bool { return s != nil && *s != "" }

// Decode parses a snapshot document and runs the repair pass.
func Decode(b []byte, defaults Settings, defaultName string) (Loaded, []Warning, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(b, &raw); err != nil {
		return Loaded{}, nil, err
	}

	var warns []Warning
	warn := func(code, format string, args ...any) {
		warns = append(warns, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	settings := defaults
	if len(raw.Settings) > 0 && string(raw.Settings) != "null" {
		if err := json.Unmarshal(raw.Settings, &settings); err != nil {
			warn(WarnParse, "settings ignored: %v", err)
			settings = defaults
		}
	}

	st := content.State{ProjectName: raw.ProjectName}
	if st.ProjectName == "" {
		st.ProjectName = defaultName
	}

	// Folders: drop incomplete records and duplicate ids.
	folderIDs := map[string]bool{}
	for i, rf := range raw.Folders {
		if !present(rf.ID) || !present(rf.Name) {
			warn(WarnDroppedDir, "folder #%d dropped: missing id or name", i)
			continue
		}
		if folderIDs[*rf.ID] {
			warn(WarnDroppedDir, "folder %s dropped: duplicate id", *rf.ID)
			continue
		}
		folderIDs[*rf.ID] = true
		f := content.Folder{ID: *rf.ID, Name: *rf.Name, ParentID: rf.ParentID}
		if rf.Order != nil {
			f.Order = *rf.Order
		}
		st.Folders = append(st.Folders, f)
	}

	// Orphan parents become root.
	for i := range st.Folders {
		f := &st.Folders[i]
		if f.ParentID != "" && !folderIDs[string(f.ParentID)] {
			warn(WarnOrphan, "folder %s: parent %s missing, moved to root", f.ID, f.ParentID)
			f.ParentID = ""
		}
	}
	breakCycles(st.Folders, warn)

	// Files.
	fileIDs := map[string]bool{}
	for i, rf := range raw.Files {
		if !present(rf.ID) || !present(rf.Name) || !present(rf.Extension) {
			warn(WarnDroppedFile, "file #%d dropped: missing id, name or extension", i)
			continue
		}
		if fileIDs[*rf.ID] {
			warn(WarnDroppedFile, "file %s dropped: duplicate id", *rf.ID)
			continue
		}
		fileIDs[*rf.ID] = true
		f := content.File{
			ID:        *rf.ID,
			Name:      *rf.Name,
			Extension: *rf.Extension,
			Content:   rf.Content,
			FolderID:  rf.FolderID,
			Modified:  rf.Modified,
		}
		if rf.Order != nil {
			f.Order = *rf.Order
		}
		if f.FolderID != "" && !folderIDs[string(f.FolderID)] {
			warn(WarnOrphan, "file %s: folder %s missing, moved to root", f.ID, f.FolderID)
			f.FolderID = ""
		}
		st.Files = append(st.Files, f)
	}
	dedupeNames(&st, warn)

	for _, id := range raw.ExpandedFolders {
		if folderIDs[id] {
			st.Expanded = append(st.Expanded, id)
		}
	}
	sort.Strings(st.Expanded)

	seenTab := map[string]bool{}
	for _, id := range raw.OpenTabs {
		if !fileIDs[id] {
			warn(WarnPrunedTab, "open tab %s pruned: file missing", id)
			continue
		}
		if seenTab[id] {
			continue
		}
		seenTab[id] = true
		st.OpenTabs = append(st.OpenTabs, id)
	}

	if raw.CurrentFileID != nil && *raw.CurrentFileID != "" {
		if fileIDs[*raw.CurrentFileID] {
			st.ActiveID = *raw.CurrentFileID
		} else {
			warn(WarnActiveMissed, "active file %s missing", *raw.CurrentFileID)
		}
	}

	return Loaded{State: st, Settings: settings}, warns, nil
}

// breakCycles detaches any folder whose parent chain loops back on itself.
func breakCycles(folders []content.Folder, warn func(string, string, ...any)) {
	idx := map[string]int{}
	for i, f := range folders {
		idx[f.ID] = i
	}
	for i := range folders {
		seen := map[string]bool{folders[i].ID: true}
		cur := folders[i].ParentID
		for cur != "" {
			if seen[string(cur)] {
				warn(WarnCycle, "folder %s: parent cycle broken, moved to root", folders[i].ID)
				folders[i].ParentID = ""
				break
			}
			seen[string(cur)] = true
			cur = folders[idx[string(cur)]].ParentID
		}
	}
}

// dedupeNames renames siblings that collide after orphan repair.
func dedupeNames(st *content.State, warn func(string, string, ...any)) {
	taken := map[string]bool{}
	for i := range st.Folders {
		f := &st.Folders[i]
		key := string(f.ParentID) + "\x00" + f.Name
		for n := 2; taken[key]; n++ {
			name := f.Name + "-" + strconv.Itoa(n)
			if k := string(f.ParentID) + "\x00" + name; !taken[k] {
				warn(WarnDuplicate, "folder %s renamed to %q", f.ID, name)
				f.Name = name
				key = k
			}
		}
		taken[key] = true
	}

	taken = map[string]bool{}
	for i := range st.Files {
		f := &st.Files[i]
		key := string(f.FolderID) + "\x00" + f.Name + "\x00" + f.Extension
		for n := 2; taken[key]; n++ {
			name := f.Name + "-" + strconv.Itoa(n)
			if k := string(f.FolderID) + "\x00" + name + "\x00" + f.Extension; !taken[k] {
				warn(WarnDuplicate, "file %s renamed to %q", f.ID, name+"."+f.Extension)
				f.Name = name
				key = k
			}
		}
		taken[key] = true
	}
}
