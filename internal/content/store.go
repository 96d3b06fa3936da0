package content

import (
	"sort"
	"sync"

	"github.com/petervdpas/codespace/internal/util"
)

// Store owns the project's files and folders together with the editor-side
// state that must stay consistent with them: open tabs, the active file and
// the expanded-folder set. Every exported method is atomic.
type Store struct {
	mu sync.RWMutex

	ids  IDGen
	name string

	// Files and folders keep insertion order; "first file" fallbacks and
	// project-wide preview resolution depend on it.
	files   []*File
	folders []*Folder

	tabs     []string
	active   string
	expanded map[string]bool
	modified bool
	rev      uint64

	lmu       sync.Mutex
	listeners []func(Change)
}

func NewStore(projectName string, ids IDGen) *Store {
	if ids == nil {
		ids = UUIDGen{}
	}
	return &Store{
		ids:      ids,
		name:     projectName,
		expanded: map[string]bool{},
	}
}

// Subscribe registers fn for every committed mutation. fn runs after the
// store lock is released and must not block.
func (s *Store) Subscribe(fn func(Change)) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Store) notify(c Change) {
	s.lmu.Lock()
	ls := append([]func(Change){}, s.listeners...)
	s.lmu.Unlock()
	for _, fn := range ls {
		fn(c)
	}
}

// bumpLocked advances the revision and returns the change to publish.
func (s *Store) bumpLocked(kind ChangeKind, item Kind, id string) Change {
	s.rev++
	return Change{Kind: kind, ItemKind: item, ID: id, Revision: s.rev}
}

func (s *Store) ProjectName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Store) SetProjectName(name string) error {
	name, err := util.ValidateName(name)
	if err != nil {
		return &InvalidNameError{Name: name, Reason: err.Error()}
	}
	s.mu.Lock()
	s.name = name
	s.modified = true
	c := s.bumpLocked(ChangeRename, "", "")
	s.mu.Unlock()
	s.notify(c)
	return nil
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Modified reports whether anything changed since the last MarkSaved.
func (s *Store) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ---------- lookups ----------

func (s *Store) fileLocked(id string) *File {
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Store) folderLocked(id string) *Folder {
	for _, f := range s.folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Store) File(id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.fileLocked(id)
	if f == nil {
		return File{}, &FileNotFoundError{ID: id}
	}
	return *f, nil
}

func (s *Store) Folder(id string) (Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.folderLocked(id)
	if f == nil {
		return Folder{}, &FolderNotFoundError{ID: id}
	}
	return *f, nil
}

// Files returns every file in insertion order.
func (s *Store) Files() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, len(s.files))
	for i, f := range s.files {
		out[i] = *f
	}
	return out
}

// Folders returns every folder in insertion order.
func (s *Store) Folders() []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Folder, len(s.folders))
	for i, f := range s.folders {
		out[i] = *f
	}
	return out
}

// FilesInFolder returns the direct children of folderID ("" = root) sorted
// by (order, name).
func (s *Store) FilesInFolder(folderID string) []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []File{}
	for _, f := range s.files {
		if string(f.FolderID) == folderID {
			out = append(out, *f)
		}
	}
	SortFiles(out)
	return out
}

// FoldersInFolder returns the direct subfolders of parentID sorted by
// (order, name).
func (s *Store) FoldersInFolder(parentID string) []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Folder{}
	for _, f := range s.folders {
		if string(f.ParentID) == parentID {
			out = append(out, *f)
		}
	}
	SortFolders(out)
	return out
}

// SortFiles orders files by (order asc, name.ext asc) with byte-wise
// string comparison.
func SortFiles(fs []File) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Order != fs[j].Order {
			return fs[i].Order < fs[j].Order
		}
		return fs[i].FullName() < fs[j].FullName()
	})
}

// SortFolders orders folders by (order asc, name asc).
func SortFolders(fs []Folder) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Order != fs[j].Order {
			return fs[i].Order < fs[j].Order
		}
		return fs[i].Name < fs[j].Name
	})
}

// IsDescendant reports whether folder id lies under ancestor (strictly).
func (s *Store) IsDescendant(id, ancestor string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDescendantLocked(id, ancestor)
}

func (s *Store) isDescendantLocked(id, ancestor string) bool {
	seen := map[string]bool{}
	cur := s.folderLocked(id)
	for cur != nil && cur.ParentID != "" {
		if string(cur.ParentID) == ancestor {
			return true
		}
		if seen[cur.ID] {
			return false
		}
		seen[cur.ID] = true
		cur = s.folderLocked(string(cur.ParentID))
	}
	return false
}

// FolderPath returns the slash-separated folder chain from the root to id.
func (s *Store) FolderPath(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folderPathLocked(id)
}

func (s *Store) folderPathLocked(id string) string {
	var parts []string
	seen := map[string]bool{}
	for cur := s.folderLocked(id); cur != nil && !seen[cur.ID]; cur = s.folderLocked(string(cur.ParentID)) {
		seen[cur.ID] = true
		parts = append([]string{cur.Name}, parts...)
	}
	path := ""
	for i, p := range parts {
		if i > 0 {
			path += "/"
		}
		path += p
	}
	return path
}

// FilePath returns folder/sub/name.ext for a file.
func (s *Store) FilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.fileLocked(id)
	if f == nil {
		return "", &FileNotFoundError{ID: id}
	}
	dir := s.folderPathLocked(string(f.FolderID))
	if dir == "" {
		return f.FullName(), nil
	}
	return dir + "/" + f.FullName(), nil
}

// ---------- validation helpers ----------

func checkName(name string) (string, error) {
	clean, err := util.ValidateName(name)
	if err != nil {
		return "", &InvalidNameError{Name: name, Reason: err.Error()}
	}
	return clean, nil
}

func (s *Store) checkParentLocked(id string) error {
	if id == "" {
		return nil
	}
	if s.folderLocked(id) == nil {
		return &FolderNotFoundError{ID: id}
	}
	return nil
}

func (s *Store) fileCollidesLocked(name, ext, folderID, selfID string) bool {
	for _, f := range s.files {
		if f.ID != selfID && f.Name == name && f.Extension == ext && string(f.FolderID) == folderID {
			return true
		}
	}
	return false
}

func (s *Store) folderCollidesLocked(name, parentID, selfID string) bool {
	for _, f := range s.folders {
		if f.ID != selfID && f.Name == name && string(f.ParentID) == parentID {
			return true
		}
	}
	return false
}

func (s *Store) nextFileOrderLocked(folderID string) int {
	top := -1
	for _, f := range s.files {
		if string(f.FolderID) == folderID && f.Order > top {
			top = f.Order
		}
	}
	return top + 1
}

func (s *Store) nextFolderOrderLocked(parentID string) int {
	top := -1
	for _, f := range s.folders {
		if string(f.ParentID) == parentID && f.Order > top {
			top = f.Order
		}
	}
	return top + 1
}

// ---------- create ----------

// CreateFile adds a file seeded with the extension's template.
func (s *Store) CreateFile(name, ext, folderID string) (File, error) {
	return s.createFile(name, ext, folderID, TemplateFor(ext))
}

// CreateFileWithContent is CreateFile with explicit initial content.
func (s *Store) CreateFileWithContent(name, ext, folderID, content string) (File, error) {
	return s.createFile(name, ext, folderID, content)
}

// CreatePage adds an HTML page titled after its name.
func (s *Store) CreatePage(name, folderID string) (File, error) {
	clean, err := checkName(name)
	if err != nil {
		return File{}, err
	}
	return s.createFile(clean, "html", folderID, PageTemplate(clean))
}

func (s *Store) createFile(name, ext, folderID, body string) (File, error) {
	name, err := checkName(name)
	if err != nil {
		return File{}, err
	}
	ext = NormalizeExt(ext)
	if ext == "" {
		return File{}, &InvalidNameError{Name: name, Reason: "extension is empty"}
	}

	s.mu.Lock()
	if err := s.checkParentLocked(folderID); err != nil {
		s.mu.Unlock()
		return File{}, err
	}
	if s.fileCollidesLocked(name, ext, folderID, "") {
		s.mu.Unlock()
		return File{}, &DuplicateNameError{Kind: KindFile, Name: name + "." + ext, ParentID: folderID}
	}
	f := &File{
		ID:        s.ids.NewFileID(),
		Name:      name,
		Extension: ext,
		Content:   body,
		FolderID:  Ref(folderID),
		Order:     s.nextFileOrderLocked(folderID),
	}
	s.files = append(s.files, f)
	if folderID != "" {
		s.expanded[folderID] = true
	}
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeCreate, KindFile, f.ID)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

func (s *Store) CreateFolder(name, parentID string) (Folder, error) {
	name, err := checkName(name)
	if err != nil {
		return Folder{}, err
	}

	s.mu.Lock()
	if err := s.checkParentLocked(parentID); err != nil {
		s.mu.Unlock()
		return Folder{}, err
	}
	if s.folderCollidesLocked(name, parentID, "") {
		s.mu.Unlock()
		return Folder{}, &DuplicateNameError{Kind: KindFolder, Name: name, ParentID: parentID}
	}
	f := &Folder{
		ID:       s.ids.NewFolderID(),
		Name:     name,
		ParentID: Ref(parentID),
		Order:    s.nextFolderOrderLocked(parentID),
	}
	s.folders = append(s.folders, f)
	if parentID != "" {
		s.expanded[parentID] = true
	}
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeCreate, KindFolder, f.ID)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

// ---------- rename ----------

// RenameFile changes the base name. A newName of the form "base.ext" whose
// extension matches the current one is accepted as just "base".
func (s *Store) RenameFile(id, newName string) (File, error) {
	name, err := checkName(newName)
	if err != nil {
		return File{}, err
	}

	s.mu.Lock()
	f := s.fileLocked(id)
	if f == nil {
		s.mu.Unlock()
		return File{}, &FileNotFoundError{ID: id}
	}
	if suffix := "." + f.Extension; len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		name = name[:len(name)-len(suffix)]
	}
	if s.fileCollidesLocked(name, f.Extension, string(f.FolderID), f.ID) {
		s.mu.Unlock()
		return File{}, &DuplicateNameError{Kind: KindFile, Name: name + "." + f.Extension, ParentID: string(f.FolderID)}
	}
	f.Name = name
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeRename, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

func (s *Store) RenameFolder(id, newName string) (Folder, error) {
	name, err := checkName(newName)
	if err != nil {
		return Folder{}, err
	}

	s.mu.Lock()
	f := s.folderLocked(id)
	if f == nil {
		s.mu.Unlock()
		return Folder{}, &FolderNotFoundError{ID: id}
	}
	if s.folderCollidesLocked(name, string(f.ParentID), f.ID) {
		s.mu.Unlock()
		return Folder{}, &DuplicateNameError{Kind: KindFolder, Name: name, ParentID: string(f.ParentID)}
	}
	f.Name = name
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeRename, KindFolder, id)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

// ---------- delete ----------

func (s *Store) DeleteFile(id string) error {
	s.mu.Lock()
	if s.fileLocked(id) == nil {
		s.mu.Unlock()
		return &FileNotFoundError{ID: id}
	}
	s.removeFilesLocked(map[string]bool{id: true})
	s.modified = true
	c := s.bumpLocked(ChangeDelete, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return nil
}

// DeleteFolder removes the folder, every descendant folder and every file
// owned by any of them.
func (s *Store) DeleteFolder(id string) (Removed, error) {
	s.mu.Lock()
	if s.folderLocked(id) == nil {
		s.mu.Unlock()
		return Removed{}, &FolderNotFoundError{ID: id}
	}

	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for _, f := range s.folders {
			if !doomed[f.ID] && doomed[string(f.ParentID)] {
				doomed[f.ID] = true
				grew = true
			}
		}
	}

	var rm Removed
	keptFolders := s.folders[:0]
	for _, f := range s.folders {
		if doomed[f.ID] {
			rm.Folders = append(rm.Folders, f.ID)
			delete(s.expanded, f.ID)
			continue
		}
		keptFolders = append(keptFolders, f)
	}
	s.folders = keptFolders

	files := map[string]bool{}
	for _, f := range s.files {
		if doomed[string(f.FolderID)] {
			files[f.ID] = true
			rm.Files = append(rm.Files, f.ID)
		}
	}
	s.removeFilesLocked(files)
	s.modified = true
	c := s.bumpLocked(ChangeDelete, KindFolder, id)
	s.mu.Unlock()

	s.notify(c)
	return rm, nil
}

// removeFilesLocked drops the files, prunes tabs and moves activation to the
// next remaining open tab, else the first remaining file, else none.
func (s *Store) removeFilesLocked(doomed map[string]bool) {
	if len(doomed) == 0 {
		return
	}
	kept := s.files[:0]
	for _, f := range s.files {
		if !doomed[f.ID] {
			kept = append(kept, f)
		}
	}
	s.files = kept

	next := ""
	if doomed[s.active] {
		next = nextSurvivor(s.tabs, s.active, doomed)
	}

	tabs := s.tabs[:0]
	for _, t := range s.tabs {
		if !doomed[t] {
			tabs = append(tabs, t)
		}
	}
	s.tabs = tabs

	if !doomed[s.active] {
		return
	}
	if next == "" && len(s.files) > 0 {
		next = s.files[0].ID
		s.tabs = append(s.tabs, next)
	}
	s.active = next
}

// nextSurvivor returns the first tab after pos that survives, else the
// nearest surviving tab before it.
func nextSurvivor(tabs []string, id string, doomed map[string]bool) string {
	pos := -1
	for i, t := range tabs {
		if t == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		for _, t := range tabs {
			if !doomed[t] {
				return t
			}
		}
		return ""
	}
	for i := pos + 1; i < len(tabs); i++ {
		if !doomed[tabs[i]] {
			return tabs[i]
		}
	}
	for i := pos - 1; i >= 0; i-- {
		if !doomed[tabs[i]] {
			return tabs[i]
		}
	}
	return ""
}

// ---------- move ----------

func (s *Store) MoveFile(id, targetFolderID string) (File, error) {
	s.mu.Lock()
	f := s.fileLocked(id)
	if f == nil {
		s.mu.Unlock()
		return File{}, &FileNotFoundError{ID: id}
	}
	if err := s.checkParentLocked(targetFolderID); err != nil {
		s.mu.Unlock()
		return File{}, err
	}
	if string(f.FolderID) == targetFolderID {
		out := *f
		s.mu.Unlock()
		return out, nil
	}
	if s.fileCollidesLocked(f.Name, f.Extension, targetFolderID, f.ID) {
		s.mu.Unlock()
		return File{}, &DuplicateNameError{Kind: KindFile, Name: f.FullName(), ParentID: targetFolderID}
	}
	f.Order = s.nextFileOrderLocked(targetFolderID)
	f.FolderID = Ref(targetFolderID)
	if targetFolderID != "" {
		s.expanded[targetFolderID] = true
	}
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeMove, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

func (s *Store) MoveFolder(id, targetFolderID string) (Folder, error) {
	s.mu.Lock()
	f := s.folderLocked(id)
	if f == nil {
		s.mu.Unlock()
		return Folder{}, &FolderNotFoundError{ID: id}
	}
	if targetFolderID == id || (targetFolderID != "" && s.isDescendantLocked(targetFolderID, id)) {
		s.mu.Unlock()
		return Folder{}, &CyclicMoveError{FolderID: id, TargetID: targetFolderID}
	}
	if err := s.checkParentLocked(targetFolderID); err != nil {
		s.mu.Unlock()
		return Folder{}, err
	}
	if string(f.ParentID) == targetFolderID {
		out := *f
		s.mu.Unlock()
		return out, nil
	}
	if s.folderCollidesLocked(f.Name, targetFolderID, f.ID) {
		s.mu.Unlock()
		return Folder{}, &DuplicateNameError{Kind: KindFolder, Name: f.Name, ParentID: targetFolderID}
	}
	f.Order = s.nextFolderOrderLocked(targetFolderID)
	f.ParentID = Ref(targetFolderID)
	if targetFolderID != "" {
		s.expanded[targetFolderID] = true
	}
	s.modified = true
	out := *f
	c := s.bumpLocked(ChangeMove, KindFolder, id)
	s.mu.Unlock()

	s.notify(c)
	return out, nil
}

// ---------- reorder ----------

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Reorder swaps the item with its neighbour among siblings sorted by
// (order, name). At either boundary it is a no-op and reports false.
func (s *Store) Reorder(kind Kind, id string, dir Direction) (bool, error) {
	if dir != Up && dir != Down {
		return false, &InvalidNameError{Name: string(dir), Reason: `direction must be "up" or "down"`}
	}
	s.mu.Lock()
	var moved bool
	switch kind {
	case KindFile:
		f := s.fileLocked(id)
		if f == nil {
			s.mu.Unlock()
			return false, &FileNotFoundError{ID: id}
		}
		var sib []*File
		for _, o := range s.files {
			if o.FolderID == f.FolderID {
				sib = append(sib, o)
			}
		}
		sort.SliceStable(sib, func(i, j int) bool {
			if sib[i].Order != sib[j].Order {
				return sib[i].Order < sib[j].Order
			}
			return sib[i].FullName() < sib[j].FullName()
		})
		moved = swapNeighbour(len(sib), indexOf(sib, f), dir, func(i int) *int { return &sib[i].Order })
	case KindFolder:
		f := s.folderLocked(id)
		if f == nil {
			s.mu.Unlock()
			return false, &FolderNotFoundError{ID: id}
		}
		var sib []*Folder
		for _, o := range s.folders {
			if o.ParentID == f.ParentID {
				sib = append(sib, o)
			}
		}
		sort.SliceStable(sib, func(i, j int) bool {
			if sib[i].Order != sib[j].Order {
				return sib[i].Order < sib[j].Order
			}
			return sib[i].Name < sib[j].Name
		})
		moved = swapNeighbour(len(sib), indexOf(sib, f), dir, func(i int) *int { return &sib[i].Order })
	default:
		s.mu.Unlock()
		return false, &InvalidNameError{Name: string(kind), Reason: `kind must be "file" or "folder"`}
	}
	if !moved {
		s.mu.Unlock()
		return false, nil
	}
	s.modified = true
	c := s.bumpLocked(ChangeReorder, kind, id)
	s.mu.Unlock()

	s.notify(c)
	return true, nil
}

func indexOf[T comparable](xs []T, x T) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

// swapNeighbour renumbers the sorted siblings 0..n-1 and swaps position i
// with its neighbour. Order values are untouched at the boundaries.
func swapNeighbour(n, i int, dir Direction, order func(int) *int) bool {
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if i < 0 || j < 0 || j >= n {
		return false
	}
	for k := 0; k < n; k++ {
		*order(k) = k
	}
	*order(i), *order(j) = j, i
	return true
}

// ---------- content ----------

// SetContent replaces a file body and marks it and the project modified.
func (s *Store) SetContent(id, body string) error {
	s.mu.Lock()
	f := s.fileLocked(id)
	if f == nil {
		s.mu.Unlock()
		return &FileNotFoundError{ID: id}
	}
	if f.Content == body {
		s.mu.Unlock()
		return nil
	}
	f.Content = body
	f.Modified = true
	s.modified = true
	c := s.bumpLocked(ChangeContent, KindFile, id)
	s.mu.Unlock()

	s.notify(c)
	return nil
}

// MarkSaved clears every modified flag.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	for _, f := range s.files {
		f.Modified = false
	}
	s.modified = false
	c := s.bumpLocked(ChangeSaved, "", "")
	s.mu.Unlock()
	s.notify(c)
}

// MarkSavedAt clears the modified flags only if the store is still at
// revision rev, so edits that landed after a snapshot was taken stay
// pending. It reports whether the flags were cleared.
func (s *Store) MarkSavedAt(rev uint64) bool {
	s.mu.Lock()
	if s.rev != rev {
		s.mu.Unlock()
		return false
	}
	for _, f := range s.files {
		f.Modified = false
	}
	s.modified = false
	c := s.bumpLocked(ChangeSaved, "", "")
	s.mu.Unlock()
	s.notify(c)
	return true
}

// ---------- expanded folders ----------

func (s *Store) Expanded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// ToggleExpanded flips a folder's expand state and returns the new state.
func (s *Store) ToggleExpanded(id string) (bool, error) {
	s.mu.Lock()
	if s.folderLocked(id) == nil {
		s.mu.Unlock()
		return false, &FolderNotFoundError{ID: id}
	}
	open := !s.expanded[id]
	if open {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}
	c := s.bumpLocked(ChangeTabs, KindFolder, id)
	s.mu.Unlock()
	s.notify(c)
	return open, nil
}

// ---------- snapshot ----------

// State returns a deep copy of the store.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		ProjectName: s.name,
		Files:       make([]File, len(s.files)),
		Folders:     make([]Folder, len(s.folders)),
		OpenTabs:    append([]string{}, s.tabs...),
		ActiveID:    s.active,
		Modified:    s.modified,
		Revision:    s.rev,
	}
	for i, f := range s.files {
		st.Files[i] = *f
	}
	for i, f := range s.folders {
		st.Folders[i] = *f
	}
	for id := range s.expanded {
		st.Expanded = append(st.Expanded, id)
	}
	sort.Strings(st.Expanded)
	return st
}

// Restore replaces the whole store with st. The caller is responsible for
// st being valid; persistence runs its own repair pass first.
func (s *Store) Restore(st State) {
	s.mu.Lock()
	s.name = st.ProjectName
	s.files = make([]*File, len(st.Files))
	for i := range st.Files {
		f := st.Files[i]
		s.files[i] = &f
	}
	s.folders = make([]*Folder, len(st.Folders))
	for i := range st.Folders {
		f := st.Folders[i]
		s.folders[i] = &f
	}
	s.expanded = map[string]bool{}
	for _, id := range st.Expanded {
		s.expanded[id] = true
	}
	s.tabs = append([]string{}, st.OpenTabs...)
	s.active = st.ActiveID
	s.modified = st.Modified
	c := s.bumpLocked(ChangeRestore, "", "")
	s.mu.Unlock()
	s.notify(c)
}
