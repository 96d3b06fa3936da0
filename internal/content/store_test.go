package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore("test", &SeqGen{})
}

func TestCreateFileOrderAndTemplate(t *testing.T) {
	s := newTestStore()
	a, err := s.CreateFile("index", "html", "")
	require.NoError(t, err)
	b, err := s.CreateFile("styles", ".CSS", "")
	require.NoError(t, err)

	assert.Equal(t, "file_1", a.ID)
	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
	assert.Equal(t, "css", b.Extension)
	assert.Contains(t, a.Content, "<!DOCTYPE html>")
	assert.True(t, s.Modified())
}

func TestCreateRejectsInvalidAndDuplicate(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateFile("index", "html", "")
	require.NoError(t, err)

	for _, bad := range []string{"", "a/b", "a*b", `a"b`, "a<b"} {
		_, err := s.CreateFile(bad, "html", "")
		var inv *InvalidNameError
		assert.True(t, errors.As(err, &inv), "name %q", bad)
	}

	_, err = s.CreateFile("index", "html", "")
	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Len(t, s.Files(), 1)

	// same name, other extension is a different key
	_, err = s.CreateFile("index", "css", "")
	require.NoError(t, err)

	_, err = s.CreateFolder("src", "")
	require.NoError(t, err)
	_, err = s.CreateFolder("src", "")
	require.True(t, errors.As(err, &dup))
	assert.Len(t, s.Folders(), 1)

	_, err = s.CreateFile("x", "js", "folder_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInFolderExpandsIt(t *testing.T) {
	s := newTestStore()
	src, _ := s.CreateFolder("src", "")
	_, err := s.CreateFile("app", "js", src.ID)
	require.NoError(t, err)
	assert.True(t, s.IsExpanded(src.ID))
}

func TestRenameDuplicateLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFile("a", "js", "")
	_, _ = s.CreateFile("b", "js", "")
	rev := s.Revision()

	_, err := s.RenameFile(a.ID, "b")
	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))

	got, _ := s.File(a.ID)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, rev, s.Revision())

	renamed, err := s.RenameFile(a.ID, "c.js")
	require.NoError(t, err)
	assert.Equal(t, "c", renamed.Name)

	// renaming to its own name is fine
	_, err = s.RenameFile(a.ID, "c")
	require.NoError(t, err)
}

func TestRenameFolder(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFolder("a", "")
	_, _ = s.CreateFolder("b", "")
	_, err := s.RenameFolder(a.ID, "b")
	var dup *DuplicateNameError
	assert.True(t, errors.As(err, &dup))
	_, err = s.RenameFolder(a.ID, "  ")
	var inv *InvalidNameError
	assert.True(t, errors.As(err, &inv))
	f, err := s.RenameFolder(a.ID, "assets")
	require.NoError(t, err)
	assert.Equal(t, "assets", f.Name)
}

func TestDeleteFileMovesActivation(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFile("a", "js", "")
	b, _ := s.CreateFile("b", "js", "")
	c, _ := s.CreateFile("c", "js", "")
	for _, id := range []string{a.ID, b.ID, c.ID} {
		_, err := s.Activate(id)
		require.NoError(t, err)
	}
	_, _ = s.Activate(b.ID)

	require.NoError(t, s.DeleteFile(b.ID))
	assert.Equal(t, []string{a.ID, c.ID}, s.OpenTabs())
	assert.Equal(t, c.ID, s.ActiveFileID())

	require.NoError(t, s.DeleteFile(c.ID))
	assert.Equal(t, a.ID, s.ActiveFileID())

	require.NoError(t, s.DeleteFile(a.ID))
	assert.Equal(t, "", s.ActiveFileID())
	assert.Empty(t, s.OpenTabs())

	assert.ErrorIs(t, s.DeleteFile(a.ID), ErrNotFound)
}

func TestDeleteFileFallsBackToFirstFile(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFile("a", "js", "")
	b, _ := s.CreateFile("b", "js", "")
	_, _ = s.Activate(b.ID)

	require.NoError(t, s.DeleteFile(b.ID))
	assert.Equal(t, a.ID, s.ActiveFileID())
	assert.Equal(t, []string{a.ID}, s.OpenTabs())
}

func TestDeleteFolderCascades(t *testing.T) {
	s := newTestStore()
	top, _ := s.CreateFolder("top", "")
	mid, _ := s.CreateFolder("mid", top.ID)
	leaf, _ := s.CreateFolder("leaf", mid.ID)
	other, _ := s.CreateFolder("other", "")

	f1, _ := s.CreateFile("one", "js", top.ID)
	f2, _ := s.CreateFile("two", "js", mid.ID)
	f3, _ := s.CreateFile("three", "js", leaf.ID)
	keep, _ := s.CreateFile("keep", "js", other.ID)
	root, _ := s.CreateFile("root", "js", "")

	for _, id := range []string{f1.ID, f2.ID, keep.ID, f3.ID} {
		_, _ = s.Activate(id)
	}

	rm, err := s.DeleteFolder(top.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top.ID, mid.ID, leaf.ID}, rm.Folders)
	assert.ElementsMatch(t, []string{f1.ID, f2.ID, f3.ID}, rm.Files)

	assert.Len(t, s.Files(), 2)
	assert.Len(t, s.Folders(), 1)
	assert.Equal(t, []string{keep.ID}, s.OpenTabs())
	assert.Equal(t, keep.ID, s.ActiveFileID())
	assert.False(t, s.IsExpanded(mid.ID))
	_, err = s.File(root.ID)
	assert.NoError(t, err)
}

func TestMoveFileScenario(t *testing.T) {
	s := newTestStore()
	idx, _ := s.CreateFileWithContent("index", "html", "", "<p>hi</p>")
	src, _ := s.CreateFolder("src", "")

	_, err := s.MoveFile(idx.ID, src.ID)
	require.NoError(t, err)

	assert.Empty(t, s.FilesInFolder(""))
	got := s.FilesInFolder(src.ID)
	require.Len(t, got, 1)
	assert.Equal(t, idx.ID, got[0].ID)
	assert.Equal(t, "<p>hi</p>", got[0].Content)
	assert.True(t, s.IsExpanded(src.ID))

	p, err := s.FilePath(idx.ID)
	require.NoError(t, err)
	assert.Equal(t, "src/index.html", p)
}

func TestMoveFileDuplicateAtTarget(t *testing.T) {
	s := newTestStore()
	src, _ := s.CreateFolder("src", "")
	a, _ := s.CreateFile("a", "js", "")
	_, _ = s.CreateFile("a", "js", src.ID)

	_, err := s.MoveFile(a.ID, src.ID)
	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	got, _ := s.File(a.ID)
	assert.Equal(t, Ref(""), got.FolderID)
}

func TestMoveFolderRejectsCycles(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFolder("a", "")
	b, _ := s.CreateFolder("b", a.ID)
	c, _ := s.CreateFolder("c", b.ID)
	before := s.State()

	for _, target := range []string{a.ID, b.ID, c.ID} {
		_, err := s.MoveFolder(a.ID, target)
		var cyc *CyclicMoveError
		assert.True(t, errors.As(err, &cyc), "target %s", target)
	}
	assert.Equal(t, before.Folders, s.State().Folders)

	moved, err := s.MoveFolder(c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, Ref(""), moved.ParentID)
	assert.False(t, s.IsDescendant(c.ID, a.ID))
}

func TestReorderBoundariesAreNoOps(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFile("a", "js", "")
	b, _ := s.CreateFile("b", "js", "")
	c, _ := s.CreateFile("c", "js", "")
	orders := func() []int {
		var out []int
		for _, f := range s.Files() {
			out = append(out, f.Order)
		}
		return out
	}
	before := orders()

	moved, err := s.Reorder(KindFile, a.ID, Up)
	require.NoError(t, err)
	assert.False(t, moved)
	moved, err = s.Reorder(KindFile, c.ID, Down)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, before, orders())

	moved, err = s.Reorder(KindFile, c.ID, Up)
	require.NoError(t, err)
	assert.True(t, moved)

	var names []string
	for _, f := range s.FilesInFolder("") {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "c", "b"}, names)
	_ = b
}

func TestReorderBreaksTiesByName(t *testing.T) {
	s := newTestStore()
	st := State{Folders: []Folder{
		{ID: "f1", Name: "zeta"},
		{ID: "f2", Name: "alpha"},
	}}
	s.Restore(st)

	moved, err := s.Reorder(KindFolder, "f1", Up)
	require.NoError(t, err)
	assert.True(t, moved)
	got := s.FoldersInFolder("")
	assert.Equal(t, "zeta", got[0].Name)
}

func TestSetContentMarksModified(t *testing.T) {
	s := newTestStore()
	f, _ := s.CreateFile("a", "js", "")
	s.MarkSaved()
	assert.False(t, s.Modified())

	var seen []Change
	s.Subscribe(func(c Change) { seen = append(seen, c) })

	require.NoError(t, s.SetContent(f.ID, "let x = 1"))
	got, _ := s.File(f.ID)
	assert.True(t, got.Modified)
	assert.True(t, s.Modified())
	require.Len(t, seen, 1)
	assert.Equal(t, ChangeContent, seen[0].Kind)

	assert.ErrorIs(t, s.SetContent("nope", ""), ErrNotFound)
}

func TestMarkSavedAtKeepsLaterEdits(t *testing.T) {
	s := newTestStore()
	f, _ := s.CreateFile("a", "js", "")
	require.NoError(t, s.SetContent(f.ID, "v1"))
	snap := s.State()
	assert.Equal(t, s.Revision(), snap.Revision)

	require.NoError(t, s.SetContent(f.ID, "v2"))
	assert.False(t, s.MarkSavedAt(snap.Revision))
	assert.True(t, s.Modified())
	got, _ := s.File(f.ID)
	assert.True(t, got.Modified)

	assert.True(t, s.MarkSavedAt(s.Revision()))
	assert.False(t, s.Modified())
}

func TestCloseTabActivatesMostRecent(t *testing.T) {
	s := newTestStore()
	a, _ := s.CreateFile("a", "js", "")
	b, _ := s.CreateFile("b", "js", "")
	c, _ := s.CreateFile("c", "js", "")
	_, _ = s.Activate(a.ID)
	_, _ = s.Activate(b.ID)
	_, _ = s.Activate(c.ID)
	_, _ = s.Activate(a.ID)

	next, err := s.CloseTab(a.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, next)

	_, _ = s.CloseTab(c.ID)
	next, _ = s.CloseTab(b.ID)
	assert.Equal(t, "", next)
}

func TestHistoryKeepsTenAndRestores(t *testing.T) {
	s := newTestStore()
	h := NewHistory()
	f, _ := s.CreateFileWithContent("a", "js", "", "v0")
	for i := 0; i < 12; i++ {
		h.Record(s, "save")
	}
	assert.Len(t, h.Entries(), HistoryDepth)

	_ = s.SetContent(f.ID, "v1")
	h.Record(s, "save")
	_ = s.SetContent(f.ID, "v2")

	require.NoError(t, h.Restore(s, 0))
	got, _ := s.File(f.ID)
	assert.Equal(t, "v1", got.Content)

	assert.ErrorIs(t, h.Restore(s, 99), ErrNotFound)
}

func TestSeedDefault(t *testing.T) {
	s := newTestStore()
	require.NoError(t, SeedDefault(s))
	assert.Len(t, s.Files(), 3)
	assert.Equal(t, "file_1", s.ActiveFileID())
	assert.False(t, s.Modified())
	assert.Equal(t, "javascript", LanguageFor("JS"))
	assert.Equal(t, "plaintext", LanguageFor("weird"))
}

func TestRefJSONNull(t *testing.T) {
	b, err := Ref("").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var r Ref
	require.NoError(t, r.UnmarshalJSON([]byte(`"folder_1"`)))
	assert.Equal(t, Ref("folder_1"), r)
	require.NoError(t, r.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Ref(""), r)
}
