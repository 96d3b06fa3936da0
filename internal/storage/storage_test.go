package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
)

const testKey = "codespace-pro-project"

func defaults() Settings {
	return SettingsFromConfig(config.Default().Editor)
}

func slots(t *testing.T) map[string]Slot {
	t.Helper()
	dir := t.TempDir()
	sq, err := OpenSQLite(filepath.Join(dir, "data", "codespace.db"))
	require.NoError(t, err)
	fs, err := OpenFileSlot(filepath.Join(dir, "slots"))
	require.NoError(t, err)
	t.Cleanup(func() {
		sq.Close()
		fs.Close()
	})
	return map[string]Slot{"memory": NewMemSlot(), "sqlite": sq, "file": fs}
}

func TestSlotsGetPutDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range slots(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "k", []byte("one")))
			require.NoError(t, s.Put(ctx, "k", []byte("two")))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))

			require.NoError(t, s.Delete(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func buildStore(t *testing.T) *content.Store {
	t.Helper()
	s := content.NewStore("Demo", &content.SeqGen{})
	src, err := s.CreateFolder("src", "")
	require.NoError(t, err)
	sub, err := s.CreateFolder("lib", src.ID)
	require.NoError(t, err)
	a, err := s.CreateFileWithContent("index", "html", "", "<h1>x</h1>")
	require.NoError(t, err)
	b, err := s.CreateFileWithContent("app", "js", sub.ID, "go()")
	require.NoError(t, err)
	_, err = s.CreateFile("notes", "md", src.ID)
	require.NoError(t, err)
	_, err = s.Reorder(content.KindFolder, src.ID, content.Down)
	require.NoError(t, err)
	_, _ = s.Activate(a.ID)
	_, _ = s.Activate(b.ID)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, slot := range slots(t) {
		t.Run(name, func(t *testing.T) {
			s := buildStore(t)
			p := NewPersister(slot, testKey, defaults(), "My Project")
			_, err := p.Save(ctx, s, defaults())
			require.NoError(t, err)

			loaded, warns := p.Load(ctx)
			assert.Empty(t, warns)
			assert.False(t, loaded.Fresh)

			want := s.State()
			got := loaded.State
			assert.Equal(t, want.ProjectName, got.ProjectName)
			assert.Equal(t, want.Files, got.Files)
			assert.Equal(t, want.Folders, got.Folders)
			assert.Equal(t, want.OpenTabs, got.OpenTabs)
			assert.Equal(t, want.ActiveID, got.ActiveID)
			assert.Equal(t, want.Expanded, got.Expanded)
			assert.Equal(t, defaults(), loaded.Settings)
		})
	}
}

func TestLoadMissingSlotIsFresh(t *testing.T) {
	p := NewPersister(NewMemSlot(), testKey, defaults(), "My Project")
	s := content.NewStore("", &content.SeqGen{})
	loaded, warns := p.Restore(context.Background(), s)
	assert.True(t, loaded.Fresh)
	assert.Empty(t, warns)
	assert.Len(t, s.Files(), 3)
	assert.Equal(t, "My Project", s.ProjectName())
}

func TestLoadCorruptFallsBack(t *testing.T) {
	ctx := context.Background()
	slot := NewMemSlot()
	require.NoError(t, slot.Put(ctx, testKey, []byte("{not json")))
	p := NewPersister(slot, testKey, defaults(), "My Project")

	loaded, warns := p.Load(ctx)
	assert.True(t, loaded.Fresh)
	require.Len(t, warns, 1)
	assert.Equal(t, WarnParse, warns[0].Code)

	var perr *ParseError
	assert.True(t, errors.As(loaded.Err, &perr))
}

func TestLoadRepairsSnapshot(t *testing.T) {
	doc := `{
	  "projectName": "P",
	  "files": [
	    {"id": "f1", "name": "index", "extension": "html", "content": "a", "folderId": "gone"},
	    {"id": "f2", "name": "", "extension": "css"},
	    {"id": "f3", "extension": "js"},
	    {"id": "f4", "name": "app", "extension": "js", "folderId": "d1", "order": 3},
	    {"id": "f5", "name": "index", "extension": "html", "folderId": null}
	  ],
	  "folders": [
	    {"id": "d1", "name": "src", "parentId": null},
	    {"id": "d2", "name": "lost", "parentId": "nowhere"},
	    {"id": "d3", "parentId": null},
	    {"id": "c1", "name": "loop1", "parentId": "c2"},
	    {"id": "c2", "name": "loop2", "parentId": "c1"}
	  ],
	  "expandedFolders": ["d1", "zz"],
	  "settings": {"theme": "vs-light", "fontSize": 16},
	  "openTabs": ["f1", "f2", "f4", "f1"],
	  "currentFileId": "f3"
	}`
	loaded, warns, err := Decode([]byte(doc), defaults(), "My Project")
	require.NoError(t, err)
	st := loaded.State

	ids := func() []string {
		var out []string
		for _, f := range st.Files {
			out = append(out, f.ID)
		}
		return out
	}
	assert.Equal(t, []string{"f1", "f4", "f5"}, ids())
	assert.Equal(t, content.Ref(""), st.Files[0].FolderID)
	assert.Equal(t, content.Ref("d1"), st.Files[1].FolderID)
	assert.Equal(t, 3, st.Files[1].Order)
	// f1 and f5 collide at root after repair
	assert.Equal(t, "index-2", st.Files[2].Name)

	require.Len(t, st.Folders, 4)
	for _, f := range st.Folders {
		if f.ID == "d2" {
			assert.Equal(t, content.Ref(""), f.ParentID)
		}
	}
	assert.Equal(t, []string{"d1"}, st.Expanded)
	assert.Equal(t, []string{"f1", "f4"}, st.OpenTabs)
	assert.Equal(t, "", st.ActiveID)
	assert.Equal(t, "vs-light", loaded.Settings.Theme)
	assert.Equal(t, 16, loaded.Settings.FontSize)
	assert.True(t, loaded.Settings.AutoSave)

	codes := map[string]bool{}
	for _, w := range warns {
		codes[w.Code] = true
	}
	for _, c := range []string{WarnDroppedFile, WarnDroppedDir, WarnOrphan, WarnCycle, WarnDuplicate, WarnPrunedTab, WarnActiveMissed} {
		assert.True(t, codes[c], "expected warning %s", c)
	}

	// the repaired state is a valid store
	s := content.NewStore("", nil)
	s.Restore(st)
	p := s.FolderPath("c2")
	assert.NotEmpty(t, p)
}

func TestLoadMissingOrderFallsBackToName(t *testing.T) {
	doc := `{
	  "projectName": "P",
	  "files": [
	    {"id": "f1", "name": "zeta", "extension": "css"},
	    {"id": "f2", "name": "alpha", "extension": "js", "folderId": null},
	    {"id": "f3", "name": "mid", "extension": "html", "order": -1}
	  ],
	  "folders": [
	    {"id": "d1", "name": "lib"},
	    {"id": "d2", "name": "app", "parentId": null, "order": 0}
	  ]
	}`
	loaded, _, err := Decode([]byte(doc), defaults(), "P")
	require.NoError(t, err)

	files := append([]content.File(nil), loaded.State.Files...)
	for _, f := range files {
		if f.ID != "f3" {
			assert.Equal(t, 0, f.Order, f.ID)
		}
	}
	content.SortFiles(files)
	var names []string
	for _, f := range files {
		names = append(names, f.FullName())
	}
	assert.Equal(t, []string{"mid.html", "alpha.js", "zeta.css"}, names)

	folders := append([]content.Folder(nil), loaded.State.Folders...)
	content.SortFolders(folders)
	require.Len(t, folders, 2)
	assert.Equal(t, "app", folders[0].Name)
	assert.Equal(t, content.Ref(""), folders[1].ParentID)
}

func TestFileSlotWatch(t *testing.T) {
	fs, err := OpenFileSlot(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	ch, cancel, err := fs.Watch("codespace-preview-update")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, fs.Put(context.Background(), "codespace-preview-update", []byte(`{}`)))
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no watch event")
	}
}

func TestOpenDriver(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	assert.Error(t, err)
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
