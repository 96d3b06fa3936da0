package tree

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petervdpas/codespace/internal/content"
)

func names(ns []Node) []string {
	var out []string
	for _, n := range ns {
		out = append(out, n.Name)
	}
	return out
}

func TestBuildSortsFoldersFirst(t *testing.T) {
	s := content.NewStore("p", &content.SeqGen{})
	_, _ = s.CreateFile("b", "js", "")
	_, _ = s.CreateFile("a", "js", "")
	zeta, _ := s.CreateFolder("zeta", "")
	_, _ = s.CreateFolder("alpha", "")
	_, _ = s.CreateFile("inner", "css", zeta.ID)

	// equal order falls back to name
	st := s.State()
	for i := range st.Files {
		st.Files[i].Order = 0
	}
	for i := range st.Folders {
		st.Folders[i].Order = 0
	}
	s.Restore(st)

	nodes := Build(s)
	assert.Equal(t, []string{"alpha", "zeta", "a.js", "b.js"}, names(nodes))
	assert.Equal(t, content.KindFolder, nodes[0].Kind)
	require.Len(t, nodes[1].Children, 1)
	assert.Equal(t, 1, nodes[1].Children[0].Depth)
	assert.Equal(t, "css", nodes[1].Children[0].Language)
}

func TestFlattenHidesCollapsed(t *testing.T) {
	s := content.NewStore("p", &content.SeqGen{})
	src, _ := s.CreateFolder("src", "")
	_, _ = s.CreateFile("main", "js", src.ID)

	assert.Equal(t, []string{"src", "main.js"}, names(Flatten(Build(s))))

	res := Toggle(s, src.ID)
	require.True(t, res.OK)
	assert.Equal(t, []string{"src"}, names(Flatten(res.Nodes)))
}

func TestDropCyclicSurfacesNotice(t *testing.T) {
	s := content.NewStore("p", &content.SeqGen{})
	a, _ := s.CreateFolder("a", "")
	b, _ := s.CreateFolder("b", a.ID)

	res := Drop(s, content.KindFolder, a.ID, b.ID)
	assert.False(t, res.OK)
	assert.Equal(t, content.LevelError, res.Notice.Level)
	assert.Equal(t, "Cannot move folder", res.Notice.Title)
	assert.Equal(t, []string{"a"}, names(res.Nodes))

	f, _ := s.CreateFile("x", "js", "")
	res = Drop(s, content.KindFile, f.ID, b.ID)
	assert.True(t, res.OK)
	assert.Contains(t, res.Notice.Message, "moved to b")
}

func TestCommitRenameFailureRerendersOriginal(t *testing.T) {
	s := content.NewStore("p", &content.SeqGen{})
	a, _ := s.CreateFile("a", "js", "")
	_, _ = s.CreateFile("b", "js", "")

	res := CommitRename(s, content.KindFile, a.ID, "b")
	assert.False(t, res.OK)
	assert.Equal(t, "Name already in use", res.Notice.Title)
	assert.Equal(t, []string{"a.js", "b.js"}, names(res.Nodes))

	res = CommitRename(s, content.KindFile, a.ID, "c")
	assert.True(t, res.OK)
	assert.Equal(t, []string{"c.js", "b.js"}, names(res.Nodes))
}

func TestTextAndSummary(t *testing.T) {
	s := content.NewStore("Demo", &content.SeqGen{})
	src, _ := s.CreateFolder("src", "")
	lib, _ := s.CreateFolder("lib", src.ID)
	_, _ = s.CreateFile("util", "js", lib.ID)
	_, _ = s.CreateFile("app", "js", src.ID)
	_, _ = s.CreateFile("index", "html", "")

	want := strings.Join([]string{
		"├── src/",
		"│   ├── lib/",
		"│   │   └── util.js",
		"│   └── app.js",
		"└── index.html",
		"",
	}, "\n")
	assert.Equal(t, want, Text(Build(s)))

	sum := Summary(s, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Contains(t, sum, "# Project Structure: Demo")
	assert.Contains(t, sum, "- **Total files:** 3")
	assert.Contains(t, sum, "- **Total folders:** 2")
	assert.Contains(t, sum, "  - `.js`: 2 file(s)\n  - `.html`: 1 file(s)")

	assert.Equal(t, "(empty project)\n", Text(nil))
}
