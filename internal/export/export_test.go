package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/petervdpas/codespace/internal/content"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = Options{Now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }}

func project(t *testing.T) *content.Store {
	t.Helper()
	s := content.NewStore("My: Project?", &content.SeqGen{})
	src, err := s.CreateFolder("src", "")
	require.NoError(t, err)
	lib, err := s.CreateFolder("lib", src.ID)
	require.NoError(t, err)
	_, err = s.CreateFileWithContent("index", "html", "", "<html><head></head><body><p>hi</p></body></html>")
	require.NoError(t, err)
	_, err = s.CreateFileWithContent("style", "css", src.ID, "p { color: red; }")
	require.NoError(t, err)
	_, err = s.CreateFileWithContent("app", "js", lib.ID, "console.log(1)")
	require.NoError(t, err)
	return s
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "My_ Project_.zip", FileName("My: Project?", "zip"))
	assert.Equal(t, "a_b_c.html", FileName(`a/b\c`, "html"))
	assert.Equal(t, "project.json", FileName("  ", "json"))
}

func TestZip(t *testing.T) {
	s := project(t)
	a, err := Zip(s, fixed)
	require.NoError(t, err)
	assert.Equal(t, "My_ Project_.zip", a.Name)
	assert.Equal(t, 3, a.Files)

	entries := readZip(t, a.Data)
	assert.Equal(t, "p { color: red; }", entries["src/style.css"])
	assert.Equal(t, "console.log(1)", entries["src/lib/app.js"])
	assert.Contains(t, entries, "index.html")
	assert.Contains(t, entries["STRUCTURE.md"], "Total files:** 3")
	assert.Equal(t, entries["STRUCTURE.md"], entries["STRUCTURE.txt"])
}

func TestEmptyProjectRejected(t *testing.T) {
	s := content.NewStore("empty", &content.SeqGen{})
	for _, typ := range []Type{TypeZip, TypeJSON, TypeHTML} {
		_, err := Build(s, typ, fixed)
		var ee *Error
		require.ErrorAs(t, err, &ee, typ)
		assert.Equal(t, typ, ee.Type)
	}
	_, err := Build(s, "tar", fixed)
	assert.ErrorContains(t, err, "unsupported export type")
}

func TestSingleHTML(t *testing.T) {
	s := project(t)
	a, err := SingleHTML(s, fixed)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Files)
	assert.Equal(t, "<html><head><style>p { color: red; }</style></head><body><p>hi</p><script>console.log(1)</script></body></html>", string(a.Data))

	sheetOnly := content.NewStore("x", &content.SeqGen{})
	_, err = sheetOnly.CreateFileWithContent("a", "css", "", "b{}")
	require.NoError(t, err)
	a, err = SingleHTML(sheetOnly, fixed)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html><head><title>Exported Project</title><style>b{}</style></head><body></body></html>", string(a.Data))

	bare := content.NewStore("x", &content.SeqGen{})
	_, err = bare.CreateFileWithContent("a", "html", "", "<html><p>x</p></html>")
	require.NoError(t, err)
	_, err = bare.CreateFileWithContent("a", "js", "", "go()")
	require.NoError(t, err)
	a, err = SingleHTML(bare, fixed)
	require.NoError(t, err)
	assert.Equal(t, "<html><head></head><body></body><p>x</p></html>", strings.Replace(string(a.Data), "<script>go()</script>", "", 1))
}

func TestSingleHTMLMinified(t *testing.T) {
	s := project(t)
	plain, err := SingleHTML(s, fixed)
	require.NoError(t, err)
	small, err := SingleHTML(s, Options{Minify: true})
	require.NoError(t, err)
	assert.Less(t, len(small.Data), len(plain.Data))
	assert.Contains(t, string(small.Data), "color:red")
	assert.Contains(t, string(small.Data), "console.log(1)")
}

func TestJSON(t *testing.T) {
	s := project(t)
	a, err := JSON(s, fixed)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(a.Data, &doc))
	assert.Equal(t, "My: Project?", doc.ProjectName)
	assert.Equal(t, "1.0", doc.Version)
	assert.Equal(t, "2026-03-01T12:00:00Z", doc.ExportDate)
	assert.Len(t, doc.Files, 3)
	assert.Contains(t, string(a.Data), "\n  \"files\": [")
}

func TestToFS(t *testing.T) {
	s := project(t)
	_, err := s.CreateFolder("empty", "")
	require.NoError(t, err)

	fs := memfs.New()
	n, err := ToFS(s, fs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	b, err := util.ReadFile(fs, "src/lib/app.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(b))

	fi, err := fs.Stat("empty")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func zipOf(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImport(t *testing.T) {
	s := content.NewStore("P", &content.SeqGen{})
	_, err := s.CreateFileWithContent("index", "html", "", "old")
	require.NoError(t, err)

	data := zipOf(t, map[string][]byte{
		"site/index.html":     []byte("new"),
		"site/css/a.css":      []byte("a{}"),
		"site/css/deep/b.css": []byte("b{}"),
		"site/../evil.js":     []byte("x"),
		"site/README":         []byte("no extension"),
		"site/STRUCTURE.md":   []byte("summary"),
	})
	res, err := Import(data, s)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Folders)
	assert.ElementsMatch(t, []string{"site/../evil.js", "README"}, res.Skipped)

	f, err := s.File("file_1")
	require.NoError(t, err)
	assert.Equal(t, "new", f.Content)

	paths := map[string]bool{}
	for _, f := range s.Files() {
		p, err := s.FilePath(f.ID)
		require.NoError(t, err)
		paths[p] = true
	}
	assert.Equal(t, map[string]bool{"index.html": true, "css/a.css": true, "css/deep/b.css": true}, paths)
}

func TestImportRejectsOversized(t *testing.T) {
	s := content.NewStore("P", &content.SeqGen{})
	data := zipOf(t, map[string][]byte{
		"ok.txt":  []byte("fine"),
		"big.txt": bytes.Repeat([]byte("a"), MaxEntrySize+1),
	})
	_, err := Import(data, s)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.ErrorContains(t, err, "exceeds 10MB limit")
	assert.Empty(t, s.Files(), "nothing written")

	_, err = Import([]byte("not a zip"), s)
	assert.ErrorContains(t, err, "zip:")
}

func TestZipRoundTrip(t *testing.T) {
	s := project(t)
	a, err := Zip(s, fixed)
	require.NoError(t, err)

	back := content.NewStore("back", &content.SeqGen{})
	res, err := Import(a.Data, back)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	for _, f := range s.Files() {
		p, _ := s.FilePath(f.ID)
		found := false
		for _, g := range back.Files() {
			q, _ := back.FilePath(g.ID)
			if q == p {
				found = true
				assert.Equal(t, f.Content, g.Content)
			}
		}
		assert.True(t, found, p)
	}
}
