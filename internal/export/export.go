// Package export writes a project out as an archive, a single page, a
// JSON document or a directory tree, and reads archives back in.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/tree"
	"github.com/petervdpas/codespace/internal/util"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var log = logging.Logger("export")

type Type string

const (
	TypeZip  Type = "zip"
	TypeHTML Type = "html"
	TypeJSON Type = "json"
	TypeDir  Type = "dir"
)

// Version is written into structured exports.
const Version = "1.0"

var (
	ErrEmptyProject = errors.New("there are no files to export, create at least one file first")
	ErrNoWebSources = errors.New("no html, css or js file found to export")
)

// Error wraps any failure of an export.
type Error struct {
	Type Type
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("export %s: %v", e.Type, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func fail(t Type, err error) error { return &Error{Type: t, Err: err} }

// Artifact is a finished export ready to be downloaded or written.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	// Files is the number of project files included.
	Files int
}

type Options struct {
	Minify bool
	Now    func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// FileName derives a download name from the project name.
func FileName(project, ext string) string {
	return util.SafeFileName(project) + "." + ext
}

// Build produces the artifact for an in-memory export type.
func Build(s *content.Store, t Type, opts Options) (Artifact, error) {
	switch t {
	case TypeZip:
		return Zip(s, opts)
	case TypeHTML:
		return SingleHTML(s, opts)
	case TypeJSON:
		return JSON(s, opts)
	default:
		return Artifact{}, fail(t, fmt.Errorf("unsupported export type %q (supported: zip, html, json)", t))
	}
}

// Zip archives every file at its folder path plus the tree summary as
// STRUCTURE.md and STRUCTURE.txt.
func Zip(s *content.Store, opts Options) (Artifact, error) {
	files := s.Files()
	if len(files) == 0 {
		return Artifact{}, fail(TypeZip, ErrEmptyProject)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, body string) error {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = fw.Write([]byte(body))
		return err
	}

	n := 0
	for _, f := range files {
		if f.Name == "" || f.Extension == "" {
			log.Warnf("skipping %s: missing name or extension", f.ID)
			continue
		}
		p, err := s.FilePath(f.ID)
		if err != nil {
			return Artifact{}, fail(TypeZip, err)
		}
		if err := add(p, f.Content); err != nil {
			return Artifact{}, fail(TypeZip, err)
		}
		n++
	}

	summary := tree.Summary(s, opts.now())
	for _, name := range []string{"STRUCTURE.md", "STRUCTURE.txt"} {
		if err := add(name, summary); err != nil {
			return Artifact{}, fail(TypeZip, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fail(TypeZip, err)
	}

	return Artifact{
		Name:        FileName(s.ProjectName(), "zip"),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
		Files:       n,
	}, nil
}

const exportShell = `<!DOCTYPE html><html><head><title>Exported Project</title></head><body></body></html>`

func firstOf(files []content.File, ext string) *content.File {
	for i := range files {
		if files[i].Extension == ext {
			return &files[i]
		}
	}
	return nil
}

// SingleHTML inlines the project's first stylesheet and script into its
// first page.
func SingleHTML(s *content.Store, opts Options) (Artifact, error) {
	files := s.Files()
	page, sheet, script := firstOf(files, "html"), firstOf(files, "css"), firstOf(files, "js")
	if page == nil && sheet == nil && script == nil {
		return Artifact{}, fail(TypeHTML, ErrNoWebSources)
	}

	doc := exportShell
	if page != nil {
		doc = page.Content
	}
	if !strings.Contains(doc, "<head>") {
		doc = strings.Replace(doc, "<html>", "<html><head></head>", 1)
	}
	if !strings.Contains(doc, "<body>") {
		doc = strings.Replace(doc, "</head>", "</head><body></body>", 1)
	}
	if sheet != nil && sheet.Content != "" {
		doc = preview.InjectCSS(doc, sheet.Content)
	}
	if script != nil && script.Content != "" {
		doc = preview.InjectJS(doc, script.Content)
	}

	if opts.Minify {
		doc = minifyDocument(doc)
	}

	n := 0
	for _, f := range []*content.File{page, sheet, script} {
		if f != nil {
			n++
		}
	}
	return Artifact{
		Name:        FileName(s.ProjectName(), "html"),
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(doc),
		Files:       n,
	}, nil
}

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m
}()

// minifyDocument falls back to the original on error.
func minifyDocument(doc string) string {
	out, err := minifier.String("text/html", doc)
	if err != nil {
		log.Warnf("minify warning: %v (using original)", err)
		return doc
	}
	return out
}

// Document is the structured export.
type Document struct {
	ProjectName string         `json:"projectName"`
	Files       []content.File `json:"files"`
	ExportDate  string         `json:"exportDate"`
	Version     string         `json:"version"`
}

func JSON(s *content.Store, opts Options) (Artifact, error) {
	files := s.Files()
	if len(files) == 0 {
		return Artifact{}, fail(TypeJSON, ErrEmptyProject)
	}
	name := s.ProjectName()
	if name == "" {
		name = "My Project"
	}
	doc := Document{
		ProjectName: name,
		Files:       files,
		ExportDate:  opts.now().UTC().Format(time.RFC3339),
		Version:     Version,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, fail(TypeJSON, err)
	}
	return Artifact{
		Name:        FileName(s.ProjectName(), "json"),
		ContentType: "application/json",
		Data:        b,
		Files:       len(files),
	}, nil
}
