// Package preview turns the project into one renderable document and
// keeps preview surfaces in sync with it.
package preview

import (
	"strings"

	"github.com/petervdpas/codespace/internal/content"
)

// Sources are the files a preview document is built from. Any of them
// may be nil.
type Sources struct {
	HTML *content.File
	CSS  *content.File
	JS   *content.File
	MD   *content.File
}

func idOrNone(f *content.File) string {
	if f == nil {
		return "none"
	}
	return f.ID
}

// Key identifies the source combination for the handle cache.
func (s Sources) Key() string {
	return strings.Join([]string{idOrNone(s.HTML), idOrNone(s.CSS), idOrNone(s.JS), idOrNone(s.MD)}, "|")
}

// IDs lists the file ids behind the sources.
func (s Sources) IDs() []string {
	var out []string
	for _, f := range []*content.File{s.HTML, s.CSS, s.JS, s.MD} {
		if f != nil {
			out = append(out, f.ID)
		}
	}
	return out
}

// Markdown reports whether the markdown path applies.
func (s Sources) Markdown() bool {
	return s.MD != nil && s.MD.Content != ""
}

func first(files []content.File, match func(content.File) bool) *content.File {
	for i := range files {
		if match(files[i]) {
			f := files[i]
			return &f
		}
	}
	return nil
}

func hasExt(ext string) func(content.File) bool {
	return func(f content.File) bool { return f.Extension == ext }
}

// related finds the companion of page with extension ext: same basename
// in the same folder, then any in that folder, then any at the root.
func related(files []content.File, page content.File, ext string) *content.File {
	if f := first(files, func(f content.File) bool {
		return f.Extension == ext && f.Name == page.Name && f.FolderID == page.FolderID
	}); f != nil {
		return f
	}
	if page.FolderID != "" {
		if f := first(files, func(f content.File) bool {
			return f.Extension == ext && f.FolderID == page.FolderID
		}); f != nil {
			return f
		}
	}
	return first(files, func(f content.File) bool { return f.Extension == ext && f.FolderID == "" })
}

// Resolve picks the preview sources. A pinned html page pulls in its
// related stylesheet and script; a pinned markdown file becomes the
// markdown source. Without a usable pin the first file of each kind in
// creation order is used.
func Resolve(s *content.Store, pinnedID string) Sources {
	files := s.Files()
	var src Sources

	if pinnedID != "" {
		if pinned := first(files, func(f content.File) bool { return f.ID == pinnedID }); pinned != nil {
			switch pinned.Extension {
			case "html", "htm":
				src.HTML = pinned
				src.CSS = related(files, *pinned, "css")
				src.JS = related(files, *pinned, "js")
			case "md":
				src.MD = pinned
			}
		}
	}
	if src.HTML == nil {
		src.HTML = first(files, hasExt("html"))
		src.CSS = first(files, hasExt("css"))
		src.JS = first(files, hasExt("js"))
	}
	if src.MD == nil {
		src.MD = first(files, hasExt("md"))
	}
	return src
}
