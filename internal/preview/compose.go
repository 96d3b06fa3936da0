package preview

import (
	"fmt"
	"html"
	"strings"
)

// EmptyDocument is served when there is no html source.
const EmptyDocument = `<!DOCTYPE html><html><head><title>Preview</title></head><body></body></html>`

// Renderer converts markdown to a complete html document.
type Renderer interface {
	Render(src string) (string, error)
}

// InjectCSS places css in a style block before </head>, else right after
// <head>, else in a new head at the front.
func InjectCSS(doc, css string) string {
	tag := "<style>" + css + "</style>"
	switch {
	case strings.Contains(doc, "</head>"):
		return strings.Replace(doc, "</head>", tag+"</head>", 1)
	case strings.Contains(doc, "<head>"):
		return strings.Replace(doc, "<head>", "<head>"+tag, 1)
	default:
		return "<head>" + tag + "</head>" + doc
	}
}

// InjectJS places js in a script block before </body>, else right after
// <body>, else at the end.
func InjectJS(doc, js string) string {
	tag := "<script>" + js + "</script>"
	switch {
	case strings.Contains(doc, "</body>"):
		return strings.Replace(doc, "</body>", tag+"</body>", 1)
	case strings.Contains(doc, "<body>"):
		return strings.Replace(doc, "<body>", "<body>"+tag, 1)
	default:
		return doc + tag
	}
}

// ErrorDocument renders a failure inline.
func ErrorDocument(err error) string {
	return "<html><body><p>Markdown render failed: " + html.EscapeString(err.Error()) + "</p></body></html>"
}

func renderSafe(r Renderer, src string) (doc string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()
	return r.Render(src)
}

// Compose builds the preview document. It never fails: a render error
// becomes an error document and missing sources degrade to EmptyDocument.
func Compose(src Sources, md Renderer) string {
	if src.Markdown() && md != nil {
		doc, err := renderSafe(md, src.MD.Content)
		if err != nil {
			log.Warnf("markdown render %s: %v", src.MD.ID, err)
			return ErrorDocument(err)
		}
		return doc
	}

	doc := EmptyDocument
	if src.HTML != nil {
		doc = src.HTML.Content
	}
	if src.CSS != nil && src.CSS.Content != "" {
		doc = InjectCSS(doc, src.CSS.Content)
	}
	if src.JS != nil && src.JS.Content != "" {
		doc = InjectJS(doc, src.JS.Content)
	}
	return doc
}
