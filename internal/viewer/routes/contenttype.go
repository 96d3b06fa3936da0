package routes

import (
	"mime"
	"net/http"

	"github.com/petervdpas/codespace/internal/content"
)

// contentTypeFor returns a browser-safe Content-Type for a file extension.
// Browser-enforced types are pinned instead of sniffed.
func contentTypeFor(ext string, data []byte) string {
	ext = content.NormalizeExt(ext)

	switch ext {
	case "css":
		return "text/css; charset=utf-8"
	case "js":
		return "application/javascript; charset=utf-8"
	case "html", "htm":
		return "text/html; charset=utf-8"
	case "svg":
		return "image/svg+xml"
	case "md", "txt", "ts", "py", "go", "php", "sql", "yaml", "yml":
		return "text/plain; charset=utf-8"
	}

	if ext != "" {
		if mt := mime.TypeByExtension("." + ext); mt != "" {
			return mt
		}
	}
	return http.DetectContentType(data)
}
