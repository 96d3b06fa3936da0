// internal/viewer/routes/export.go

package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/petervdpas/codespace/internal/export"
)

func registerExportRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/export?type=zip|html|json  download the project
	handleGet(mux, "/api/export", func(w http.ResponseWriter, r *http.Request) {
		t := export.Type(r.URL.Query().Get("type"))
		if t == "" {
			t = export.TypeZip
		}
		art, err := export.Build(d.Store, t, export.Options{Minify: d.Cfg.Preview.Minify, Now: d.Now})
		if err != nil {
			if errors.Is(err, export.ErrEmptyProject) || errors.Is(err, export.ErrNoWebSources) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			var ee *export.Error
			if errors.As(err, &ee) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Errorf("export: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Infof("exported %s (%d files, %d bytes)", art.Name, art.Files, len(art.Data))
		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.Name))
		_, _ = w.Write(art.Data)
	})

	// POST /api/import  multipart "file" or a raw zip body
	mux.HandleFunc("/api/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !isLocalRequest(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var src io.Reader = r.Body
		if r.Header.Get("Content-Type") != "application/zip" {
			if err := r.ParseMultipartForm(export.MaxArchiveSize); err != nil {
				http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
				return
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer file.Close()
			src = file
		}

		data, err := io.ReadAll(io.LimitReader(src, export.MaxArchiveSize+1))
		if err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if len(data) > export.MaxArchiveSize {
			http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
			return
		}

		d.serial.Lock()
		res, err := export.Import(data, d.Store)
		d.serial.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, res)
	})
}
