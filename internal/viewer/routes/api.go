// internal/viewer/routes/api.go

package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/petervdpas/codespace/internal/command"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/lint"
	"github.com/petervdpas/codespace/internal/tree"
	"github.com/petervdpas/codespace/internal/ui/viewmodels"
)

type commandRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

type stateResponse struct {
	ProjectName string      `json:"projectName"`
	Rows        []tree.Node `json:"rows"`
	Tabs        []tabJSON   `json:"tabs"`
	ActiveID    string      `json:"activeId"`
	Modified    bool        `json:"modified"`
	Revision    uint64      `json:"revision"`
	SaveStatus  string      `json:"saveStatus"`
	Cursor      string      `json:"cursor"`
	Pinned      string      `json:"pinned,omitempty"`
}

type tabJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Modified bool   `json:"modified"`
}

func tabsJSON(rows []viewmodels.TabRow) []tabJSON {
	out := make([]tabJSON, len(rows))
	for i, t := range rows {
		out[i] = tabJSON{ID: t.ID, Name: t.Name, Active: t.Active, Modified: t.Modified}
	}
	return out
}

func registerAPIRoutes(mux *http.ServeMux, d Deps) {
	started := d.now()

	handleGet(mux, "/api/state", func(w http.ResponseWriter, r *http.Request) {
		resp := stateResponse{
			ProjectName: d.Store.ProjectName(),
			Rows:        tree.Flatten(tree.Build(d.Store)),
			Tabs:        tabsJSON(tabRows(d)),
			ActiveID:    d.Store.ActiveFileID(),
			Modified:    d.Store.Modified(),
			Revision:    d.Store.Revision(),
			SaveStatus:  d.saveStatus(),
			Cursor:      d.Session.StatusLine(),
		}
		if d.Preview != nil {
			resp.Pinned = d.Preview.Pinned()
		}
		if resp.Rows == nil {
			resp.Rows = []tree.Node{}
		}
		writeJSON(w, resp)
	})

	handleGet(mux, "/api/tree", func(w http.ResponseWriter, r *http.Request) {
		nodes := tree.Build(d.Store)
		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(tree.Text(nodes)))
			return
		}
		if nodes == nil {
			nodes = []tree.Node{}
		}
		writeJSON(w, nodes)
	})

	handleGet(mux, "/api/buffer", func(w http.ResponseWriter, r *http.Request) {
		if d.Buffer == nil {
			http.Error(w, "no editor buffer", http.StatusNotFound)
			return
		}
		writeJSON(w, d.Buffer.State())
	})

	// GET /api/file?id=  (raw=1 serves the content with its own type)
	handleGet(mux, "/api/file", func(w http.ResponseWriter, r *http.Request) {
		f, err := d.Store.File(r.URL.Query().Get("id"))
		if err != nil {
			storeError(w, err)
			return
		}
		if r.URL.Query().Get("raw") == "1" {
			data := []byte(f.Content)
			w.Header().Set("Content-Type", contentTypeFor(f.Extension, data))
			w.Header().Set("X-Content-Type-Options", "nosniff")
			_, _ = w.Write(data)
			return
		}
		path, _ := d.Store.FilePath(f.ID)
		writeJSON(w, map[string]any{
			"file":     f,
			"path":     path,
			"language": content.LanguageFor(f.Extension),
		})
	})

	handleGet(mux, "/api/lint", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if _, err := d.Store.File(id); err != nil {
			storeError(w, err)
			return
		}
		ms := d.Session.ValidateNow(id)
		if ms == nil {
			ms = []lint.Marker{}
		}
		writeJSON(w, map[string]any{
			"markers": ms,
			"counts":  lint.Count(ms),
		})
	})

	handlePost(mux, "/api/command", func(w http.ResponseWriter, r *http.Request, req commandRequest) {
		if req.Name == "" {
			http.Error(w, "missing command name", http.StatusBadRequest)
			return
		}
		d.serial.Lock()
		res := d.Commands.Dispatch(r.Context(), req.Name, req.Payload)
		d.serial.Unlock()
		writeJSON(w, res)
	})

	handleGet(mux, "/api/status", func(w http.ResponseWriter, r *http.Request) {
		files, folders, byExt := tree.Stats(d.Store)
		resp := map[string]any{
			"projectName": d.Store.ProjectName(),
			"files":       files,
			"folders":     folders,
			"byExtension": byExt,
			"revision":    d.Store.Revision(),
			"modified":    d.Store.Modified(),
			"saveStatus":  d.saveStatus(),
			"commands":    command.Names(),
			"uptime":      d.now().Sub(started).Round(time.Second).String(),
		}
		if saved := d.Commands.LastSaved(); !saved.IsZero() {
			resp["lastSaved"] = saved.Format(time.RFC3339)
		}
		if d.Surfaces != nil {
			resp["surfaces"] = d.Surfaces.Snapshot()
		}
		if d.Hub != nil {
			resp["subscribers"] = d.Hub.Subscribers()
		}
		if d.Preview != nil {
			resp["previewHandles"] = d.Preview.Cache().Outstanding()
			resp["recomputes"] = d.Preview.Recomputes()
		}
		writeJSON(w, resp)
	})
}
