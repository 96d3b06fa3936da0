// internal/viewer/routes/preview.go

package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/ui/render"
	"github.com/petervdpas/codespace/internal/ui/viewmodels"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	sseHeartbeat = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

func surfaceKind(s string) (preview.SurfaceKind, bool) {
	switch k := preview.SurfaceKind(s); k {
	case preview.SurfaceFrame, preview.SurfacePopup, preview.SurfaceTab:
		return k, true
	case "":
		return preview.SurfaceTab, true
	}
	return "", false
}

func registerPreviewRoutes(mux *http.ServeMux, d Deps) {
	handleGet(mux, "/preview", func(w http.ResponseWriter, r *http.Request) {
		kind, ok := surfaceKind(r.URL.Query().Get("kind"))
		if !ok {
			http.Error(w, "unknown surface kind", http.StatusBadRequest)
			return
		}
		beat := d.Cfg.Preview.SurfaceTTLSeconds * 1000 / 3
		if beat <= 0 {
			beat = 5000
		}
		render.RenderStandalone(w, "preview.surface", viewmodels.PreviewVM{
			BaseVM:      baseVM("Preview", "preview", "", d),
			Kind:        string(kind),
			HeartbeatMs: beat,
		})
	})

	// GET /preview/h/<handle>  serves an issued document until it is revoked.
	handleGet(mux, "/preview/h/", func(w http.ResponseWriter, r *http.Request) {
		h := preview.Handle(strings.TrimPrefix(r.URL.Path, "/preview/h/"))
		doc, ok := d.Preview.Cache().Get(h)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc))
	})

	handleGet(mux, "/preview/doc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(d.Preview.Document()))
	})

	handlePost(mux, "/api/preview/surfaces", func(w http.ResponseWriter, r *http.Request, req struct {
		Kind      string `json:"kind"`
		Transport string `json:"transport"`
	}) {
		kind, ok := surfaceKind(req.Kind)
		if !ok {
			http.Error(w, "unknown surface kind", http.StatusBadRequest)
			return
		}
		if req.Transport == "" {
			req.Transport = "hub"
		}
		id := d.Surfaces.Register(kind, req.Transport)
		log.Debugf("preview surface %s registered (%s)", id, kind)
		writeJSON(w, map[string]string{"id": id})
	})

	handlePost(mux, "/api/preview/heartbeat", func(w http.ResponseWriter, r *http.Request, req struct {
		ID string `json:"id"`
	}) {
		writeJSON(w, map[string]bool{"known": d.Surfaces.Touch(req.ID)})
	})

	handlePost(mux, "/api/preview/close", func(w http.ResponseWriter, r *http.Request, req struct {
		ID string `json:"id"`
	}) {
		d.Surfaces.Remove(req.ID)
		writeJSON(w, map[string]string{"status": "ok"})
	})

	handleGet(mux, "/api/preview/surfaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Surfaces.Snapshot())
	})

	// GET /api/preview/poll?since=<ms>  200 with the newer message, 204 otherwise.
	handleGet(mux, "/api/preview/poll", func(w http.ResponseWriter, r *http.Request) {
		since, err := queryInt64(r, "since")
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		m, ok, err := d.Poll.Poll(r.Context(), since)
		if err != nil {
			log.Warnf("preview poll: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, m)
	})

	handleGet(mux, "/api/preview/stream", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		sseHeaders(w)

		ch, cancel := d.Hub.Subscribe()
		defer cancel()

		// A new subscriber is a ready surface.
		m := d.Preview.Ready(r.Context())
		if err := writeSSE(w, m); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				_, _ = w.Write([]byte(": ping\n\n"))
				flusher.Flush()
			case m, ok := <-ch:
				if !ok {
					return
				}
				if err := writeSSE(w, m); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})

	handleGet(mux, "/ws/preview", func(w http.ResponseWriter, r *http.Request) {
		if !isLocalRequest(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		surface := r.URL.Query().Get("surface")

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("preview websocket upgrade: %v", err)
			return
		}
		defer conn.Close()
		log.Debugf("preview websocket connected (surface %q)", surface)

		ch, cancel := d.Hub.Subscribe()
		defer cancel()

		ctx := r.Context()
		done := make(chan struct{})

		// Reader: heartbeats and ready requests. Replies go out through the
		// hub so this goroutine never writes to conn.
		go func() {
			defer close(done)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if surface != "" {
					d.Surfaces.Touch(surface)
				}
				var msg struct {
					Type string `json:"type"`
				}
				if json.Unmarshal(data, &msg) == nil && msg.Type == preview.TypeReady {
					d.Preview.Ready(ctx)
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				log.Debugf("preview websocket closed (surface %q)", surface)
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(m); err != nil {
					return
				}
			}
		}
	})
}
