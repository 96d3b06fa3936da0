// internal/viewer/routes/register.go
package routes

import (
	"net/http"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/command"
	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/editor"
	"github.com/petervdpas/codespace/internal/format"
	"github.com/petervdpas/codespace/internal/lua"
	"github.com/petervdpas/codespace/internal/preview"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("viewer")

type Logs interface {
	ServeLogsJSON(w http.ResponseWriter, r *http.Request)
	ServeLogsSSE(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Store    *content.Store
	Session  *editor.Session
	Buffer   *editor.Buffer
	Commands *command.Dispatcher
	Preview  *preview.Pipeline
	Hub      *preview.Hub
	Poll     *preview.SlotTransport
	Surfaces *preview.SurfaceTable
	Formats  *format.Registry
	Plugins  *lua.Engine // nil when the lua plugin is disabled

	Cfg  config.Config
	Logs Logs

	// SaveStatus renders the status bar label.
	SaveStatus func() string

	BaseURL string
	Debug   bool
	Now     func() time.Time

	// serial orders commands and imports.
	serial *sync.Mutex
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) saveStatus() string {
	if d.SaveStatus == nil {
		return ""
	}
	return d.SaveStatus()
}

func Register(mux *http.ServeMux, d Deps) {
	d.serial = &sync.Mutex{}

	registerAPILogRoutes(mux, d)

	registerHomeRoutes(mux, d)
	registerAPIRoutes(mux, d)
	registerPreviewRoutes(mux, d)
	registerExportRoutes(mux, d)
}
