// Package viewer serves the editor UI, the JSON API and the preview
// surfaces over HTTP.
package viewer

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/petervdpas/codespace/internal/sdk"
	viewerassets "github.com/petervdpas/codespace/internal/ui/assets"
	"github.com/petervdpas/codespace/internal/ui/render"
	"github.com/petervdpas/codespace/internal/util"
	"github.com/petervdpas/codespace/internal/viewer/routes"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("viewer")

// Handler builds the full route table.
func Handler(d routes.Deps) (http.Handler, error) {
	if err := render.InitTemplates(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	mux.Handle("/assets/", http.StripPrefix("/assets/",
		noCache(viewerassets.Handler()),
	))
	mux.Handle("/sdk/", http.StripPrefix("/sdk/", sdk.Handler()))

	routes.Register(mux, d)

	return noCachePrefixes(mux, "/preview", "/api/preview"), nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func Start(ctx context.Context, addr string, d routes.Deps, ready func(net.Addr)) error {
	h, err := Handler(d)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when ctx does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Infof("viewer listening on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), util.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("viewer shutdown: %v", err)
		return srv.Close()
	}
	return nil
}
