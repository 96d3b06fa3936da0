// Package app wires the editor core, the viewer and the housekeeping
// loops for one project directory.
package app

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/util"
	"github.com/petervdpas/codespace/internal/viewer"
	"github.com/petervdpas/codespace/internal/viewer/routes"
)

type Options struct {
	ProjectDir string
	CfgPath    string
	Cfg        config.Config

	// Ready, when set, receives the viewer URL once it is listening.
	Ready func(url string)
}

// Run serves the project until ctx is cancelled. Unsaved changes are
// auto-saved on the way out when auto-save is on.
func Run(ctx context.Context, opt Options) error {
	cfg := opt.Cfg

	logBuf := viewer.NewLogBuffer(800)
	stopFeed := logBuf.Feed()
	defer stopFeed()

	SetupLogging(cfg.Viewer)
	logBanner(opt.ProjectDir, opt.CfgPath)

	svc, err := Open(ctx, opt.ProjectDir, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warnf("close: %v", err)
		}
	}()
	log.Infof("project %q restored (%d files)", svc.Store.ProjectName(), len(svc.Store.Files()))

	status := newSaveStatus(svc.Commands, time.Now())

	var wg sync.WaitGroup
	loops := []func(context.Context){
		status.run,
		func(ctx context.Context) { autoSave(ctx, svc.Store, svc.Commands, svc.Settings) },
		func(ctx context.Context) {
			pruneSurfaces(ctx, svc.Surfaces, time.Duration(cfg.Preview.SurfaceTTLSeconds)*time.Second)
		},
		watchSurfaces(svc.Surfaces, logSurfaceEvent),
	}
	relay, err := relaySlot(svc.Slot, svc.Poll, svc.Hub)
	if err != nil {
		log.Warnf("watch preview slot: %v", err)
	}
	if relay != nil {
		loops = append(loops, relay)
	}
	for _, fn := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	addr, url := NormalizeLocalViewer(cfg.Viewer.HTTPAddr)
	deps := routes.Deps{
		Store:      svc.Store,
		Session:    svc.Session,
		Buffer:     svc.Buffer,
		Commands:   svc.Commands,
		Preview:    svc.Preview,
		Hub:        svc.Hub,
		Poll:       svc.Poll,
		Surfaces:   svc.Surfaces,
		Formats:    svc.Formats,
		Plugins:    svc.Engine,
		Cfg:        cfg,
		Logs:       logBuf,
		SaveStatus: status.String,
		BaseURL:    url,
		Debug:      cfg.Viewer.Debug,
	}

	err = viewer.Start(ctx, addr, deps, func(a net.Addr) {
		u := "http://" + a.String()
		if opt.Ready != nil {
			opt.Ready(u)
		}
		if cfg.Viewer.Open {
			if err := util.OpenURL(u); err != nil {
				log.Warnf("open browser: %v", err)
			}
		}
	})
	wg.Wait()

	if svc.Settings.Get().AutoSave && svc.Store.Modified() {
		res := svc.Commands.Dispatch(context.Background(), "project.save", autoSavePayload)
		if !res.OK && res.Notice != nil {
			log.Warnf("final save: %s", res.Notice.Message)
		}
	}
	log.Info("codespace stopped")
	return err
}
