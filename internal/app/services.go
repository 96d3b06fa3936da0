package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/petervdpas/codespace/internal/command"
	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/editor"
	"github.com/petervdpas/codespace/internal/format"
	luapkg "github.com/petervdpas/codespace/internal/lua"
	"github.com/petervdpas/codespace/internal/luaprefabs"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/storage"
	"github.com/petervdpas/codespace/internal/util"
)

// Services is the editor core wired for one project directory.
type Services struct {
	Dir string
	Cfg config.Config

	Slot      storage.Slot
	Persister *storage.Persister
	Store     *content.Store
	Settings  *command.Settings

	Engine  *luapkg.Engine
	Formats *format.Registry

	Hub      *preview.Hub
	Poll     *preview.SlotTransport
	Surfaces *preview.SurfaceTable
	Preview  *preview.Pipeline

	Buffer   *editor.Buffer
	Session  *editor.Session
	Commands *command.Dispatcher

	// Warnings lists what the snapshot load repaired.
	Warnings []storage.Warning
}

// markdownStyle picks a code highlighting style matching the editor theme.
func markdownStyle(theme string) string {
	switch theme {
	case "vs-dark", "hc-black":
		return "monokai"
	default:
		return "github"
	}
}

// Project is a restored store and the slot behind it.
type Project struct {
	Slot      storage.Slot
	Persister *storage.Persister
	Store     *content.Store
	Settings  storage.Settings
	Warnings  []storage.Warning
}

// OpenProject opens the configured slot and restores the project from it,
// seeding the starter project when nothing usable is stored.
func OpenProject(ctx context.Context, dir string, cfg config.Config) (*Project, error) {
	slot, err := storage.Open(cfg.Storage.Driver, storage.DefaultPath(dir, cfg.Storage.Path))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	p := &Project{Slot: slot}
	defaults := storage.SettingsFromConfig(cfg.Editor)
	p.Persister = storage.NewPersister(slot, cfg.Storage.Slot, defaults, cfg.Editor.ProjectName)
	p.Store = content.NewStore(cfg.Editor.ProjectName, content.UUIDGen{})

	loaded, warns := p.Persister.Restore(ctx, p.Store)
	p.Settings = loaded.Settings
	p.Warnings = warns
	for _, w := range warns {
		log.Warnf("restore %s: %s", w.Code, w.Message)
	}
	return p, nil
}

// Open restores the project and wires every component.
// Close releases what Open acquired.
func Open(ctx context.Context, dir string, cfg config.Config) (*Services, error) {
	p, err := OpenProject(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	svc := &Services{
		Dir:       dir,
		Cfg:       cfg,
		Slot:      p.Slot,
		Persister: p.Persister,
		Store:     p.Store,
		Settings:  command.NewSettings(p.Settings),
		Warnings:  p.Warnings,
	}

	svc.Engine, svc.Formats = Formatters(cfg, dir)

	svc.Hub = preview.NewHub()
	svc.Poll = preview.NewSlotTransport(p.Slot, cfg.Preview.FallbackKey)
	svc.Surfaces = preview.NewSurfaceTable()
	svc.Preview = preview.NewPipeline(svc.Store, preview.Options{
		Debounce:   time.Duration(cfg.Preview.DebounceMs) * time.Millisecond,
		CacheSize:  cfg.Preview.CacheSize,
		Renderer:   preview.NewMarkdownRenderer(markdownStyle(p.Settings.Theme)),
		Transports: []preview.Transport{preview.NewHubTransport(svc.Hub), svc.Poll},
	})

	svc.Buffer = editor.NewBuffer()
	svc.Session = editor.NewSession(svc.Store, svc.Buffer, editor.Options{
		Preview:       svc.Preview,
		Formatter:     svc.Formats,
		ValidateDelay: time.Duration(cfg.Editor.ValidateDelayMs) * time.Millisecond,
	})
	if id := svc.Store.ActiveFileID(); id != "" {
		if err := svc.Session.OpenFile(id); err != nil {
			log.Warnf("open %s: %v", id, err)
		}
	}

	svc.Commands = command.New(command.Deps{
		Store:     svc.Store,
		Session:   svc.Session,
		Preview:   svc.Preview,
		Persister: svc.Persister,
		Settings:  svc.Settings,
	})

	svc.Preview.RecomputeNow(ctx)
	return svc, nil
}

// Formatters builds the formatter registry. The lua engine is started only
// when its plugin is enabled; a failed start leaves the other layers.
func Formatters(cfg config.Config, dir string) (*luapkg.Engine, *format.Registry) {
	var (
		eng  *luapkg.Engine
		host format.PluginHost
	)
	if cfg.Format.HasPlugin(config.PluginLua) {
		installStarterPlugins(util.ResolvePath(dir, cfg.Format.PluginDir))
		e, err := luapkg.NewEngine(cfg.Format, dir)
		if err != nil {
			log.Warnf("lua plugins disabled: %v", err)
		} else {
			eng, host = e, e
		}
	}
	return eng, format.NewRegistry(format.CapabilitiesFromConfig(cfg.Format, host), cfg.Format.TabWidth)
}

// installStarterPlugins seeds a plugin directory that does not exist yet.
func installStarterPlugins(pluginDir string) {
	if _, err := os.Stat(pluginDir); !errors.Is(err, os.ErrNotExist) {
		return
	}
	n, err := luaprefabs.Install(pluginDir)
	if err != nil {
		log.Warnf("install starter plugins: %v", err)
		return
	}
	log.Infof("installed %d starter plugin(s) into %s", n, pluginDir)
}

func (s *Services) Close() error {
	if s.Engine != nil {
		s.Engine.Close()
	}
	return s.Slot.Close()
}
