package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/petervdpas/codespace/internal/util"
)

// FileName is the per-project configuration file.
const FileName = "codespace.json"

type Config struct {
	Viewer  Viewer  `json:"viewer"`
	Storage Storage `json:"storage"`
	Editor  Editor  `json:"editor"`
	Preview Preview `json:"preview"`
	Format  Format  `json:"format"`
}

type Viewer struct {
	HTTPAddr string `json:"http_addr"`
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
	Open     bool   `json:"open_browser"`
}

type Storage struct {
	// Driver selects the key-value slot backend: "sqlite" or "file".
	Driver string `json:"driver"`

	// Path is the database file (sqlite) or directory (file), relative to
	// the project dir.
	Path string `json:"path"`

	// Slot is the key holding the project snapshot.
	Slot string `json:"slot"`
}

// Editor holds the persisted editor settings. The JSON field names of
// Settings are the ones stored inside project snapshots.
type Editor struct {
	Theme           string `json:"theme"`
	FontSize        int    `json:"font_size"`
	Minimap         bool   `json:"minimap"`
	WordWrap        bool   `json:"word_wrap"`
	AutoSave        bool   `json:"auto_save"`
	AutoSaveDelayMs int    `json:"auto_save_delay_ms"`
	ProjectName     string `json:"project_name"`
	ValidateDelayMs int    `json:"validate_delay_ms"`
}

type Preview struct {
	DebounceMs        int    `json:"debounce_ms"`
	CacheSize         int    `json:"cache_size"`
	Channel           string `json:"channel"`
	FallbackKey       string `json:"fallback_key"`
	SurfaceTTLSeconds int    `json:"surface_ttl_seconds"`
	Minify            bool   `json:"minify_export"`
}

type Format struct {
	// Plugins lists the formatter plugins available to this process. The
	// set is resolved once at startup and never checked again.
	Plugins        []string `json:"plugins"`
	PluginDir      string   `json:"plugin_dir"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	TabWidth       int      `json:"tab_width"`
	MaxMemoryMB    int      `json:"max_memory_mb"`
}

// Known formatter plugin names.
const (
	PluginGofumpt = "gofumpt"
	PluginCSS     = "css"
	PluginHTML    = "html"
	PluginLua     = "lua"
)

func Default() Config {
	return Config{
		Viewer: Viewer{
			HTTPAddr: "127.0.0.1:7070",
			Debug:    false,
			LogLevel: "info",
		},
		Storage: Storage{
			Driver: "sqlite",
			Path:   "data/codespace.db",
			Slot:   "codespace-pro-project",
		},
		Editor: Editor{
			Theme:           "vs-dark",
			FontSize:        14,
			Minimap:         true,
			WordWrap:        false,
			AutoSave:        true,
			AutoSaveDelayMs: 2000,
			ProjectName:     "My Project",
			ValidateDelayMs: 500,
		},
		Preview: Preview{
			DebounceMs:        300,
			CacheSize:         10,
			Channel:           "codespace-preview",
			FallbackKey:       "codespace-preview-update",
			SurfaceTTLSeconds: 15,
		},
		Format: Format{
			Plugins:        []string{PluginGofumpt, PluginCSS, PluginHTML, PluginLua},
			PluginDir:      "plugins",
			TimeoutSeconds: 3,
			TabWidth:       2,
			MaxMemoryMB:    16,
		},
	}
}

func (c *Config) Validate() error {
	// Viewer
	if a := strings.TrimSpace(c.Viewer.HTTPAddr); a != "" {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return fmt.Errorf("viewer.http_addr: %w", err)
		}
	}
	switch c.Viewer.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("viewer.log_level must be debug, info, warn or error")
	}

	// Storage
	switch c.Storage.Driver {
	case "sqlite", "file":
	default:
		return errors.New(`storage.driver must be "sqlite" or "file"`)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if strings.TrimSpace(c.Storage.Slot) == "" {
		return errors.New("storage.slot is required")
	}

	// Editor
	if c.Editor.FontSize < 6 || c.Editor.FontSize > 72 {
		return errors.New("editor.font_size must be 6..72")
	}
	if c.Editor.AutoSaveDelayMs < 250 {
		return errors.New("editor.auto_save_delay_ms must be >= 250")
	}
	if c.Editor.ValidateDelayMs < 0 {
		return errors.New("editor.validate_delay_ms must be >= 0")
	}

	// Preview
	if c.Preview.DebounceMs < 0 {
		return errors.New("preview.debounce_ms must be >= 0")
	}
	if c.Preview.CacheSize < 1 || c.Preview.CacheSize > 1000 {
		return errors.New("preview.cache_size must be 1..1000")
	}
	if strings.TrimSpace(c.Preview.FallbackKey) == "" {
		return errors.New("preview.fallback_key is required")
	}
	if c.Preview.SurfaceTTLSeconds <= 0 {
		return errors.New("preview.surface_ttl_seconds must be > 0")
	}

	// Format
	for _, p := range c.Format.Plugins {
		switch p {
		case PluginGofumpt, PluginCSS, PluginHTML, PluginLua:
		default:
			return fmt.Errorf("format.plugins: unknown plugin %q", p)
		}
	}
	if c.Format.TimeoutSeconds < 1 || c.Format.TimeoutSeconds > 60 {
		return errors.New("format.timeout_seconds must be 1..60")
	}
	if c.Format.TabWidth < 1 || c.Format.TabWidth > 8 {
		return errors.New("format.tab_width must be 1..8")
	}
	if c.Format.MaxMemoryMB < 0 {
		return errors.New("format.max_memory_mb must be >= 0")
	}

	return nil
}

// HasPlugin reports whether the named formatter plugin is enabled.
func (f Format) HasPlugin(name string) bool {
	for _, p := range f.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

func Load(path string) (Config, error) {
	cfg, err := LoadPartial(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadPartial reads a config file without validation.
func LoadPartial(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
