// Package format runs the per-extension formatter chain. Each extension
// has an ordered list of steps across three layers; the first step that
// succeeds wins. The chain is assembled once from the capabilities the
// process was started with.
package format

import (
	"context"
	"fmt"
	"strings"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("format")

type Layer string

const (
	LayerPlugin  Layer = "plugin"
	LayerGeneric Layer = "generic"
	LayerManual  Layer = "manual"
)

// Result is a successful format call.
type Result struct {
	Content   string `json:"content"`
	Layer     Layer  `json:"layer"`
	Formatter string `json:"formatter"`
	// Unchanged is true when the input was already formatted.
	Unchanged bool `json:"unchanged"`
}

// FormatterUnavailableError means no step could format the extension.
type FormatterUnavailableError struct {
	Ext string
	// Missing names disabled plugins that would have handled Ext.
	Missing []string
	// Err is the failure of the last step tried, if any ran.
	Err error
}

func (e *FormatterUnavailableError) Error() string {
	msg := fmt.Sprintf("no formatter available for .%s", e.Ext)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (enable plugin: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatterUnavailableError) Unwrap() error { return e.Err }

// PluginHost runs user plugins. *lua.Engine satisfies it.
type PluginHost interface {
	Handles(ext string) bool
	Format(ctx context.Context, ext, src string) (string, error)
}

// Capabilities is the set of formatter plugins resolved at startup.
type Capabilities struct {
	Plugins []string
	Host    PluginHost
}

// CapabilitiesFromConfig keeps host only when the lua plugin is enabled.
func CapabilitiesFromConfig(cfg config.Format, host PluginHost) Capabilities {
	c := Capabilities{Plugins: append([]string(nil), cfg.Plugins...)}
	if cfg.HasPlugin(config.PluginLua) {
		c.Host = host
	}
	return c
}

func (c Capabilities) has(name string) bool {
	for _, p := range c.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

type stepFunc func(ctx context.Context, src string) (string, error)

type step struct {
	layer Layer
	name  string
	fn    stepFunc
}

// Registry maps extensions to formatter chains.
type Registry struct {
	host    PluginHost
	chains  map[string][]step
	missing map[string][]string
}

// builtinPlugins lists which built-in plugin serves which extensions.
var builtinPlugins = map[string][]string{
	config.PluginGofumpt: {"go"},
	config.PluginCSS:     {"css"},
	config.PluginHTML:    {"html", "htm", "xml"},
}

func NewRegistry(caps Capabilities, tabWidth int) *Registry {
	if tabWidth < 1 {
		tabWidth = 2
	}
	indent := strings.Repeat(" ", tabWidth)
	r := &Registry{
		host:    caps.Host,
		chains:  map[string][]step{},
		missing: map[string][]string{},
	}

	add := func(ext string, s step) { r.chains[ext] = append(r.chains[ext], s) }

	for name, exts := range builtinPlugins {
		for _, ext := range exts {
			if !caps.has(name) {
				r.missing[ext] = append(r.missing[ext], name)
				continue
			}
			add(ext, step{LayerPlugin, name, pluginStep(name, ext, indent)})
		}
	}

	add("json", step{LayerGeneric, "json-indent", jsonIndent(indent)})
	for _, ext := range []string{"js", "ts", "css", "php"} {
		add(ext, step{LayerGeneric, "brace-indent", braceIndent(indent)})
	}

	add("css", step{LayerManual, "css-manual", cssManual(indent)})
	for _, ext := range []string{"md", "txt", "py", "php"} {
		add(ext, step{LayerManual, "text-cleanup", textCleanup})
	}
	for _, ext := range []string{"yaml", "yml"} {
		add(ext, step{LayerManual, "yaml-cleanup", yamlCleanup})
	}
	add("sql", step{LayerManual, "sql-keywords", sqlKeywords})

	return r
}

func pluginStep(name, ext, indent string) stepFunc {
	switch name {
	case config.PluginGofumpt:
		return gofumptSource
	case config.PluginCSS:
		return cssPlugin(indent)
	default:
		return htmlPlugin(indent, ext != "xml")
	}
}

// Supports reports whether any step exists for ext.
func (r *Registry) Supports(ext string) bool {
	ext = content.NormalizeExt(ext)
	if r.host != nil && r.host.Handles(ext) {
		return true
	}
	return len(r.chains[ext]) > 0
}

// Chain lists the step names that would run for ext, in order.
func (r *Registry) Chain(ext string) []string {
	ext = content.NormalizeExt(ext)
	var out []string
	if r.host != nil && r.host.Handles(ext) {
		out = append(out, "lua")
	}
	for _, s := range r.chains[ext] {
		out = append(out, s.name)
	}
	return out
}

// Format runs the chain for ext. The caller's buffer is never touched;
// on error there is no partial output.
func (r *Registry) Format(ctx context.Context, ext, src string) (Result, error) {
	ext = content.NormalizeExt(ext)

	steps := r.chains[ext]
	if r.host != nil && r.host.Handles(ext) {
		host := r.host
		steps = append([]step{{LayerPlugin, "lua", func(ctx context.Context, src string) (string, error) {
			return host.Format(ctx, ext, src)
		}}}, steps...)
	}

	var lastErr error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		out, err := s.fn(ctx, src)
		if err != nil {
			log.Debugf("%s formatter %s failed for .%s: %v", s.layer, s.name, ext, err)
			lastErr = err
			continue
		}
		return Result{Content: out, Layer: s.layer, Formatter: s.name, Unchanged: out == src}, nil
	}
	return Result{}, &FormatterUnavailableError{Ext: ext, Missing: r.missing[ext], Err: lastErr}
}
