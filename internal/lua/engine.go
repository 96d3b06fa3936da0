// Package lua hosts user formatter plugins. Each *.lua file in the plugin
// directory defines format(src, ext) and declares the extensions it
// handles with a leading "--- @ext css,scss" annotation.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/util"

	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

var log = logging.Logger("lua")

// ErrNoPlugin is returned by Format when no plugin handles an extension.
var ErrNoPlugin = errors.New("no plugin for extension")

type script struct {
	proto       *lua.FunctionProto
	description string
	exts        []string
}

// PluginInfo describes a loaded plugin.
type PluginInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Extensions  []string `json:"extensions"`
}

// Engine compiles plugin scripts, hot-reloads them and runs format calls.
type Engine struct {
	mu      sync.RWMutex
	scripts map[string]*script
	dir     string
	timeout time.Duration
	maxMB   int
	watcher *fsnotify.Watcher
	closed  chan struct{}
}

// NewEngine loads every plugin under cfg.PluginDir (resolved against
// baseDir) and starts watching the directory.
func NewEngine(cfg config.Format, baseDir string) (*Engine, error) {
	dir := util.ResolvePath(baseDir, cfg.PluginDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	e := &Engine{
		scripts: make(map[string]*script),
		dir:     dir,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxMB:   cfg.MaxMemoryMB,
		watcher: watcher,
		closed:  make(chan struct{}),
	}
	e.scanDir()

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch plugin dir: %w", err)
	}
	go e.watchLoop()

	log.Infof("engine started, %d plugin(s) loaded from %s", len(e.scripts), dir)
	return e, nil
}

// Dir returns the watched plugin directory.
func (e *Engine) Dir() string { return e.dir }

func (e *Engine) scanDir() {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		if err := e.compile(filepath.Join(e.dir, entry.Name())); err != nil {
			log.Warnf("failed to compile %s: %v", entry.Name(), err)
		}
	}
}

func pluginName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".lua")
}

func (e *Engine) compile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := pluginName(path)
	source := string(data)

	if !detectEntryPoint(source, "format") {
		return fmt.Errorf("plugin %s has no format() function", name)
	}
	exts := extractExtensions(source)
	if len(exts) == 0 {
		return fmt.Errorf("plugin %s declares no --- @ext", name)
	}

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	e.mu.Lock()
	e.scripts[name] = &script{proto: proto, description: extractDescription(source), exts: exts}
	e.mu.Unlock()

	log.Infof("compiled plugin %q for %s", name, strings.Join(exts, ","))
	return nil
}

// extractDescription returns the first --- comment that is not an
// annotation.
func extractDescription(source string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "---") {
			break
		}
		desc := strings.TrimSpace(strings.TrimPrefix(line, "---"))
		if !strings.HasPrefix(desc, "@") {
			return desc
		}
	}
	return ""
}

var extRe = regexp.MustCompile(`^---\s*@ext\s+(.+)$`)

// extractExtensions parses "--- @ext a,b" from the leading comment block.
func extractExtensions(source string) []string {
	var out []string
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "---") {
			break
		}
		m := extRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, ext := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' }) {
			if ext = content.NormalizeExt(ext); ext != "" {
				out = append(out, ext)
			}
		}
	}
	return out
}

func detectEntryPoint(source, funcName string) bool {
	return strings.Contains(source, "function "+funcName+"(") ||
		strings.Contains(source, "function "+funcName+" (")
}

func (e *Engine) remove(name string) {
	e.mu.Lock()
	delete(e.scripts, name)
	e.mu.Unlock()
	log.Infof("removed plugin %q", name)
}

func (e *Engine) watchLoop() {
	for {
		select {
		case <-e.closed:
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".lua") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if err := e.compile(event.Name); err != nil {
					log.Warnf("hot reload failed for %s: %v", pluginName(event.Name), err)
				}
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				e.remove(pluginName(event.Name))
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("watcher error: %v", err)
		}
	}
}

// lookup picks the plugin for ext; names break ties so the choice is
// stable.
func (e *Engine) lookup(ext string) (string, *script) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.scripts))
	for name := range e.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := e.scripts[name]
		for _, x := range s.exts {
			if x == ext {
				return name, s
			}
		}
	}
	return "", nil
}

// Handles reports whether some plugin claims ext.
func (e *Engine) Handles(ext string) bool {
	_, s := e.lookup(content.NormalizeExt(ext))
	return s != nil
}

// Plugins lists the loaded plugins sorted by name.
func (e *Engine) Plugins() []PluginInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]PluginInfo, 0, len(e.scripts))
	for name, s := range e.scripts {
		out = append(out, PluginInfo{Name: name, Description: s.description, Extensions: s.exts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Format runs the plugin registered for ext over src.
func (e *Engine) Format(ctx context.Context, ext, src string) (string, error) {
	ext = content.NormalizeExt(ext)
	name, s := e.lookup(ext)
	if s == nil {
		return "", fmt.Errorf("%s: %w", ext, ErrNoPlugin)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.execute(execCtx, name, s.proto, src, ext)
	if err != nil {
		return "", fmt.Errorf("plugin %s: %w", name, err)
	}
	return out, nil
}

func (e *Engine) execute(ctx context.Context, name string, proto *lua.FunctionProto, src, ext string) (string, error) {
	L := newSandboxedVM(name, e.registryMaxSize())
	L.SetContext(ctx)

	var closeOnce sync.Once
	closeL := func() { closeOnce.Do(func() { L.Close() }) }
	defer closeL()

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return "", fmt.Errorf("load script: %w", err)
	}
	formatFn := L.GetGlobal("format")
	if formatFn == lua.LNil {
		return "", errors.New("script has no format() function")
	}

	memMon := newMemoryMonitor(e.maxMB)
	stopMon := memMon.watch(ctx, L, name)

	type result struct {
		val string
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("script panic: %v", r)}
			}
		}()
		if err := L.CallByParam(lua.P{
			Fn:      formatFn,
			NRet:    2,
			Protect: true,
		}, lua.LString(src), lua.LString(ext)); err != nil {
			ch <- result{err: err}
			return
		}
		errVal := L.Get(-1)
		ret := L.Get(-2)
		L.Pop(2)
		if errVal != lua.LNil {
			ch <- result{err: errors.New(errVal.String())}
			return
		}
		s, ok := ret.(lua.LString)
		if !ok {
			ch <- result{err: fmt.Errorf("format() returned %s, want string", ret.Type())}
			return
		}
		ch <- result{val: string(s)}
	}()

	select {
	case r := <-ch:
		stopMon()
		if memMon.wasExceeded() {
			return "", errors.New("script killed: memory limit exceeded")
		}
		return r.val, r.err
	case <-ctx.Done():
		stopMon()
		closeL()
		select {
		case <-ch:
		case <-time.After(500 * time.Millisecond):
		}
		if memMon.wasExceeded() {
			return "", errors.New("script killed: memory limit exceeded")
		}
		return "", errors.New("script timed out")
	}
}

// registryMaxSize derives a registry cap from the memory limit; each slot
// is roughly 48 bytes.
func (e *Engine) registryMaxSize() int {
	if e.maxMB <= 0 {
		return 0
	}
	return max(e.maxMB*1024*1024/48, 5120)
}

// Close stops the watcher.
func (e *Engine) Close() {
	close(e.closed)
	e.watcher.Close()
	log.Infof("engine stopped")
}
