// Package luaprefabs bundles starter formatter plugins that are copied
// into a project's plugin directory the first time it is created.
package luaprefabs

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:starter
var prefabFS embed.FS

// PrefabMeta holds prefab metadata from manifest.json.
type PrefabMeta struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Dir         string   `json:"dir"`
	ScriptNames []string `json:"-"` // e.g. ["keyvalue", "stylesheet"], populated by List()
}

// List returns metadata for all available prefabs.
func List() ([]PrefabMeta, error) {
	entries, err := prefabFS.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var out []PrefabMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := readManifest(e.Name())
		if err != nil {
			continue // skip broken prefabs
		}
		m.Dir = e.Name()
		m.ScriptNames = scriptNames(e.Name())
		out = append(out, m)
	}
	return out, nil
}

// scriptNames returns the list of script names (without .lua) in a prefab.
func scriptNames(dir string) []string {
	var names []string
	fs.WalkDir(prefabFS, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := strings.TrimPrefix(p, dir+"/")
		if strings.HasSuffix(base, ".lua") {
			names = append(names, strings.TrimSuffix(base, ".lua"))
		}
		return nil
	})
	return names
}

// Scripts returns all .lua files in a prefab directory, keyed by file name.
func Scripts(dir string) (map[string][]byte, error) {
	out := make(map[string][]byte)

	err := fs.WalkDir(prefabFS, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := strings.TrimPrefix(p, dir+"/")
		if !strings.HasSuffix(base, ".lua") {
			return nil
		}
		data, err := prefabFS.ReadFile(p)
		if err != nil {
			return err
		}
		out[base] = data
		return nil
	})

	return out, err
}

// Install copies every prefab script into pluginDir, creating it if
// needed. Scripts already present are left alone. It returns the number
// of files written.
func Install(pluginDir string) (int, error) {
	prefabs, err := List()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return 0, fmt.Errorf("create dir %s: %w", pluginDir, err)
	}

	n := 0
	for _, p := range prefabs {
		scripts, err := Scripts(p.Dir)
		if err != nil {
			return n, err
		}
		for name, data := range scripts {
			dst := filepath.Join(pluginDir, filepath.Base(name))
			if _, err := os.Stat(dst); err == nil {
				continue
			} else if !errors.Is(err, os.ErrNotExist) {
				return n, err
			}
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return n, fmt.Errorf("write %s: %w", dst, err)
			}
			n++
		}
	}
	return n, nil
}

func readManifest(dir string) (PrefabMeta, error) {
	var m PrefabMeta
	b, err := prefabFS.ReadFile(path.Join(dir, "manifest.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
