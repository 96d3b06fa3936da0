// internal/viewer/routes/home.go

package routes

import (
	"net/http"
	"sort"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/tree"
	"github.com/petervdpas/codespace/internal/ui/render"
	"github.com/petervdpas/codespace/internal/ui/viewmodels"
)

func registerHomeRoutes(mux *http.ServeMux, d Deps) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		render.Render(w, editorVM(d))
	})

	handleGet(mux, "/plugins", func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, pluginsVM(d))
	})

	handleGet(mux, "/logs", func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, baseVM("Logs", "logs", "page.logs", d))
	})
}

func tabRows(d Deps) []viewmodels.TabRow {
	st := d.Store.State()
	byID := make(map[string]content.File, len(st.Files))
	for _, f := range st.Files {
		byID[f.ID] = f
	}
	rows := make([]viewmodels.TabRow, 0, len(st.OpenTabs))
	for _, id := range st.OpenTabs {
		f, ok := byID[id]
		if !ok {
			continue
		}
		rows = append(rows, viewmodels.TabRow{
			ID:       f.ID,
			Name:     f.Name + "." + f.Extension,
			Active:   f.ID == st.ActiveID,
			Modified: f.Modified,
		})
	}
	return rows
}

func editorVM(d Deps) viewmodels.EditorVM {
	vm := viewmodels.EditorVM{
		BaseVM:     baseVM(d.Store.ProjectName(), "editor", "page.editor", d),
		Settings:   d.Commands.Settings().Get(),
		Rows:       tree.Flatten(tree.Build(d.Store)),
		Tabs:       tabRows(d),
		ActiveID:   d.Store.ActiveFileID(),
		Language:   "plaintext",
		SaveStatus: d.saveStatus(),
		Cursor:     d.Session.StatusLine(),
	}
	if d.Buffer != nil {
		b := d.Buffer.State()
		vm.Language = b.Language
		vm.Content = b.Value
	}
	return vm
}

// chainExts are the extensions listed on the plugins page.
var chainExts = []string{"html", "htm", "xml", "css", "js", "ts", "json", "go", "md", "txt", "py", "php", "yaml", "yml", "sql"}

func pluginsVM(d Deps) viewmodels.PluginsVM {
	vm := viewmodels.PluginsVM{
		BaseVM:  baseVM("Plugins", "plugins", "page.plugins", d),
		Enabled: append([]string(nil), d.Cfg.Format.Plugins...),
	}
	sort.Strings(vm.Enabled)

	if d.Plugins != nil && d.Cfg.Format.HasPlugin(config.PluginLua) {
		vm.PluginDir = d.Plugins.Dir()
		for _, p := range d.Plugins.Plugins() {
			vm.Plugins = append(vm.Plugins, viewmodels.PluginRow{
				Name:        p.Name,
				Description: p.Description,
				Extensions:  p.Extensions,
			})
		}
	}

	if d.Formats != nil {
		for _, ext := range chainExts {
			if steps := d.Formats.Chain(ext); len(steps) > 0 {
				vm.Chains = append(vm.Chains, viewmodels.ChainRow{Ext: ext, Steps: steps})
			}
		}
	}
	return vm
}
