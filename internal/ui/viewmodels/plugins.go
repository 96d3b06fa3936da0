package viewmodels

type PluginRow struct {
	Name        string
	Description string
	Extensions  []string
}

// ChainRow is the formatter chain for one extension, first step first.
type ChainRow struct {
	Ext   string
	Steps []string
}

type PluginsVM struct {
	BaseVM
	PluginDir string
	Plugins   []PluginRow
	Chains    []ChainRow
	Enabled   []string
}
