package viewmodels

import (
	"github.com/petervdpas/codespace/internal/storage"
	"github.com/petervdpas/codespace/internal/tree"
)

type EditorVM struct {
	BaseVM

	Settings storage.Settings
	// Rows is the visible explorer, collapsed folders hidden.
	Rows []tree.Node
	Tabs []TabRow

	ActiveID   string
	Language   string
	Content    string
	SaveStatus string
	Cursor     string
}

type TabRow struct {
	ID       string
	Name     string
	Active   bool
	Modified bool
}
