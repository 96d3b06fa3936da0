package luaprefabs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/lua"
)

func TestList(t *testing.T) {
	prefabs, err := List()
	require.NoError(t, err)
	require.Len(t, prefabs, 1)
	assert.Equal(t, "starter", prefabs[0].Dir)
	assert.Equal(t, "Starter formatters", prefabs[0].Name)
	assert.ElementsMatch(t, []string{"keyvalue", "stylesheet"}, prefabs[0].ScriptNames)
}

func TestInstallKeepsExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plugins")

	n, err := Install(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	custom := []byte("--- @ext ini\nfunction format(src, ext) return src end\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keyvalue.lua"), custom, 0o644))

	n, err = Install(dir)
	require.NoError(t, err)
	assert.Zero(t, n)
	b, err := os.ReadFile(filepath.Join(dir, "keyvalue.lua"))
	require.NoError(t, err)
	assert.Equal(t, custom, b)
}

func TestStarterScriptsFormat(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default().Format
	_, err := Install(filepath.Join(base, cfg.PluginDir))
	require.NoError(t, err)

	e, err := lua.NewEngine(cfg, base)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	assert.True(t, e.Handles("scss"))
	assert.True(t, e.Handles("env"))

	out, err := e.Format(context.Background(), "ini", "a=1\n[section]\n  b   =  two words\n# c=3\n\n")
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n[section]\nb = two words\n# c=3\n", out)

	out, err = e.Format(context.Background(), "scss", "a {  \n\n\n\n  color: red;\t\n}\n\n")
	require.NoError(t, err)
	assert.Equal(t, "a {\n\n  color: red;\n}\n", out)
}
