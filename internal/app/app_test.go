package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/petervdpas/codespace/internal/command"
	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/preview"
	"github.com/petervdpas/codespace/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.Driver = "file"
	cfg.Storage.Path = "data"
	cfg.Format.Plugins = []string{config.PluginCSS, config.PluginHTML}
	cfg.Viewer.HTTPAddr = "127.0.0.1:0"
	cfg.Preview.DebounceMs = 10
	return cfg
}

func TestSaveLabel(t *testing.T) {
	base := time.Unix(1000, 0)
	assert.Equal(t, "Saved just now", SaveLabel(base, base))
	assert.Equal(t, "Saved just now", SaveLabel(base, base.Add(900*time.Millisecond)))
	assert.Equal(t, "Saved 7s ago", SaveLabel(base, base.Add(7*time.Second)))
}

func TestOpenSeedsAndRestores(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	ctx := context.Background()

	svc, err := Open(ctx, dir, cfg)
	require.NoError(t, err)
	assert.Len(t, svc.Store.Files(), 3)
	assert.Equal(t, svc.Store.ActiveFileID(), svc.Session.Bound())
	assert.Nil(t, svc.Engine)

	f, err := svc.Store.CreateFileWithContent("notes", "md", "", "# hi")
	require.NoError(t, err)
	res := svc.Commands.Dispatch(ctx, "project.save", nil)
	require.True(t, res.OK, res.Notice)
	require.NoError(t, svc.Close())

	again, err := Open(ctx, dir, cfg)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Store.File(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "# hi", got.Content)
	assert.FileExists(t, filepath.Join(dir, "data", cfg.Storage.Slot+".json"))
}

func TestAutoSaveOnlyWhenModified(t *testing.T) {
	s := content.NewStore("Demo", &content.SeqGen{})
	require.NoError(t, content.SeedDefault(s))
	slot := storage.NewMemSlot()
	settings := command.NewSettings(storage.Settings{FontSize: 14, AutoSave: true, AutoSaveDelay: 250})
	cmds := command.New(command.Deps{
		Store:     s,
		Persister: storage.NewPersister(slot, "k", settings.Get(), "Demo"),
		Settings:  settings,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go autoSave(ctx, s, cmds, settings)

	time.Sleep(400 * time.Millisecond)
	assert.True(t, cmds.LastSaved().IsZero(), "unmodified store must not be saved")

	require.NoError(t, s.SetContent("file_1", "<p>changed</p>"))
	assert.Eventually(t, func() bool { return !s.Modified() }, 2*time.Second, 20*time.Millisecond)
	assert.False(t, cmds.LastSaved().IsZero())
	assert.Empty(t, cmds.History().Entries())

	_, err := slot.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestPruneSurfaces(t *testing.T) {
	tbl := preview.NewSurfaceTable()
	tbl.Register(preview.SurfacePopup, "hub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pruneSurfaces(ctx, tbl, time.Millisecond)

	assert.Eventually(t, func() bool { return tbl.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatchSurfacesReportsJoinAndLeave(t *testing.T) {
	tbl := preview.NewSurfaceTable()
	events := make(chan preview.SurfaceEvent, 4)
	loop := watchSurfaces(tbl, func(evt preview.SurfaceEvent) { events <- evt })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop(ctx)
		close(done)
	}()

	id := tbl.Register(preview.SurfaceTab, "sse")
	tbl.Remove(id)

	var got []preview.SurfaceEvent
	for len(got) < 2 {
		select {
		case evt := <-events:
			got = append(got, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d surface events", len(got))
		}
	}
	assert.Equal(t, "update", got[0].Type)
	require.NotNil(t, got[0].Surface)
	assert.Equal(t, preview.SurfaceTab, got[0].Surface.Kind)
	assert.Equal(t, "remove", got[1].Type)
	assert.Equal(t, id, got[1].ID)

	cancel()
	<-done
	logSurfaceEvent(got[0])
	logSurfaceEvent(got[1])
}

func TestRelaySlotSkipsUnwatchableSlots(t *testing.T) {
	slot := storage.NewMemSlot()
	relay, err := relaySlot(slot, preview.NewSlotTransport(slot, "k"), preview.NewHub())
	require.NoError(t, err)
	assert.Nil(t, relay)
}

func TestRelaySlotPublishesForeignWrites(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.OpenFileSlot(dir)
	require.NoError(t, err)
	defer local.Close()
	other, err := storage.OpenFileSlot(dir)
	require.NoError(t, err)
	defer other.Close()

	const key = "codespace-preview-update"
	hub := preview.NewHub()
	mine := preview.NewSlotTransport(local, key)
	relay, err := relaySlot(local, mine, hub)
	require.NoError(t, err)
	require.NotNil(t, relay)

	sub, unsub := hub.Subscribe()
	defer unsub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay(ctx)

	theirs := preview.NewSlotTransport(other, key)
	require.NoError(t, theirs.Send(ctx, preview.Message{Type: preview.TypeUpdate, HTML: "<p>elsewhere</p>", Timestamp: 5, Handle: "h-remote"}))

	select {
	case m := <-sub:
		assert.Equal(t, "<p>elsewhere</p>", m.HTML)
		assert.Equal(t, int64(5), m.Timestamp)
		assert.Empty(t, m.Handle)
	case <-time.After(3 * time.Second):
		t.Fatal("foreign write was not relayed")
	}

	own := preview.Message{Type: preview.TypeUpdate, HTML: "<p>here</p>", Timestamp: 9}
	hub.Publish(own)
	require.Equal(t, own, <-sub)
	require.NoError(t, mine.Send(ctx, own))

	select {
	case m := <-sub:
		t.Fatalf("own write echoed back: %+v", m)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	ctx, cancel := context.WithCancel(context.Background())
	urls := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{ProjectDir: dir, Cfg: cfg, Ready: func(u string) { urls <- u }})
	}()

	var base string
	select {
	case base = <-urls:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not start")
	}

	resp, err := http.Get(base + "/api/status")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, float64(3), status["files"])
	assert.Contains(t, status["saveStatus"], "Saved")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestFormattersInstallStarterPlugins(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Format.Plugins = []string{config.PluginLua}

	eng, reg := Formatters(cfg, dir)
	require.NotNil(t, eng)
	defer eng.Close()
	assert.FileExists(t, filepath.Join(dir, "plugins", "keyvalue.lua"))
	assert.True(t, reg.Supports("scss"))

	res, err := reg.Format(context.Background(), "env", "KEY=value\n")
	require.NoError(t, err)
	assert.Equal(t, "lua", res.Formatter)
	assert.Equal(t, "KEY = value\n", res.Content)
}

func TestNormalizeLocalViewer(t *testing.T) {
	addr, url := NormalizeLocalViewer(":8080")
	assert.Equal(t, "127.0.0.1:8080", addr)
	assert.Equal(t, "http://127.0.0.1:8080", url)

	addr, _ = NormalizeLocalViewer("0.0.0.0:9000")
	assert.Equal(t, "127.0.0.1:9000", addr)
}
