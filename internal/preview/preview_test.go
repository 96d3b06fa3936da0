package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(id, name, ext, body string) *content.File {
	return &content.File{ID: id, Name: name, Extension: ext, Content: body}
}

func TestCompose_InjectsBeforeClosingTags(t *testing.T) {
	src := Sources{
		HTML: file("h", "index", "html", "<html><head></head><body></body></html>"),
		CSS:  file("c", "styles", "css", "body{color:red}"),
		JS:   file("j", "script", "js", "console.log(1)"),
	}
	doc := Compose(src, nil)
	assert.Equal(t, "<html><head><style>body{color:red}</style></head><body><script>console.log(1)</script></body></html>", doc)
}

func TestInjectFallbacks(t *testing.T) {
	assert.Equal(t, "<head><style>x</style><title>t</title>", InjectCSS("<head><title>t</title>", "x"))
	assert.Equal(t, "<head><style>x</style></head><p>hi</p>", InjectCSS("<p>hi</p>", "x"))
	assert.Equal(t, "<body><script>y</script><p>hi</p>", InjectJS("<body><p>hi</p>", "y"))
	assert.Equal(t, "<p>hi</p><script>y</script>", InjectJS("<p>hi</p>", "y"))
}

func TestCompose_EmptyShellAndEmptySources(t *testing.T) {
	assert.Equal(t, EmptyDocument, Compose(Sources{}, nil))

	doc := Compose(Sources{CSS: file("c", "s", "css", ""), JS: file("j", "s", "js", "")}, nil)
	assert.Equal(t, EmptyDocument, doc)

	doc = Compose(Sources{JS: file("j", "s", "js", "go()")}, nil)
	assert.Equal(t, strings.Replace(EmptyDocument, "</body>", "<script>go()</script></body>", 1), doc)
}

type stubRenderer struct {
	out   string
	err   error
	panic bool
}

func (r stubRenderer) Render(string) (string, error) {
	if r.panic {
		panic("boom")
	}
	return r.out, r.err
}

func TestCompose_Markdown(t *testing.T) {
	src := Sources{
		HTML: file("h", "index", "html", "<p>html</p>"),
		MD:   file("m", "README", "md", "# hi"),
	}
	assert.Equal(t, "MD", Compose(src, stubRenderer{out: "MD"}))

	doc := Compose(src, stubRenderer{err: errors.New("bad <thing>")})
	assert.Contains(t, doc, "Markdown render failed: bad &lt;thing&gt;")

	doc = Compose(src, stubRenderer{panic: true})
	assert.Contains(t, doc, "renderer panic: boom")

	src.MD.Content = ""
	assert.Equal(t, "<p>html</p>", Compose(src, stubRenderer{out: "MD"}))
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer("")
	doc, err := r.Render("# Hello World\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\n```go\nx := 1\n```\n")
	require.NoError(t, err)
	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, `<h1 id="hello-world">Hello World</h1>`)
	assert.Contains(t, doc, "<table>")
	assert.Contains(t, doc, "<del>gone</del>")
	assert.Contains(t, doc, "<pre")
}

func newProject(t *testing.T) *content.Store {
	t.Helper()
	s := content.NewStore("P", &content.SeqGen{})
	_, err := s.CreateFileWithContent("index", "html", "", "<html><head></head><body>root</body></html>")
	require.NoError(t, err)
	_, err = s.CreateFileWithContent("style", "css", "", "p{}")
	require.NoError(t, err)
	_, err = s.CreateFileWithContent("app", "js", "", "root()")
	require.NoError(t, err)
	return s
}

func TestResolve_Default(t *testing.T) {
	s := newProject(t)
	src := Resolve(s, "")
	assert.Equal(t, "file_1", src.HTML.ID)
	assert.Equal(t, "file_2", src.CSS.ID)
	assert.Equal(t, "file_3", src.JS.ID)
	assert.Nil(t, src.MD)
	assert.Equal(t, "file_1|file_2|file_3|none", src.Key())
}

func TestResolve_PinnedRelated(t *testing.T) {
	s := newProject(t)
	dir, err := s.CreateFolder("src", "")
	require.NoError(t, err)
	page, _ := s.CreateFileWithContent("page", "html", dir.ID, "<p>page</p>")
	other, _ := s.CreateFileWithContent("other", "css", dir.ID, "a{}")
	same, _ := s.CreateFileWithContent("page", "css", dir.ID, "b{}")

	src := Resolve(s, page.ID)
	assert.Equal(t, page.ID, src.HTML.ID)
	assert.Equal(t, same.ID, src.CSS.ID, "same basename wins")
	assert.Equal(t, "file_3", src.JS.ID, "root fallback")

	require.NoError(t, s.DeleteFile(same.ID))
	src = Resolve(s, page.ID)
	assert.Equal(t, other.ID, src.CSS.ID, "same folder fallback")

	// A pin on a non-page falls back to the default resolution.
	src = Resolve(s, other.ID)
	assert.Equal(t, "file_1", src.HTML.ID)

	md, _ := s.CreateFileWithContent("notes", "md", "", "# n")
	src = Resolve(s, md.ID)
	assert.Equal(t, md.ID, src.MD.ID)
	assert.True(t, src.Markdown())
}

func TestHandleCache_BoundedAndLiveSafe(t *testing.T) {
	c := NewHandleCache(10)
	revoked := map[Handle]bool{}
	c.OnRevoke(func(h Handle) { revoked[h] = true })

	first := c.Issue("k0", "doc0")
	c.SetLive(first)

	var issued []Handle
	for i := 1; i <= 25; i++ {
		h := c.Issue(fmt.Sprintf("k%d", i), fmt.Sprintf("doc%d", i))
		issued = append(issued, h)
		assert.LessOrEqual(t, c.Len(), 10)
		assert.False(t, revoked[c.Live()], "live handle revoked")
		_, ok := c.Get(first)
		assert.True(t, ok, "live handle must stay resolvable")
	}

	// k0 fell out of the cache but is live, so it survives.
	assert.Equal(t, 10, c.Len())
	assert.Equal(t, 11, c.Outstanding())

	c.SetLive(issued[len(issued)-1])
	assert.True(t, revoked[first])
	_, ok := c.Get(first)
	assert.False(t, ok)
	assert.Equal(t, 10, c.Outstanding())

	for _, h := range issued[:15] {
		assert.True(t, revoked[h])
	}
}

func TestHandleCache_ReissueAndDrop(t *testing.T) {
	c := NewHandleCache(3)
	a := c.Issue("k", "1")
	c.SetLive(a)
	b := c.Issue("k", "2")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(a)
	assert.True(t, ok, "old handle is still live")

	c.SetLive(b)
	_, ok = c.Get(a)
	assert.False(t, ok)

	c.Issue("x|y", "3")
	assert.Equal(t, 1, c.DropWhere(func(k string) bool { return strings.Contains(k, "y") }))
	c.Clear()
	assert.Zero(t, c.Len())
	_, ok = c.Get(b)
	assert.True(t, ok, "clear keeps the live handle")
}

func TestHub_NeverBlocks(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(Message{Type: TypeUpdate, Timestamp: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, 16, len(ch))
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, int64(99), last.Timestamp)

	cancel()
	assert.Zero(t, h.Subscribers())
}

// surfaceDouble reads back what a transport delivered, whichever kind it is.
type surfaceDouble struct {
	name    string
	t       Transport
	receive func() (Message, bool)
}

func surfaceDoubles(t *testing.T) []surfaceDouble {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	t.Cleanup(cancel)

	slot := NewSlotTransport(storage.NewMemSlot(), "codespace-preview-update")
	var since int64
	return []surfaceDouble{
		{"hub", NewHubTransport(hub), func() (Message, bool) {
			select {
			case m := <-ch:
				return m, true
			case <-time.After(time.Second):
				return Message{}, false
			}
		}},
		{"slot", slot, func() (Message, bool) {
			m, ok, err := slot.Poll(context.Background(), since)
			require.NoError(t, err)
			if ok {
				since = m.Timestamp
			}
			return m, ok
		}},
	}
}

func TestTransports_SameDouble(t *testing.T) {
	for _, d := range surfaceDoubles(t) {
		t.Run(d.name, func(t *testing.T) {
			s := newProject(t)
			clock := int64(1000)
			p := NewPipeline(s, Options{
				Transports: []Transport{d.t},
				Now: func() time.Time {
					clock++
					return time.UnixMilli(clock)
				},
			})

			u := p.RecomputeNow(context.Background())
			m, ok := d.receive()
			require.True(t, ok)
			assert.Equal(t, TypeUpdate, m.Type)
			assert.Equal(t, u.HTML, m.HTML)
			assert.Equal(t, u.Handle, m.Handle)

			_, ok = d.receive()
			assert.False(t, ok, "nothing new")

			p.PushNow(context.Background())
			m, ok = d.receive()
			require.True(t, ok)
			assert.Equal(t, u.HTML, m.HTML)
			assert.Empty(t, m.Handle)
		})
	}
}

type captureTransport struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (c *captureTransport) Name() string { return "capture" }

func (c *captureTransport) Send(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestPipeline_DebouncedRecompute(t *testing.T) {
	s := newProject(t)
	capture := &captureTransport{}
	p := NewPipeline(s, Options{Debounce: 100 * time.Millisecond, Transports: []Transport{capture}})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SetContent("file_3", fmt.Sprintf("step(%d)", i)))
		p.Recompute()
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return p.Recomputes() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, p.Recomputes())
	assert.Equal(t, 1, capture.count())

	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, s.Revision(), last.Scheduled, "last call's arguments win")
	assert.Contains(t, last.HTML, "step(4)")
}

func TestPipeline_PushNowLeavesCache(t *testing.T) {
	s := newProject(t)
	capture := &captureTransport{err: errors.New("ignored")}
	p := NewPipeline(s, Options{Transports: []Transport{capture}})

	u := p.RecomputeNow(context.Background())
	before := p.Cache().Outstanding()

	m := p.PushNow(context.Background())
	assert.Equal(t, before, p.Cache().Outstanding())
	assert.Equal(t, u.Handle, p.Cache().Live())
	assert.Equal(t, u.HTML, m.HTML, "both paths converge on the same document")
	assert.Equal(t, 2, capture.count())
}

func TestPipeline_PinAndDelete(t *testing.T) {
	s := newProject(t)
	p := NewPipeline(s, Options{Debounce: 20 * time.Millisecond})

	_, err := p.Pin(context.Background(), "file_404")
	var nf *content.FileNotFoundError
	require.ErrorAs(t, err, &nf)

	page, err := s.CreateFileWithContent("about", "html", "", "<body>about</body>")
	require.NoError(t, err)
	u, err := p.Pin(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Contains(t, u.HTML, "about")
	assert.Equal(t, page.ID, p.Pinned())

	require.NoError(t, s.DeleteFile(page.ID))
	assert.Empty(t, p.Pinned())
	assert.Eventually(t, func() bool {
		last, _ := p.Last()
		return strings.Contains(last.HTML, "root")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPipeline_Ready(t *testing.T) {
	s := newProject(t)
	capture := &captureTransport{}
	p := NewPipeline(s, Options{Transports: []Transport{capture}})

	m := p.Ready(context.Background())
	assert.Equal(t, 1, p.Recomputes())
	assert.NotEmpty(t, m.Handle)

	m2 := p.Ready(context.Background())
	assert.Equal(t, 1, p.Recomputes(), "unchanged store resends")
	assert.Equal(t, m.HTML, m2.HTML)
	assert.Equal(t, 2, capture.count())
}

func TestPipeline_OlderRevisionNeverWins(t *testing.T) {
	s := newProject(t)
	capture := &captureTransport{}
	p := NewPipeline(s, Options{Transports: []Transport{capture}})
	ctx := context.Background()

	require.NoError(t, s.SetContent("file_3", "old()"))
	stale := p.build(s.Revision())

	require.NoError(t, s.SetContent("file_3", "new()"))
	fresh := p.RecomputeNow(ctx)
	require.Greater(t, fresh.Revision, stale.Revision)

	got := p.commit(ctx, stale)
	assert.Equal(t, fresh.Handle, got.Handle)
	assert.Equal(t, fresh.Handle, p.Cache().Live())
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, fresh.Revision, last.Revision)
	assert.Contains(t, last.HTML, "new()")
	assert.Equal(t, 1, p.Recomputes())
	assert.Equal(t, 1, capture.count(), "stale update is not sent")

	again := p.RecomputeNow(ctx)
	assert.Equal(t, fresh.Revision, again.Revision, "same revision still commits")
	assert.Equal(t, 2, p.Recomputes())
}

func TestSurfaceTable_Prune(t *testing.T) {
	tbl := NewSurfaceTable()
	now := time.Unix(1000, 0)
	tbl.now = func() time.Time { return now }

	events := tbl.Subscribe()
	defer tbl.Unsubscribe(events)

	a := tbl.Register(SurfacePopup, "ws")
	now = now.Add(10 * time.Second)
	b := tbl.Register(SurfaceTab, "poll")
	assert.Equal(t, 2, tbl.Len())

	now = now.Add(10 * time.Second)
	assert.True(t, tbl.Touch(b))
	assert.False(t, tbl.Touch("ghost"))

	gone := tbl.PruneStale(now.Add(-15 * time.Second))
	assert.Equal(t, []string{a}, gone)
	_, ok := tbl.Get(a)
	assert.False(t, ok)

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, b, snap[0].ID)
	assert.Len(t, events, 3)
}
