package preview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/petervdpas/codespace/internal/content"
	"github.com/petervdpas/codespace/internal/util"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("preview")

// Update is the outcome of one full recompute.
type Update struct {
	Handle  Handle
	HTML    string
	Sources Sources
	// Revision is the store revision the document was composed from.
	Revision uint64
	// Scheduled is the revision passed by the call that triggered it.
	Scheduled uint64
	At        time.Time
}

type Options struct {
	Debounce   time.Duration
	CacheSize  int
	Renderer   Renderer
	Transports []Transport
	Now        func() time.Time
}

// Pipeline recomputes the preview document and publishes it. It has two
// paths: Recompute is debounced and refreshes the live handle; PushNow
// goes straight to subscribers. Both compose from the same store state.
type Pipeline struct {
	store      *content.Store
	md         Renderer
	cache      *HandleCache
	transports []Transport
	now        func() time.Time
	debounced  *util.Debouncer[uint64]

	mu         sync.Mutex
	pinned     string
	last       *Update
	recomputes int
	hooks      []func(Update)
}

func NewPipeline(s *content.Store, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Pipeline{
		store:      s,
		md:         opts.Renderer,
		cache:      NewHandleCache(opts.CacheSize),
		transports: opts.Transports,
		now:        opts.Now,
	}
	p.debounced = util.NewDebouncer(opts.Debounce, func(rev uint64) {
		p.recompute(context.Background(), rev)
	})
	s.Subscribe(p.onChange)
	return p
}

func (p *Pipeline) Cache() *HandleCache { return p.cache }

// OnUpdate registers fn to run after every full recompute.
func (p *Pipeline) OnUpdate(fn func(Update)) {
	p.mu.Lock()
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

func (p *Pipeline) Pinned() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pinned
}

// Pin fixes the preview to a file; an empty id returns to the default
// resolution.
func (p *Pipeline) Pin(ctx context.Context, id string) (Update, error) {
	if id != "" {
		if _, err := p.store.File(id); err != nil {
			return Update{}, err
		}
	}
	p.mu.Lock()
	p.pinned = id
	p.mu.Unlock()
	return p.RecomputeNow(ctx), nil
}

// Recomputes counts completed full recomputes.
func (p *Pipeline) Recomputes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recomputes
}

func (p *Pipeline) Last() (Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Update{}, false
	}
	return *p.last, true
}

func (p *Pipeline) compose() (string, Sources, uint64) {
	rev := p.store.Revision()
	src := Resolve(p.store, p.Pinned())
	return Compose(src, p.md), src, rev
}

// Document composes the current document without publishing it.
func (p *Pipeline) Document() string {
	doc, _, _ := p.compose()
	return doc
}

// Recompute schedules the full path; bursts collapse into one run.
func (p *Pipeline) Recompute() {
	p.debounced.Call(p.store.Revision())
}

// RecomputeNow runs the full path synchronously.
func (p *Pipeline) RecomputeNow(ctx context.Context) Update {
	return p.recompute(ctx, p.store.Revision())
}

func (p *Pipeline) recompute(ctx context.Context, scheduled uint64) Update {
	return p.commit(ctx, p.build(scheduled))
}

func (p *Pipeline) build(scheduled uint64) Update {
	doc, src, rev := p.compose()
	h := p.cache.Issue(src.Key(), doc)
	return Update{Handle: h, HTML: doc, Sources: src, Revision: rev, Scheduled: scheduled, At: p.now()}
}

// commit makes u the live document unless a newer revision already won,
// in which case the newer update is returned and nothing is sent.
func (p *Pipeline) commit(ctx context.Context, u Update) Update {
	p.mu.Lock()
	if p.last != nil && u.Revision < p.last.Revision {
		newer := *p.last
		p.mu.Unlock()
		log.Debugf("preview: dropping revision %d, %d is live", u.Revision, newer.Revision)
		return newer
	}
	p.cache.SetLive(u.Handle)
	p.last = &u
	p.recomputes++
	hooks := append([]func(Update){}, p.hooks...)
	p.mu.Unlock()

	p.broadcast(ctx, Message{Type: TypeUpdate, HTML: u.HTML, Timestamp: u.At.UnixMilli(), Handle: u.Handle})
	for _, fn := range hooks {
		fn(u)
	}
	return u
}

// PushNow sends the current document to subscribers. The handle cache
// is left alone.
func (p *Pipeline) PushNow(ctx context.Context) Message {
	doc, _, _ := p.compose()
	m := Message{Type: TypeUpdate, HTML: doc, Timestamp: p.now().UnixMilli()}
	p.broadcast(ctx, m)
	return m
}

// Ready answers a preview-ready request with the current document.
func (p *Pipeline) Ready(ctx context.Context) Message {
	last, ok := p.Last()
	if !ok || last.Revision != p.store.Revision() {
		last = p.RecomputeNow(ctx)
		return Message{Type: TypeUpdate, HTML: last.HTML, Timestamp: last.At.UnixMilli(), Handle: last.Handle}
	}
	m := Message{Type: TypeUpdate, HTML: last.HTML, Timestamp: p.now().UnixMilli(), Handle: last.Handle}
	p.broadcast(ctx, m)
	return m
}

func (p *Pipeline) broadcast(ctx context.Context, m Message) {
	for _, t := range p.transports {
		if err := t.Send(ctx, m); err != nil {
			log.Warnf("%s transport: %v", t.Name(), err)
		}
	}
}

func (p *Pipeline) onChange(c content.Change) {
	switch c.Kind {
	case content.ChangeDelete, content.ChangeRestore:
		p.dropStale()
		p.Recompute()
	case content.ChangeCreate, content.ChangeRename, content.ChangeMove:
		p.Recompute()
	}
}

// dropStale forgets cache entries and the pin for files that are gone.
func (p *Pipeline) dropStale() {
	missing := func(id string) bool {
		_, err := p.store.File(id)
		return err != nil
	}

	p.mu.Lock()
	if p.pinned != "" && missing(p.pinned) {
		p.pinned = ""
	}
	p.mu.Unlock()

	n := p.cache.DropWhere(func(key string) bool {
		for _, id := range strings.Split(key, "|") {
			if id != "none" && missing(id) {
				return true
			}
		}
		return false
	})
	if n > 0 {
		log.Debugf("dropped %d stale preview handle(s)", n)
	}
}
