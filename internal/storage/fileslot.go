package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/codespace/internal/util"
)

var log = logging.Logger("storage")

// FileSlot keeps one JSON file per key in a directory. Other processes can
// observe writes through Watch.
type FileSlot struct {
	dir string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watchers map[string][]chan struct{}
	closed   chan struct{}
}

func OpenFileSlot(dir string) (*FileSlot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}
	return &FileSlot{
		dir:      dir,
		watchers: map[string][]chan struct{}{},
		closed:   make(chan struct{}),
	}, nil
}

func (f *FileSlot) pathFor(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileSlot) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(f.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (f *FileSlot) Put(_ context.Context, key string, value []byte) error {
	return util.WriteFileAtomic(f.pathFor(key), value)
}

func (f *FileSlot) Delete(_ context.Context, key string) error {
	err := os.Remove(f.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Watch returns a channel that receives a tick whenever key is rewritten on
// disk, by this or another process. Ticks are dropped while one is pending.
func (f *FileSlot) Watch(key string) (<-chan struct{}, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, nil, fmt.Errorf("create fsnotify watcher: %w", err)
		}
		if err := w.Add(f.dir); err != nil {
			w.Close()
			return nil, nil, fmt.Errorf("watch slot dir: %w", err)
		}
		f.watcher = w
		go f.watchLoop()
	}

	ch := make(chan struct{}, 1)
	f.watchers[key] = append(f.watchers[key], ch)
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.watchers[key]
		for i, c := range list {
			if c == ch {
				f.watchers[key] = append(list[:i], list[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel, nil
}

func (f *FileSlot) watchLoop() {
	for {
		select {
		case <-f.closed:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".json") {
				continue
			}
			key, err := url.PathUnescape(strings.TrimSuffix(base, ".json"))
			if err != nil {
				continue
			}
			f.mu.Lock()
			for _, ch := range f.watchers[key] {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			f.mu.Unlock()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("slot watcher error: %v", err)
		}
	}
}

func (f *FileSlot) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return nil
	default:
	}
	close(f.closed)
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}
