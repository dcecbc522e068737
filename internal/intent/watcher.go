package intent

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"voicenav/internal/logging"
)

// VocabularyWatcher watches a yaml overlay file and hot-reloads the
// parser's synonym tables when it changes. Rapid editor saves are
// debounced.
type VocabularyWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	parser   *Parser
	base     *Vocabulary
	path     string
	debounce time.Duration
	last     time.Time
	running  bool
	doneCh   chan struct{}
}

// NewVocabularyWatcher creates a watcher for the overlay at path. The
// base vocabulary is what the overlay merges into on every reload.
func NewVocabularyWatcher(parser *Parser, base *Vocabulary, path string) (*VocabularyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &VocabularyWatcher{
		watcher:  w,
		parser:   parser,
		base:     base,
		path:     path,
		debounce: 500 * time.Millisecond,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start performs an initial load and begins watching. Non-blocking.
func (vw *VocabularyWatcher) Start(ctx context.Context) error {
	vw.mu.Lock()
	if vw.running {
		vw.mu.Unlock()
		return nil
	}
	vw.running = true
	vw.mu.Unlock()

	vw.reload()

	// Watch the directory, not the file: editors replace files on save.
	if err := vw.watcher.Add(filepath.Dir(vw.path)); err != nil {
		logging.Get(logging.CategoryIntent).Warn("vocabulary watch failed: %v", err)
	}

	go vw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (vw *VocabularyWatcher) Stop() {
	vw.mu.Lock()
	if !vw.running {
		vw.mu.Unlock()
		return
	}
	vw.running = false
	vw.mu.Unlock()

	_ = vw.watcher.Close()
	<-vw.doneCh
}

func (vw *VocabularyWatcher) run(ctx context.Context) {
	defer close(vw.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-vw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(vw.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			vw.mu.Lock()
			recent := time.Since(vw.last) < vw.debounce
			if !recent {
				vw.last = time.Now()
			}
			vw.mu.Unlock()
			if recent {
				continue
			}
			vw.reload()
		case err, ok := <-vw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryIntent).Warn("vocabulary watcher error: %v", err)
		}
	}
}

func (vw *VocabularyWatcher) reload() {
	merged, err := vw.base.LoadOverlay(vw.path)
	if err != nil {
		logging.Get(logging.CategoryIntent).Warn("vocabulary overlay not loaded: %v", err)
		return
	}
	vw.parser.SetVocabulary(merged)
}
