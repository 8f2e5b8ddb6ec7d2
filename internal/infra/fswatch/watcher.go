package fswatch

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher fans fsnotify events out to subscriptions keyed by file path.
// Directories are watched rather than files so editor rename-and-replace
// saves are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	dirs map[string]int

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a watcher. Call Start to begin delivering events.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		logger:  slog.Default(),
		subs:    make(map[*Subscription]struct{}),
		dirs:    make(map[string]int),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Subscription receives a wake-up whenever one of its paths changes.
// Wake-ups are coalesced: C holds at most one pending signal.
type Subscription struct {
	w     *Watcher
	c     chan struct{}
	mu    sync.Mutex
	paths map[string]struct{}
}

// Subscribe registers interest in paths. Paths are cleaned and made absolute.
func (w *Watcher) Subscribe(paths []string) *Subscription {
	s := &Subscription{w: w, c: make(chan struct{}, 1)}
	w.mu.Lock()
	w.subs[s] = struct{}{}
	w.mu.Unlock()
	s.Update(paths)
	return s
}

// C returns the wake-up channel.
func (s *Subscription) C() <-chan struct{} { return s.c }

// Update replaces the watched path set.
func (s *Subscription) Update(paths []string) {
	next := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		next[normalize(p)] = struct{}{}
	}

	s.mu.Lock()
	prev := s.paths
	s.paths = next
	s.mu.Unlock()

	for p := range next {
		s.w.addDir(filepath.Dir(p))
	}
	for p := range prev {
		s.w.removeDir(filepath.Dir(p))
	}
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.w.mu.Lock()
	delete(s.w.subs, s)
	s.w.mu.Unlock()
	s.Update(nil)
}

func (s *Subscription) matches(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

func (s *Subscription) wake() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

func (w *Watcher) addDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirs[dir]++
	if w.dirs[dir] > 1 {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		// Polling still covers this directory.
		w.logger.Warn("failed to watch directory",
			"path", dir,
			"error", err,
		)
		return
	}
	w.logger.Debug("watching directory for changes", "path", dir)
}

func (w *Watcher) removeDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.dirs[dir]
	if !ok {
		return
	}
	if n > 1 {
		w.dirs[dir] = n - 1
		return
	}
	delete(w.dirs, dir)
	_ = w.watcher.Remove(dir)
}

// Start delivers events until Stop is called.
func (w *Watcher) Start() {
	w.logger.Debug("file watcher started")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.dispatch(normalize(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine. Stop waits for it.
func (w *Watcher) StartAsync() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Start()
	}()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
		w.logger.Debug("file watcher stopped")
	})
	return err
}

func (w *Watcher) dispatch(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for s := range w.subs {
		if s.matches(path) {
			w.logger.Debug("watched file changed", "file", path)
			s.wake()
		}
	}
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
