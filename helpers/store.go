package helpers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spektr-org/cncwatch/engine"
)

// ============================================================================
// DATASET STORE — Memoized dataset for the session
// ============================================================================
// The first Get loads the source; later calls return the same immutable
// Dataset. Reload swaps in a new Dataset atomically; readers holding the
// old pointer keep a consistent snapshot. A failed reload keeps the
// previous Dataset.
// ============================================================================

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// ReloadHook observes every load attempt, e.g. for metrics.
type ReloadHook func(ds *engine.Dataset, err error, elapsed time.Duration)

// Store memoizes the Dataset loaded from one URI.
type Store struct {
	loader   *Loader
	uri      string
	logger   *zap.Logger
	debounce time.Duration
	hook     ReloadHook

	current  atomic.Pointer[engine.Dataset]
	loads    atomic.Int64
	failures atomic.Int64
	mu       sync.Mutex // serializes loads
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger routes store diagnostics to logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce sets the settle time used by Watch.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithReloadHook registers fn to run after every load attempt.
func WithReloadHook(fn ReloadHook) StoreOption {
	return func(s *Store) { s.hook = fn }
}

// NewStore creates a Store for uri. Nothing is loaded until Get or Reload.
func NewStore(loader *Loader, uri string, opts ...StoreOption) *Store {
	s := &Store{loader: loader, uri: uri, logger: zap.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URI returns the source the store reads.
func (s *Store) URI() string { return s.uri }

// Get returns the memoized Dataset, loading it on first use.
func (s *Store) Get(ctx context.Context) (*engine.Dataset, error) {
	if ds := s.current.Load(); ds != nil {
		return ds, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds := s.current.Load(); ds != nil {
		return ds, nil
	}
	return s.loadLocked(ctx)
}

// Current returns the Dataset without loading.
func (s *Store) Current() (*engine.Dataset, error) {
	if ds := s.current.Load(); ds != nil {
		return ds, nil
	}
	return nil, ErrNotLoaded
}

// Reload reads the source again. On failure the previous Dataset stays.
func (s *Store) Reload(ctx context.Context) (*engine.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Loads returns the number of successful loads.
func (s *Store) Loads() int64 { return s.loads.Load() }

// Failures returns the number of failed loads.
func (s *Store) Failures() int64 { return s.failures.Load() }

func (s *Store) loadLocked(ctx context.Context) (*engine.Dataset, error) {
	started := time.Now()
	ds, err := s.loader.Load(ctx, s.uri)
	if s.hook != nil {
		s.hook(ds, err, time.Since(started))
	}
	if err != nil {
		s.failures.Add(1)
		if prev := s.current.Load(); prev != nil {
			s.logger.Warn("reload failed, keeping previous dataset",
				zap.String("source", s.uri), zap.Int("records", prev.Len()), zap.Error(err))
		}
		return nil, err
	}
	s.current.Store(ds)
	s.loads.Add(1)
	return ds, nil
}

// ============================================================================
// WATCH — Reload on file change
// ============================================================================

// Watch reloads the dataset whenever the local source file is written,
// created or renamed into place. It blocks until ctx is done. The parent
// directory is watched so that editors which replace the file are seen.
func (s *Store) Watch(ctx context.Context) error {
	if strings.Contains(s.uri, "://") {
		return fmt.Errorf("watch: %s is not a local file", s.uri)
	}
	target, err := filepath.Abs(s.uri)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	s.logger.Info("watching dataset", zap.String("path", target))

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("dataset changed", zap.String("op", ev.Op.String()))
			// a tick left in the channel would reload before writes settle
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if ds, err := s.Reload(ctx); err == nil {
				s.logger.Info("dataset reloaded", zap.String("source", s.uri), zap.Int("records", ds.Len()))
			}
		}
	}
}
