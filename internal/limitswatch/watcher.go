// Package limitswatch reloads resource limits and the log level when the
// config file changes, so they can be tuned without a restart.
package limitswatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/escapetime/internal/cliconfig"
	"github.com/bft-labs/escapetime/pkg/fractal"
	"github.com/bft-labs/escapetime/pkg/log"
)

// DefaultDebounceDelay coalesces the burst of events an editor save produces.
const DefaultDebounceDelay = 100 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Path is the TOML config file to watch.
	Path string

	// DebounceDelay is the delay after the last change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Pinned lists flags set on the command line or in the environment.
	// Their values survive reloads. See cliconfig.PinnedFlags.
	Pinned map[string]bool

	Logger log.Logger

	// SetLogLevel applies a reloaded log level. Optional.
	SetLogLevel func(level string) error
}

// Watcher holds the limits in force and refreshes them from the config file.
type Watcher struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	pinned        map[string]bool
	initial       fractal.Limits
	logger        log.Logger
	setLogLevel   func(string) error

	limits  atomic.Pointer[fractal.Limits]
	reloads atomic.Int64

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New returns a watcher serving initial until the first reload.
func New(initial fractal.Limits, cfg Config) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	w := &Watcher{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		pinned:        cfg.Pinned,
		initial:       initial,
		logger:        cfg.Logger,
		setLogLevel:   cfg.SetLogLevel,
	}
	w.limits.Store(&initial)
	return w
}

// Limits returns the limits currently in force. Safe for concurrent use.
func (w *Watcher) Limits() fractal.Limits {
	return *w.limits.Load()
}

// Reloads returns how many reloads have been applied.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Reload reads the config file and applies its log level, then its limits.
// A file that cannot be parsed changes nothing.
func (w *Watcher) Reload() error {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", w.path, err)
	}

	level := ""
	if w.setLogLevel != nil && !w.pinned["log-level"] {
		level = fc.LogLevel
		if level == "" {
			level = cliconfig.DefaultConfig().LogLevel
		}
		if _, err := log.ParseLevel(level); err != nil {
			return fmt.Errorf("reload %s: %w", w.path, err)
		}
	}

	if level != "" {
		if err := w.setLogLevel(level); err != nil {
			return fmt.Errorf("reload %s: %w", w.path, err)
		}
	}
	next := w.resolve(fc.Limits)
	w.limits.Store(&next)
	w.reloads.Add(1)

	w.logger.Info("config reloaded",
		log.String("path", w.path),
		log.Int("max_width", next.MaxWidth),
		log.Int("max_height", next.MaxHeight),
		log.Int("max_pixels", next.MaxPixels),
		log.Int("max_iterations", next.MaxIterations),
		log.String("log_level", level),
	)
	return nil
}

// resolve layers the file's limits over the defaults. Pinned limits keep
// their startup values.
func (w *Watcher) resolve(fl fractal.Limits) fractal.Limits {
	next := fractal.DefaultLimits()
	keep := []struct {
		flag string
		dst  *int
		val  int
	}{
		{"max-width", &next.MaxWidth, w.initial.MaxWidth},
		{"max-height", &next.MaxHeight, w.initial.MaxHeight},
		{"max-pixels", &next.MaxPixels, w.initial.MaxPixels},
		{"max-iterations", &next.MaxIterations, w.initial.MaxIterations},
	}
	for _, k := range keep {
		if w.pinned[k.flag] {
			*k.dst = k.val
		}
	}
	cliconfig.ApplyFileLimits(&next, fl, w.pinned)
	return next
}

// Start watches the config file's directory until Stop or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return errors.New("limitswatch: no config path")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("watching config file", log.String("path", w.path))

	w.wg.Add(1)
	go w.watchLoop(watchCtx, fw)
	return nil
}

// Stop ends the watch loop and any pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.debounceReload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.Reload(); err != nil {
			w.logger.Warn("config reload failed, keeping previous limits", log.Err(err))
		}
	})
}
