// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package watch drives incremental rebuilds from filesystem changes.
//
// A Watcher runs a build pass, subscribes to every path in the driver's watch set,
// and after a quiet period following a change notifies plugins, derives a fresh
// driver with Rebuild, and runs the pass again.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tessera-build/tessera/internal/logging"
	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/pkg/errutil"
)

const (
	defaultDebounce   = 50 * time.Millisecond
	defaultRetryBase  = 20 * time.Millisecond
	defaultRetryLimit = 5
)

var tracer = otel.Tracer("github.com/tessera-build/tessera/internal/watch")

// Pass runs one build over d.
type Pass func(ctx context.Context, d *plugin.Driver) error

// Change is a coalesced change to one watched path.
type Change struct {
	Path  string
	Event plugin.WatchEvent
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Pass runs a build. Nil runs the build-start hooks only.
	Pass Pass

	// Debounce is the quiet period after the last event before a rebuild.
	// Zero or negative values fall back to defaultDebounce.
	Debounce time.Duration

	// RetryBase and RetryLimit bound the exponential backoff used when a watched
	// path cannot be subscribed, typically because an editor replaced it.
	RetryBase  time.Duration
	RetryLimit uint64

	// OnRebuild is called after every rebuild pass with the new driver, the changes
	// that triggered it and the pass error. A nil callback is a no-op.
	OnRebuild func(d *plugin.Driver, changes []Change, err error)

	Logger *slog.Logger
}

// Watcher rebuilds a driver when its watched files change. Run must be called
// exactly once.
type Watcher struct {
	cfg     Config
	logger  *slog.Logger
	started atomic.Bool

	mu     sync.RWMutex
	driver *plugin.Driver
}

// New creates a Watcher for d.
func New(d *plugin.Driver, cfg Config) (*Watcher, error) {
	if d == nil {
		return nil, oops.Code(plugin.CodeInvariantViolation).Errorf("watch: driver is nil")
	}
	if cfg.Pass == nil {
		cfg.Pass = plugin.RunBuildStart
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.RetryLimit == 0 {
		cfg.RetryLimit = defaultRetryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, logger: logger.With("component", "watch"), driver: d}, nil
}

// Driver returns the driver of the most recent pass.
func (w *Watcher) Driver() *plugin.Driver {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.driver
}

// Run blocks until ctx is cancelled. Pass errors are logged and the loop keeps
// watching; driver construction errors and fatal watcher errors end the loop.
// On exit the close-watcher hooks run and Run returns nil for a clean cancel.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return oops.Errorf("watch: Run called more than once")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.Wrapf(err, "watch: create fsnotify watcher")
	}

	d := w.Driver()
	defer func() {
		if err := plugin.RunCloseWatcher(context.WithoutCancel(ctx), w.Driver()); err != nil {
			errutil.LogError(w.logger, "close-watcher hook failed", err)
		}
		if err := fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "error", err)
		}
	}()

	passErr := w.runPass(ctx, d)
	w.subscribe(ctx, fsw, d.WatchFiles().Paths(), nil)
	w.notify(d, nil, passErr)

	var (
		pending = make(map[string]plugin.WatchEvent)
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-fsw.Events:
			if !ok {
				return oops.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			event, relevant := classify(evt)
			if !relevant {
				continue
			}
			pending[evt.Name] = event
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			changes := drain(pending)
			next, err := w.rebuild(ctx, changes)
			if err != nil {
				return err
			}
			passErr := w.runPass(ctx, next)
			w.subscribe(ctx, fsw, next.WatchFiles().Paths(), changes)
			w.notify(next, changes, passErr)

		case err, ok := <-fsw.Errors:
			if !ok {
				return oops.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return oops.Wrapf(err, "watch: fatal fsnotify error")
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// rebuild notifies the current driver's plugins of changes, derives the next driver
// and makes it current.
func (w *Watcher) rebuild(ctx context.Context, changes []Change) (*plugin.Driver, error) {
	prev := w.Driver()
	notifyCtx := logging.WithBuildID(ctx, prev.BuildID().String())
	for _, c := range changes {
		if err := plugin.NotifyWatchChange(notifyCtx, prev, c.Path, c.Event); err != nil {
			errutil.LogErrorContext(notifyCtx, w.logger, "watch-change hook failed", err)
		}
	}

	next, err := prev.Rebuild()
	if err != nil {
		return nil, oops.Wrapf(err, "watch: rebuild driver")
	}
	w.mu.Lock()
	w.driver = next
	w.mu.Unlock()

	w.logger.Info("rebuilding", "build_id", next.BuildID().String(), "changes", len(changes))
	return next, nil
}

func (w *Watcher) runPass(ctx context.Context, d *plugin.Driver) error {
	ctx = logging.WithBuildID(ctx, d.BuildID().String())
	ctx, span := tracer.Start(ctx, "watch.pass", trace.WithAttributes(
		attribute.String("build_id", d.BuildID().String()),
		attribute.Int("plugins", d.Len()),
	))
	defer span.End()

	err := w.cfg.Pass(ctx, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build pass failed")
		errutil.LogErrorContext(ctx, w.logger, "build pass failed", err)
	}
	span.SetAttributes(attribute.Int("watched", d.WatchFiles().Len()))
	return err
}

func (w *Watcher) notify(d *plugin.Driver, changes []Change, err error) {
	if w.cfg.OnRebuild != nil {
		w.cfg.OnRebuild(d, changes, err)
	}
}

// subscribe makes fsw watch exactly paths. Deleted or renamed paths in changes are
// subscribed again so a file replaced by an atomic save is followed. Paths that
// cannot be added are retried with exponential backoff, then skipped with a warning.
func (w *Watcher) subscribe(ctx context.Context, fsw *fsnotify.Watcher, paths []string, changes []Change) {
	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[p] = struct{}{}
	}
	replaced := make(map[string]struct{})
	for _, c := range changes {
		if c.Event == plugin.WatchEventDelete {
			replaced[c.Path] = struct{}{}
		}
	}
	for _, p := range fsw.WatchList() {
		_, keep := want[p]
		if _, ok := replaced[p]; keep && !ok {
			delete(want, p)
			continue
		}
		if err := fsw.Remove(p); err != nil {
			w.logger.Debug("unwatch path", "path", p, "error", err)
		}
	}

	for _, p := range slices.Sorted(maps.Keys(want)) {
		backoff := retry.WithMaxRetries(w.cfg.RetryLimit, retry.NewExponential(w.cfg.RetryBase))
		err := retry.Do(ctx, backoff, func(context.Context) error {
			if err := fsw.Add(p); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			w.logger.Warn("cannot watch path", "path", p, "error", err)
		}
	}
}

// classify maps an fsnotify event to a watch event. Chmod-only events are ignored.
func classify(evt fsnotify.Event) (plugin.WatchEvent, bool) {
	switch {
	case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
		return plugin.WatchEventDelete, true
	case evt.Has(fsnotify.Create):
		return plugin.WatchEventCreate, true
	case evt.Has(fsnotify.Write):
		return plugin.WatchEventUpdate, true
	default:
		return "", false
	}
}

func drain(pending map[string]plugin.WatchEvent) []Change {
	changes := make([]Change, 0, len(pending))
	for _, path := range slices.Sorted(maps.Keys(pending)) {
		changes = append(changes, Change{Path: path, Event: pending[path]})
	}
	clear(pending)
	return changes
}

// isFatal reports resource exhaustion errors after which the watcher cannot recover.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
