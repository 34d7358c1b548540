// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"iter"
	"log/slog"
	"slices"
	"time"
	"weak"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tessera-build/tessera/internal/module"
	"github.com/tessera-build/tessera/internal/plugin/capability"
)

// Driver owns the registered plugins, their per-hook order, their filter descriptors
// and one Context per plugin.
//
// The plugin list, order table and filter table are fixed at construction and may be
// read concurrently without locking. The watch set and module snapshot are build-scoped
// shared cells, replaced wholesale by Rebuild.
type Driver struct {
	plugins  []Plugin
	contexts []*Context
	filters  []HookFilterOptions
	orders   *HookOrderTable

	resolver Resolver
	emitter  FileEmitter
	options  *Options

	watchFiles *WatchSet
	snapshot   *SnapshotCell

	cfg     driverConfig
	buildID ulid.ULID
}

// DriverOption configures a Driver.
type DriverOption func(*driverConfig)

type driverConfig struct {
	enforcer *capability.Enforcer
	metrics  *Metrics
	logger   *slog.Logger
	buildID  ulid.ULID
}

// WithEnforcer scopes every context with the given capability grants. Without an
// enforcer, contexts may use every capability.
func WithEnforcer(e *capability.Enforcer) DriverOption {
	return func(c *driverConfig) {
		c.enforcer = e
	}
}

// WithMetrics records driver and context activity.
func WithMetrics(m *Metrics) DriverOption {
	return func(c *driverConfig) {
		c.metrics = m
	}
}

// WithLogger sets the logger used by the driver and its contexts.
func WithLogger(l *slog.Logger) DriverOption {
	return func(c *driverConfig) {
		c.logger = l
	}
}

// WithBuildID sets the build id of the driver returned by New. Rebuild always mints a
// fresh id.
func WithBuildID(id ulid.ULID) DriverOption {
	return func(c *driverConfig) {
		c.buildID = id
	}
}

// Entry is one step of an ordered hook chain.
type Entry struct {
	Idx     PluginIdx
	Plugin  Plugin
	Context *Context
}

// New registers plugins in order and computes their filters and hook orders.
//
// If any plugin's filter method fails, New returns a FILTER_EVALUATION_FAILED error
// naming the plugin and no driver.
func New(plugins []Plugin, resolver Resolver, emitter FileEmitter, options *Options, opts ...DriverOption) (*Driver, error) {
	cfg := driverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if options == nil {
		options = &Options{}
	}
	for i, p := range plugins {
		if p == nil {
			return nil, oops.Code(CodeInvariantViolation).
				With("plugin_idx", i).
				Errorf("plugin %d is nil", i)
		}
	}
	id := cfg.buildID
	if id.IsZero() {
		id = ulid.Make()
	}
	cfg.buildID = ulid.ULID{}
	return build(slices.Clone(plugins), resolver, emitter, options, cfg, "new", id)
}

// Rebuild creates a driver for the next incremental pass. Plugins, handles and
// therefore filters and orders are the same; the watch set and module snapshot start
// fresh.
func (d *Driver) Rebuild() (*Driver, error) {
	return build(d.plugins, d.resolver, d.emitter, d.options, d.cfg, "rebuild", ulid.Make())
}

// build allocates the driver first so every context can hold a weak handle to it,
// then populates it.
func build(plugins []Plugin, resolver Resolver, emitter FileEmitter, options *Options, cfg driverConfig, kind string, buildID ulid.ULID) (*Driver, error) {
	start := time.Now()

	d := &Driver{}
	handle := weak.Make(d)

	watchFiles := NewWatchSet()
	snapshot := NewSnapshotCell()
	filters := make([]HookFilterOptions, 0, len(plugins))
	contexts := make([]*Context, 0, len(plugins))

	for i, p := range plugins {
		idx := PluginIdx(i)
		f, err := evaluateFilters(idx, p)
		if err != nil {
			cfg.metrics.recordBuild(kind, len(plugins), time.Since(start), err)
			return nil, err
		}
		filters = append(filters, f)
		contexts = append(contexts, &Context{
			idx:        idx,
			name:       p.Name(),
			driver:     handle,
			resolver:   resolver,
			emitter:    emitter,
			options:    options,
			watchFiles: watchFiles,
			snapshot:   snapshot,
			enforcer:   cfg.enforcer,
			metrics:    cfg.metrics,
			logger:     cfg.logger.With("plugin", p.Name(), "plugin_idx", i),
		})
	}

	*d = Driver{
		plugins:    plugins,
		contexts:   contexts,
		filters:    filters,
		orders:     newHookOrderTable(plugins),
		resolver:   resolver,
		emitter:    emitter,
		options:    options,
		watchFiles: watchFiles,
		snapshot:   snapshot,
		cfg:        cfg,
		buildID:    buildID,
	}
	checkTables(len(d.plugins), len(d.filters), len(d.contexts))

	elapsed := time.Since(start)
	cfg.metrics.recordBuild(kind, len(plugins), elapsed, nil)
	cfg.logger.Debug("plugin driver ready",
		"kind", kind,
		"build_id", d.buildID.String(),
		"plugins", len(plugins),
		"elapsed", elapsed)

	return d, nil
}

// BuildID identifies this driver's build pass.
func (d *Driver) BuildID() ulid.ULID {
	return d.buildID
}

// Len returns the number of registered plugins.
func (d *Driver) Len() int {
	return len(d.plugins)
}

// Names returns plugin names in registration order.
func (d *Driver) Names() []string {
	names := make([]string, len(d.plugins))
	for i, p := range d.plugins {
		names[i] = p.Name()
	}
	return names
}

// Plugin returns the plugin registered at idx.
func (d *Driver) Plugin(idx PluginIdx) Plugin {
	checkIdx(idx, len(d.plugins))
	return d.plugins[idx]
}

// Context returns the context of the plugin registered at idx.
func (d *Driver) Context(idx PluginIdx) *Context {
	checkIdx(idx, len(d.contexts))
	return d.contexts[idx]
}

// Filters returns a copy of the filter descriptors of the plugin at idx.
func (d *Driver) Filters(idx PluginIdx) HookFilterOptions {
	checkIdx(idx, len(d.filters))
	f := d.filters[idx]
	return HookFilterOptions{
		Load:      f.Load.clone(),
		ResolveID: f.ResolveID.clone(),
		Transform: f.Transform.clone(),
	}
}

// Order returns the plugin indices for kind in invocation order. The slice is shared
// by every caller and must not be modified.
func (d *Driver) Order(kind HookKind) []PluginIdx {
	return d.orders.Get(kind)
}

// OrderedPlugins yields the plugin and context of every index in order, in that exact
// sequence. It does not filter or invoke anything.
func (d *Driver) OrderedPlugins(order []PluginIdx) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, idx := range order {
			checkIdx(idx, len(d.plugins))
			if !yield(Entry{Idx: idx, Plugin: d.plugins[idx], Context: d.contexts[idx]}) {
				return
			}
		}
	}
}

// Options returns the bundler-wide options. Callers must treat them as read-only.
func (d *Driver) Options() *Options {
	return d.options
}

// WatchFiles returns the watch set shared by all contexts of this driver.
func (d *Driver) WatchFiles() *WatchSet {
	return d.watchFiles
}

// ModuleSnapshot returns the current module snapshot.
func (d *Driver) ModuleSnapshot() (ModuleSnapshot, error) {
	return d.snapshot.Load()
}

// ReplaceModuleSnapshot installs t for every context at once.
func (d *Driver) ReplaceModuleSnapshot(t *module.Table) error {
	err := d.snapshot.Replace(t)
	d.cfg.metrics.recordSnapshotReplace(err)
	if err == nil {
		d.cfg.logger.Debug("module snapshot replaced",
			"build_id", d.buildID.String(),
			"modules", t.Len())
	}
	return err
}

// UpdateModuleSnapshot derives the next module table from the current snapshot while
// holding the snapshot guard. A panic in fn poisons the snapshot for this driver.
func (d *Driver) UpdateModuleSnapshot(fn func(prev ModuleSnapshot) (*module.Table, error)) error {
	err := d.snapshot.Update(fn)
	d.cfg.metrics.recordSnapshotReplace(err)
	return err
}
