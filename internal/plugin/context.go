// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"context"
	"iter"
	"log/slog"
	"weak"

	"github.com/samber/oops"

	"github.com/tessera-build/tessera/internal/module"
	"github.com/tessera-build/tessera/internal/plugin/capability"
)

// Context is handed to a plugin's hooks. It gives access to resolution, file emission
// and the build's shared state, limited by the plugin's capability grants.
//
// A Context holds only a weak reference to its Driver; the Driver owns every Context.
// Context is safe for concurrent use by many hook invocations.
type Context struct {
	idx    PluginIdx
	name   string
	driver weak.Pointer[Driver]

	resolver Resolver
	emitter  FileEmitter
	options  *Options

	watchFiles *WatchSet
	snapshot   *SnapshotCell

	enforcer *capability.Enforcer
	metrics  *Metrics
	logger   *slog.Logger
}

// PluginIdx returns the index of the plugin this context belongs to.
func (c *Context) PluginIdx() PluginIdx {
	return c.idx
}

// PluginName returns the name of the plugin this context belongs to.
func (c *Context) PluginName() string {
	return c.name
}

// Options returns the bundler-wide options. Callers must treat them as read-only.
func (c *Context) Options() *Options {
	return c.options
}

// Logger returns a logger tagged with the plugin's name and index.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

func (c *Context) allow(name string) error {
	if c.enforcer == nil || c.enforcer.Check(c.name, name) {
		return nil
	}
	return ErrCapabilityDenied(c.name, name)
}

// Resolve resolves specifier relative to importer.
//
// Unless opts.IncludeSelf is set, this plugin is skipped by the resolve-id chain for
// the same specifier and importer, as is every plugin in opts.Exclude. The skip
// entries exist only in the context passed to the resolver and are gone when Resolve
// returns. Resolver errors are returned unchanged.
func (c *Context) Resolve(ctx context.Context, specifier, importer string, opts *ResolveOptions) (ResolvedID, error) {
	if err := c.allow(capability.Resolve); err != nil {
		return ResolvedID{}, err
	}

	var o ResolveOptions
	if opts != nil {
		o = *opts
	}

	skips := make([]SkippedResolveCall, 0, len(o.Exclude)+1)
	if !o.IncludeSelf {
		skips = append(skips, SkippedResolveCall{Plugin: c.idx, Specifier: specifier, Importer: importer})
	}
	for _, idx := range o.Exclude {
		skips = append(skips, SkippedResolveCall{Plugin: idx, Specifier: specifier, Importer: importer})
	}

	if c.resolver == nil {
		return ResolvedID{}, oops.Code(CodeInvariantViolation).With("plugin", c.name).Errorf("no resolver configured")
	}
	resolved, err := c.resolver.Resolve(withSkipped(ctx, skips...), specifier, importer, o)
	c.metrics.recordResolve(c.name, err)
	return resolved, err
}

// EmitFile hands asset to the file emitter and returns its reference.
func (c *Context) EmitFile(ctx context.Context, asset EmittedAsset) (AssetReference, error) {
	if err := c.allow(capability.EmitFile); err != nil {
		return "", err
	}
	if c.emitter == nil {
		return "", oops.Code(CodeInvariantViolation).With("plugin", c.name).Errorf("no file emitter configured")
	}
	return c.emitter.Emit(ctx, asset)
}

// WatchFile adds path to the build's watch set. Adding a path twice is a no-op.
func (c *Context) WatchFile(path string) error {
	if err := c.allow(capability.WatchAdd); err != nil {
		return err
	}
	if path == "" {
		return ErrInvalidWatchPath(path)
	}
	if c.watchFiles.Add(path) {
		c.metrics.recordWatchAdd()
		c.logger.Debug("watching file", "path", path)
	}
	return nil
}

// WatchFiles returns the build's watched paths in lexical order.
func (c *Context) WatchFiles() []string {
	return c.watchFiles.Paths()
}

// CurrentModuleSnapshot returns the module snapshot installed at the time of the call.
// The result stays a complete, valid view even if the snapshot is replaced later.
func (c *Context) CurrentModuleSnapshot() (ModuleSnapshot, error) {
	if err := c.allow(capability.ModulesRead); err != nil {
		return ModuleSnapshot{}, err
	}
	return c.snapshot.Load()
}

// GetModuleInfo looks id up in the current module snapshot.
func (c *Context) GetModuleInfo(id string) (module.Info, bool, error) {
	snap, err := c.CurrentModuleSnapshot()
	if err != nil {
		return module.Info{}, false, err
	}
	info, ok := snap.Table().Get(id)
	return info, ok, nil
}

// ModuleIDs returns the ids in the current module snapshot.
func (c *Context) ModuleIDs() ([]string, error) {
	snap, err := c.CurrentModuleSnapshot()
	if err != nil {
		return nil, err
	}
	return snap.Table().IDs(), nil
}

// Driver returns the owning driver, or DRIVER_RELEASED if it no longer exists.
func (c *Context) Driver() (*Driver, error) {
	d := c.driver.Value()
	if d == nil {
		return nil, ErrDriverReleased(c.name)
	}
	return d, nil
}

// Siblings yields every other plugin in kind's order. It gives read access only.
func (c *Context) Siblings(kind HookKind) (iter.Seq[Entry], error) {
	if err := c.allow(capability.PluginsRead); err != nil {
		return nil, err
	}
	d, err := c.Driver()
	if err != nil {
		return nil, err
	}
	all := d.OrderedPlugins(d.Order(kind))
	return func(yield func(Entry) bool) {
		for e := range all {
			if e.Idx == c.idx {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}
