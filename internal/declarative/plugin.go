// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package declarative builds plugins from configuration entries. A declarative plugin
// carries order preferences, filters and watched files but no transform logic.
package declarative

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/samber/oops"

	"github.com/tessera-build/tessera/internal/config"
	"github.com/tessera-build/tessera/internal/plugin"
)

// Plugin is a plugin.Plugin described entirely by a config.PluginConfig.
type Plugin struct {
	name    string
	orders  map[plugin.HookKind]plugin.Order
	filters config.Filters
	watch   []string
}

var (
	_ plugin.Plugin           = (*Plugin)(nil)
	_ plugin.BuildStartHook   = (*Plugin)(nil)
	_ plugin.WatchChangeHook  = (*Plugin)(nil)
	_ plugin.CloseWatcherHook = (*Plugin)(nil)
)

// New creates a plugin from a validated config entry.
func New(pc config.PluginConfig) (*Plugin, error) {
	orders, err := pc.HookOrders()
	if err != nil {
		return nil, oops.With("plugin", pc.Name).Wrap(err)
	}
	return &Plugin{
		name:    pc.Name,
		orders:  orders,
		filters: pc.Filters,
		watch:   slices.Clone(pc.Watch),
	}, nil
}

// FromConfig creates one plugin per entry, in declaration order.
func FromConfig(cfg *config.Config) ([]plugin.Plugin, error) {
	plugins := make([]plugin.Plugin, 0, len(cfg.Plugins))
	for _, pc := range cfg.Plugins {
		p, err := New(pc)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return p.name }

// HookMeta implements plugin.Plugin.
func (p *Plugin) HookMeta(kind plugin.HookKind) *plugin.HookMeta {
	o, ok := p.orders[kind]
	if !ok {
		return nil
	}
	return &plugin.HookMeta{Order: o}
}

// LoadFilter implements plugin.Plugin.
func (p *Plugin) LoadFilter() (*plugin.HookFilter, error) { return p.filters.Load, nil }

// ResolveIDFilter implements plugin.Plugin.
func (p *Plugin) ResolveIDFilter() (*plugin.HookFilter, error) { return p.filters.ResolveID, nil }

// TransformFilter implements plugin.Plugin.
func (p *Plugin) TransformFilter() (*plugin.HookFilter, error) { return p.filters.Transform, nil }

// Watched returns the configured watch paths.
func (p *Plugin) Watched() []string { return slices.Clone(p.watch) }

// BuildStart adds the configured paths to the build's watch set. Relative paths are
// resolved against the build's working directory.
func (p *Plugin) BuildStart(_ context.Context, pctx *plugin.Context) error {
	cwd := pctx.Options().Cwd
	for _, path := range p.watch {
		if cwd != "" && !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		if err := pctx.WatchFile(path); err != nil {
			return err
		}
	}
	return nil
}

// WatchChange logs the change.
func (p *Plugin) WatchChange(ctx context.Context, pctx *plugin.Context, path string, event plugin.WatchEvent) error {
	pctx.Logger().InfoContext(ctx, "watched file changed", "path", path, "event", string(event))
	return nil
}

// CloseWatcher implements plugin.CloseWatcherHook.
func (p *Plugin) CloseWatcher(ctx context.Context, pctx *plugin.Context) error {
	pctx.Logger().DebugContext(ctx, "watcher closed")
	return nil
}
