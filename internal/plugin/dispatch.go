// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"context"

	"github.com/samber/oops"
)

// RunBuildStart calls every BuildStartHook in build-start order and stops at the
// first error.
func RunBuildStart(ctx context.Context, d *Driver) error {
	for e := range d.OrderedPlugins(d.Order(HookBuildStart)) {
		h, ok := e.Plugin.(BuildStartHook)
		if !ok {
			continue
		}
		if err := h.BuildStart(ctx, e.Context); err != nil {
			return hookError(e, HookBuildStart, err)
		}
	}
	return nil
}

// NotifyWatchChange calls every WatchChangeHook in watch-change order.
func NotifyWatchChange(ctx context.Context, d *Driver, path string, event WatchEvent) error {
	for e := range d.OrderedPlugins(d.Order(HookWatchChange)) {
		h, ok := e.Plugin.(WatchChangeHook)
		if !ok {
			continue
		}
		if err := h.WatchChange(ctx, e.Context, path, event); err != nil {
			return oops.With("path", path).Wrap(hookError(e, HookWatchChange, err))
		}
	}
	return nil
}

// RunCloseWatcher calls every CloseWatcherHook in close-watcher order. Every hook
// runs; the first error is returned.
func RunCloseWatcher(ctx context.Context, d *Driver) error {
	var first error
	for e := range d.OrderedPlugins(d.Order(HookCloseWatcher)) {
		h, ok := e.Plugin.(CloseWatcherHook)
		if !ok {
			continue
		}
		if err := h.CloseWatcher(ctx, e.Context); err != nil && first == nil {
			first = hookError(e, HookCloseWatcher, err)
		}
	}
	return first
}

func hookError(e Entry, kind HookKind, err error) error {
	return oops.
		With("plugin", e.Plugin.Name()).
		With("plugin_idx", int(e.Idx)).
		With("hook", kind.String()).
		Wrapf(err, "%s hook of %s failed", kind, e.Plugin.Name())
}
