// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package plugin registers bundler plugins, orders them per hook kind, and hands each
// one a capability-scoped Context for calling back into the build.
package plugin

import (
	"context"
)

// PluginIdx is the dense, zero-based identity of a registered plugin. It is stable for
// the lifetime of one Driver and keys every per-plugin table.
type PluginIdx int //nolint:revive // PluginIdx reads better than Idx at call sites

// Plugin is implemented by every bundler plugin.
//
// Hook bodies are optional and discovered by type assertion against the *Hook
// interfaces below. HookMeta and the filter methods are called once per Driver
// construction and must be pure.
type Plugin interface {
	// Name identifies the plugin in logs, errors and capability grants.
	Name() string

	// HookMeta returns ordering metadata for kind, or nil for none.
	HookMeta(kind HookKind) *HookMeta

	// LoadFilter returns the filter descriptor for the load hook, or nil.
	LoadFilter() (*HookFilter, error)

	// ResolveIDFilter returns the filter descriptor for the resolve-id hook, or nil.
	ResolveIDFilter() (*HookFilter, error)

	// TransformFilter returns the filter descriptor for the transform hook, or nil.
	TransformFilter() (*HookFilter, error)
}

// Base provides no-op metadata and filters. Embed it to implement only what you need.
type Base struct{}

// HookMeta implements Plugin.
func (Base) HookMeta(HookKind) *HookMeta { return nil }

// LoadFilter implements Plugin.
func (Base) LoadFilter() (*HookFilter, error) { return nil, nil }

// ResolveIDFilter implements Plugin.
func (Base) ResolveIDFilter() (*HookFilter, error) { return nil, nil }

// TransformFilter implements Plugin.
func (Base) TransformFilter() (*HookFilter, error) { return nil, nil }

// BuildStartHook is implemented by plugins that run when a build pass starts.
type BuildStartHook interface {
	BuildStart(ctx context.Context, pctx *Context) error
}

// ResolveIDHook is implemented by plugins that take part in module resolution.
// Returning a nil ResolvedID defers to the next plugin.
type ResolveIDHook interface {
	ResolveID(ctx context.Context, pctx *Context, specifier, importer string, opts ResolveOptions) (*ResolvedID, error)
}

// WatchChangeHook is implemented by plugins that react to watched file changes.
type WatchChangeHook interface {
	WatchChange(ctx context.Context, pctx *Context, path string, event WatchEvent) error
}

// CloseWatcherHook is implemented by plugins that release resources when watching ends.
type CloseWatcherHook interface {
	CloseWatcher(ctx context.Context, pctx *Context) error
}

// WatchEvent describes what happened to a watched file.
type WatchEvent string

// Watch events delivered to WatchChangeHook.
const (
	WatchEventCreate WatchEvent = "create"
	WatchEventUpdate WatchEvent = "update"
	WatchEventDelete WatchEvent = "delete"
)

// ResolvedID is the outcome of a successful resolution.
type ResolvedID struct {
	ID       string
	External bool
}

// ResolveOptions tune a single resolution request.
type ResolveOptions struct {
	// Kind is the import kind, e.g. "import", "dynamic-import" or "require".
	Kind string

	// IncludeSelf keeps the calling plugin in the resolve-id chain. By default the
	// caller is skipped so a plugin resolving from inside its own hook cannot recurse.
	IncludeSelf bool

	// Exclude lists further plugins to skip for this request.
	Exclude []PluginIdx

	// Custom is opaque data passed through to resolve-id hooks.
	Custom map[string]any
}

// Resolver resolves module specifiers. The resolve-id hook chain and the filesystem
// resolution algorithm live behind this interface.
type Resolver interface {
	Resolve(ctx context.Context, specifier, importer string, opts ResolveOptions) (ResolvedID, error)
}

// EmittedAsset describes a file a plugin wants written to the output.
type EmittedAsset struct {
	Name     string
	FileName string
	Source   []byte
}

// AssetReference identifies an emitted file until its final name is known.
type AssetReference string

// FileEmitter records emitted files.
type FileEmitter interface {
	Emit(ctx context.Context, asset EmittedAsset) (AssetReference, error)
}

// Options is the bundler-wide, read-only configuration shared by every context.
type Options struct {
	Input    []string
	Dir      string
	Format   string
	Platform string
	Cwd      string
	Watch    bool
}

// APIVersion is the semantic version of the plugin API this package implements.
// Configuration files constrain it with their api field.
const APIVersion = "1.0.0"
