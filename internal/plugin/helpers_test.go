// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tessera-build/tessera/internal/plugin"
)

// fakePlugin declares order preferences and filters from plain fields.
type fakePlugin struct {
	plugin.Base
	name string

	orders map[plugin.HookKind]plugin.Order
	// metaOnly lists hook kinds that return metadata with the normal order.
	metaOnly []plugin.HookKind

	load      *plugin.HookFilter
	resolveID *plugin.HookFilter
	transform *plugin.HookFilter

	loadErr      error
	transformErr error
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) HookMeta(kind plugin.HookKind) *plugin.HookMeta {
	if o, ok := p.orders[kind]; ok {
		return &plugin.HookMeta{Order: o}
	}
	for _, k := range p.metaOnly {
		if k == kind {
			return &plugin.HookMeta{}
		}
	}
	return nil
}

func (p *fakePlugin) LoadFilter() (*plugin.HookFilter, error) { return p.load, p.loadErr }

func (p *fakePlugin) ResolveIDFilter() (*plugin.HookFilter, error) { return p.resolveID, nil }

func (p *fakePlugin) TransformFilter() (*plugin.HookFilter, error) {
	return p.transform, p.transformErr
}

func named(name string) *fakePlugin {
	return &fakePlugin{name: name}
}

func withOrder(name string, kind plugin.HookKind, o plugin.Order) *fakePlugin {
	return &fakePlugin{name: name, orders: map[plugin.HookKind]plugin.Order{kind: o}}
}

// mockResolver is a testify mock of plugin.Resolver.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, specifier, importer string, opts plugin.ResolveOptions) (plugin.ResolvedID, error) {
	args := m.Called(ctx, specifier, importer, opts)
	if fn, ok := args.Get(0).(func(context.Context, string, string, plugin.ResolveOptions) plugin.ResolvedID); ok {
		return fn(ctx, specifier, importer, opts), args.Error(1)
	}
	return args.Get(0).(plugin.ResolvedID), args.Error(1)
}

// mockEmitter is a testify mock of plugin.FileEmitter.
type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, asset plugin.EmittedAsset) (plugin.AssetReference, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(plugin.AssetReference), args.Error(1)
}

// newDriver builds a driver over plugins with mock collaborators.
func newDriver(t *testing.T, plugins ...plugin.Plugin) (*plugin.Driver, *mockResolver, *mockEmitter) {
	t.Helper()
	resolver := &mockResolver{}
	emitter := &mockEmitter{}
	d, err := plugin.New(plugins, resolver, emitter, &plugin.Options{Dir: "dist"})
	require.NoError(t, err)
	return d, resolver, emitter
}

func idxs(n ...int) []plugin.PluginIdx {
	out := make([]plugin.PluginIdx, len(n))
	for i, v := range n {
		out[i] = plugin.PluginIdx(v)
	}
	return out
}
