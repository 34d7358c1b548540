// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin_test

import (
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-build/tessera/internal/module"
	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/pkg/errutil"
)

func TestNew_AssignsDenseIndices(t *testing.T) {
	d, _, _ := newDriver(t, named("a"), named("b"), named("c"))

	require.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"a", "b", "c"}, d.Names())
	for i := range 3 {
		idx := plugin.PluginIdx(i)
		assert.Equal(t, idx, d.Context(idx).PluginIdx())
		assert.Equal(t, d.Plugin(idx).Name(), d.Context(idx).PluginName())
	}
}

func TestNew_FilterFailureNamesPlugin(t *testing.T) {
	bad := &fakePlugin{name: "broken", transformErr: errors.New("bad pattern")}

	d, err := plugin.New([]plugin.Plugin{named("ok"), bad}, &mockResolver{}, &mockEmitter{}, nil)

	require.Error(t, err)
	assert.Nil(t, d, "no partially built driver is returned")
	errutil.AssertErrorCode(t, err, plugin.CodeFilterEvaluationFailed)
	errutil.AssertErrorContext(t, err, "plugin_idx", 1)
	errutil.AssertErrorContext(t, err, "hook", "transform")
	assert.ErrorContains(t, err, "bad pattern")
}

func TestNew_FilterFailureKeepsDriverClassification(t *testing.T) {
	cause := oops.Code("BAD_GLOB").With("plugin_idx", 99).Errorf("unclosed bracket")
	bad := &fakePlugin{name: "globber", loadErr: cause}

	_, err := plugin.New([]plugin.Plugin{named("ok"), bad}, &mockResolver{}, &mockEmitter{}, nil)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, plugin.CodeFilterEvaluationFailed)
	errutil.AssertErrorContext(t, err, "plugin_idx", 1)
	errutil.AssertErrorContext(t, err, "hook", "load")
	require.ErrorIs(t, err, cause)

	var fe *plugin.FilterEvaluationError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, plugin.PluginIdx(1), fe.PluginIdx)
	assert.Equal(t, "globber", fe.Plugin)
	assert.Equal(t, plugin.HookLoad, fe.Hook)

	// Wrapping by a caller keeps the classification.
	wrapped := oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "rebuild")
	errutil.AssertErrorCode(t, wrapped, plugin.CodeFilterEvaluationFailed)
}

func TestNew_NilPluginRejected(t *testing.T) {
	_, err := plugin.New([]plugin.Plugin{named("a"), nil}, &mockResolver{}, &mockEmitter{}, nil)
	errutil.AssertErrorCode(t, err, plugin.CodeInvariantViolation)
}

func TestNew_DoesNotAliasCallerSlice(t *testing.T) {
	plugins := []plugin.Plugin{named("a"), named("b")}
	d, _, _ := newDriver(t, plugins...)

	plugins[0] = named("z")

	assert.Equal(t, []string{"a", "b"}, d.Names())
}

func TestFilters_StoredAndCopied(t *testing.T) {
	p := &fakePlugin{
		name: "css",
		load: &plugin.HookFilter{ID: &plugin.PatternFilter{Include: []string{"**/*.css"}}},
		transform: &plugin.HookFilter{
			Code: &plugin.PatternFilter{Include: []string{"@import"}},
		},
	}
	d, _, _ := newDriver(t, p, named("plain"))

	f := d.Filters(0)
	require.NotNil(t, f.Load)
	assert.Equal(t, []string{"**/*.css"}, f.Load.ID.Include)
	assert.Nil(t, f.ResolveID)
	assert.Equal(t, []string{"@import"}, f.For(plugin.HookTransform).Code.Include)
	assert.Nil(t, f.For(plugin.HookBanner))

	// Mutating the plugin or a returned copy is not observed.
	p.load.ID.Include[0] = "changed"
	f.Load.ID.Include[0] = "changed"
	assert.Equal(t, []string{"**/*.css"}, d.Filters(0).Load.ID.Include)

	assert.Equal(t, plugin.HookFilterOptions{}, d.Filters(1))
}

func TestRebuild_KeepsOrdersResetsState(t *testing.T) {
	plugins := []plugin.Plugin{
		withOrder("a", plugin.HookTransform, plugin.OrderPost),
		named("b"),
		withOrder("c", plugin.HookResolveID, plugin.OrderPre),
	}
	d, _, _ := newDriver(t, plugins...)
	require.NoError(t, d.Context(0).WatchFile("src/a.js"))
	require.NoError(t, d.ReplaceModuleSnapshot(module.NewTable([]module.Info{{ID: "a"}})))

	next, err := d.Rebuild()
	require.NoError(t, err)

	for _, kind := range plugin.HookKinds() {
		assert.Equal(t, d.Order(kind), next.Order(kind), kind.String())
	}
	assert.Equal(t, d.Names(), next.Names())
	assert.NotSame(t, d.WatchFiles(), next.WatchFiles())
	assert.Equal(t, 0, next.WatchFiles().Len())
	assert.Equal(t, 1, d.WatchFiles().Len(), "previous pass keeps its watch set")
	assert.NotEqual(t, d.BuildID(), next.BuildID())

	snap, err := next.ModuleSnapshot()
	require.NoError(t, err)
	assert.True(t, snap.IsUnset())

	nextCtx, err := next.Context(0).Driver()
	require.NoError(t, err)
	assert.Same(t, next, nextCtx)
}

func TestWithBuildID_AppliesToNewOnly(t *testing.T) {
	id := ulid.Make()
	d, err := plugin.New([]plugin.Plugin{named("a")}, &mockResolver{}, &mockEmitter{}, nil, plugin.WithBuildID(id))
	require.NoError(t, err)
	assert.Equal(t, id, d.BuildID())

	next, err := d.Rebuild()
	require.NoError(t, err)
	assert.NotEqual(t, id, next.BuildID())
	assert.False(t, next.BuildID().IsZero())
}

func TestReplaceModuleSnapshot_VisibleFromEveryContext(t *testing.T) {
	d, _, _ := newDriver(t, named("a"), named("b"), named("c"))
	tbl := module.NewTable([]module.Info{{ID: "/src/main.js", IsEntry: true}})

	for i := range d.Len() {
		snap, err := d.Context(plugin.PluginIdx(i)).CurrentModuleSnapshot()
		require.NoError(t, err)
		assert.True(t, snap.IsUnset())
	}

	require.NoError(t, d.ReplaceModuleSnapshot(tbl))

	for i := range d.Len() {
		snap, err := d.Context(plugin.PluginIdx(i)).CurrentModuleSnapshot()
		require.NoError(t, err)
		assert.Same(t, tbl, snap.Table())
		assert.Equal(t, uint64(1), snap.Generation())
	}
}

func TestModuleSnapshot_StaleHandleStaysComplete(t *testing.T) {
	d, _, _ := newDriver(t, named("a"))
	first := module.NewTable([]module.Info{{ID: "a"}, {ID: "b"}})
	second := module.NewTable([]module.Info{{ID: "c"}})

	require.NoError(t, d.ReplaceModuleSnapshot(first))
	held, err := d.Context(0).CurrentModuleSnapshot()
	require.NoError(t, err)

	require.NoError(t, d.ReplaceModuleSnapshot(second))

	assert.Equal(t, []string{"a", "b"}, held.Table().IDs())
	now, err := d.Context(0).CurrentModuleSnapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, now.Table().IDs())
	assert.Equal(t, uint64(2), now.Generation())
}

func TestUpdateModuleSnapshot_PartialInvalidation(t *testing.T) {
	d, _, _ := newDriver(t, named("a"))
	require.NoError(t, d.ReplaceModuleSnapshot(module.NewTable([]module.Info{{ID: "a"}, {ID: "b"}})))

	err := d.UpdateModuleSnapshot(func(prev plugin.ModuleSnapshot) (*module.Table, error) {
		return prev.Table().Without("a"), nil
	})
	require.NoError(t, err)

	ids, err := d.Context(0).ModuleIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestUpdateModuleSnapshot_ErrorLeavesSnapshot(t *testing.T) {
	d, _, _ := newDriver(t, named("a"))
	tbl := module.NewTable([]module.Info{{ID: "a"}})
	require.NoError(t, d.ReplaceModuleSnapshot(tbl))
	boom := errors.New("boom")

	err := d.UpdateModuleSnapshot(func(plugin.ModuleSnapshot) (*module.Table, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	snap, err := d.ModuleSnapshot()
	require.NoError(t, err)
	assert.Same(t, tbl, snap.Table())
}

func TestUpdateModuleSnapshot_PanicPoisons(t *testing.T) {
	d, _, _ := newDriver(t, named("a"))

	assert.Panics(t, func() {
		_ = d.UpdateModuleSnapshot(func(plugin.ModuleSnapshot) (*module.Table, error) {
			panic("half-built graph")
		})
	})

	_, err := d.Context(0).CurrentModuleSnapshot()
	errutil.AssertErrorCode(t, err, plugin.CodeSharedStatePoisoned)

	err = d.ReplaceModuleSnapshot(module.NewTable(nil))
	errutil.AssertErrorCode(t, err, plugin.CodeSharedStatePoisoned)

	next, err := d.Rebuild()
	require.NoError(t, err)
	_, err = next.ModuleSnapshot()
	assert.NoError(t, err, "rebuild starts with a fresh snapshot cell")
}

func TestOrderedPlugins_FollowsGivenOrder(t *testing.T) {
	d, _, _ := newDriver(t, named("a"), named("b"), named("c"))

	var got []string
	for e := range d.OrderedPlugins(idxs(2, 0, 1)) {
		assert.Same(t, d.Context(e.Idx), e.Context)
		got = append(got, e.Plugin.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestOrderedPlugins_StopsEarly(t *testing.T) {
	d, _, _ := newDriver(t, named("a"), named("b"), named("c"))

	var seen int
	for range d.OrderedPlugins(d.Order(plugin.HookLoad)) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestOrderedPlugins_OutOfRangePanics(t *testing.T) {
	d, _, _ := newDriver(t, named("a"))

	assert.Panics(t, func() {
		for range d.OrderedPlugins(idxs(0, 5)) {
		}
	})
	assert.Panics(t, func() { d.Context(-1) })
	assert.Panics(t, func() { d.Filters(1) })
}

func TestDriver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := plugin.NewMetrics(reg)

	d, err := plugin.New([]plugin.Plugin{named("a"), named("b")}, &mockResolver{}, &mockEmitter{}, nil,
		plugin.WithMetrics(m))
	require.NoError(t, err)

	require.NoError(t, d.Context(0).WatchFile("a.js"))
	require.NoError(t, d.Context(1).WatchFile("a.js"))
	require.NoError(t, d.ReplaceModuleSnapshot(module.NewTable(nil)))
	_, err = d.Rebuild()
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.DriverBuilds.WithLabelValues("new", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DriverBuilds.WithLabelValues("rebuild", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.PluginsRegistered), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WatchFilesAdded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotReplaces.WithLabelValues("success")), 0)
}

func TestDriver_MetricsOnFilterFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := plugin.NewMetrics(reg)
	bad := &fakePlugin{name: "bad", transformErr: errors.New("nope")}

	_, err := plugin.New([]plugin.Plugin{bad}, &mockResolver{}, &mockEmitter{}, nil, plugin.WithMetrics(m))
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.DriverBuilds.WithLabelValues("new", "error")), 0)
}

func TestDriver_OptionsShared(t *testing.T) {
	opts := &plugin.Options{Dir: "out", Format: "esm"}
	d, err := plugin.New([]plugin.Plugin{named("a")}, &mockResolver{}, &mockEmitter{}, opts)
	require.NoError(t, err)

	assert.Same(t, opts, d.Options())
	assert.Same(t, opts, d.Context(0).Options())
}
