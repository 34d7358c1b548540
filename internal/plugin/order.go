// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

// HookOrderTable holds, for every hook kind, the plugin indices in invocation order.
// It is computed once per Driver and never mutated afterwards.
type HookOrderTable struct {
	orders [hookKindCount][]PluginIdx
}

// newHookOrderTable computes the order of every hook kind over plugins.
func newHookOrderTable(plugins []Plugin) *HookOrderTable {
	t := &HookOrderTable{}
	for kind := range hookKindCount {
		t.orders[kind] = computeOrder(plugins, func(p Plugin) *HookMeta {
			return p.HookMeta(kind)
		})
	}
	return t
}

// computeOrder stably partitions plugin indices into pre, normal and post runs.
// Within each run registration order is kept; plugins without metadata are normal.
func computeOrder(plugins []Plugin, metaOf func(Plugin) *HookMeta) []PluginIdx {
	var pre, normal, post []PluginIdx
	for i, p := range plugins {
		idx := PluginIdx(i)
		meta := metaOf(p)
		if meta == nil {
			normal = append(normal, idx)
			continue
		}
		switch meta.Order {
		case OrderPre:
			pre = append(pre, idx)
		case OrderPost:
			post = append(post, idx)
		default:
			normal = append(normal, idx)
		}
	}

	order := make([]PluginIdx, 0, len(plugins))
	order = append(order, pre...)
	order = append(order, normal...)
	return append(order, post...)
}

// Get returns the order for kind. The slice is shared; callers must not modify it.
func (t *HookOrderTable) Get(kind HookKind) []PluginIdx {
	if !kind.Valid() {
		invariantViolation("unknown hook kind %d", int(kind))
	}
	return t.orders[kind]
}
