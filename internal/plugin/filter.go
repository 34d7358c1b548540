// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"slices"
)

// PatternFilter lists include and exclude patterns. Matching is done by the hook
// dispatcher, not by this package.
type PatternFilter struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// HookFilter restricts which modules trigger a plugin's hook.
type HookFilter struct {
	ID   *PatternFilter `yaml:"id,omitempty" json:"id,omitempty"`
	Code *PatternFilter `yaml:"code,omitempty" json:"code,omitempty"`
}

// HookFilterOptions holds a plugin's filter descriptors for the filterable hooks.
type HookFilterOptions struct {
	Load      *HookFilter
	ResolveID *HookFilter
	Transform *HookFilter
}

// For returns the descriptor for kind, or nil when kind is not filterable or the
// plugin declared none.
func (o HookFilterOptions) For(kind HookKind) *HookFilter {
	switch kind {
	case HookLoad:
		return o.Load
	case HookResolveID:
		return o.ResolveID
	case HookTransform:
		return o.Transform
	default:
		return nil
	}
}

// evaluateFilters asks p for its load, resolve-id and transform filter descriptors.
// Descriptors are deep-copied so later mutation by the plugin is not observed.
func evaluateFilters(idx PluginIdx, p Plugin) (HookFilterOptions, error) {
	load, err := p.LoadFilter()
	if err != nil {
		return HookFilterOptions{}, ErrFilterEvaluationFailed(idx, p.Name(), HookLoad, err)
	}
	resolveID, err := p.ResolveIDFilter()
	if err != nil {
		return HookFilterOptions{}, ErrFilterEvaluationFailed(idx, p.Name(), HookResolveID, err)
	}
	transform, err := p.TransformFilter()
	if err != nil {
		return HookFilterOptions{}, ErrFilterEvaluationFailed(idx, p.Name(), HookTransform, err)
	}
	return HookFilterOptions{
		Load:      load.clone(),
		ResolveID: resolveID.clone(),
		Transform: transform.clone(),
	}, nil
}

func (f *HookFilter) clone() *HookFilter {
	if f == nil {
		return nil
	}
	return &HookFilter{ID: f.ID.clone(), Code: f.Code.clone()}
}

func (p *PatternFilter) clone() *PatternFilter {
	if p == nil {
		return nil
	}
	return &PatternFilter{
		Include: slices.Clone(p.Include),
		Exclude: slices.Clone(p.Exclude),
	}
}
