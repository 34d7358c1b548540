// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package module defines the module graph snapshot shared with plugins.
package module

import (
	"slices"
)

// Info describes one module in the graph.
type Info struct {
	ID                     string
	IsEntry                bool
	IsExternal             bool
	Importers              []string
	DynamicImporters       []string
	ImportedIDs            []string
	DynamicallyImportedIDs []string
}

// Table is an immutable view of the module graph at one point of a build.
// Build one with NewTable; do not mutate it after it is handed to a driver.
type Table struct {
	modules []Info
	byID    map[string]int
}

// NewTable creates a table from modules. Later duplicates of an ID replace earlier ones.
func NewTable(modules []Info) *Table {
	t := &Table{
		modules: make([]Info, 0, len(modules)),
		byID:    make(map[string]int, len(modules)),
	}
	for _, m := range modules {
		if i, ok := t.byID[m.ID]; ok {
			t.modules[i] = cloneInfo(m)
			continue
		}
		t.byID[m.ID] = len(t.modules)
		t.modules = append(t.modules, cloneInfo(m))
	}
	return t
}

// Len returns the number of modules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.modules)
}

// Get returns a copy of the module with the given id.
func (t *Table) Get(id string) (Info, bool) {
	if t == nil {
		return Info{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Info{}, false
	}
	return cloneInfo(t.modules[i]), true
}

// IDs returns module ids in insertion order.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.modules))
	for i, m := range t.modules {
		ids[i] = m.ID
	}
	return ids
}

// Without returns a new table lacking the given ids. Used for partial invalidation
// between watch passes.
func (t *Table) Without(ids ...string) *Table {
	if t == nil {
		return NewTable(nil)
	}
	kept := make([]Info, 0, len(t.modules))
	for _, m := range t.modules {
		if !slices.Contains(ids, m.ID) {
			kept = append(kept, m)
		}
	}
	return NewTable(kept)
}

func cloneInfo(m Info) Info {
	m.Importers = slices.Clone(m.Importers)
	m.DynamicImporters = slices.Clone(m.DynamicImporters)
	m.ImportedIDs = slices.Clone(m.ImportedIDs)
	m.DynamicallyImportedIDs = slices.Clone(m.DynamicallyImportedIDs)
	return m
}
