// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"sync"

	"github.com/tessera-build/tessera/internal/module"
)

// ModuleSnapshot is a complete view of the module graph as of one replacement.
// The zero value is the unset placeholder used before the graph is materialized.
type ModuleSnapshot struct {
	table      *module.Table
	generation uint64
}

// IsUnset reports whether no module table has been installed yet.
func (s ModuleSnapshot) IsUnset() bool {
	return s.table == nil
}

// Table returns the module table, or nil when unset.
func (s ModuleSnapshot) Table() *module.Table {
	return s.table
}

// Generation counts replacements since the cell was created.
func (s ModuleSnapshot) Generation() uint64 {
	return s.generation
}

// SnapshotCell is the single build-wide slot holding the current ModuleSnapshot.
//
// Readers always observe either the previous or the next complete snapshot. If an
// update function panics while holding the cell, the cell is poisoned and every later
// access fails with SHARED_STATE_POISONED.
type SnapshotCell struct {
	mu       sync.RWMutex
	current  ModuleSnapshot
	poisoned bool
}

// NewSnapshotCell creates a cell in the unset state.
func NewSnapshotCell() *SnapshotCell {
	return &SnapshotCell{}
}

// Load returns the current snapshot.
func (c *SnapshotCell) Load() (ModuleSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.poisoned {
		return ModuleSnapshot{}, ErrSharedStatePoisoned()
	}
	return c.current, nil
}

// Replace installs t as the current snapshot. A nil t resets the cell to unset.
func (c *SnapshotCell) Replace(t *module.Table) error {
	return c.Update(func(ModuleSnapshot) (*module.Table, error) {
		return t, nil
	})
}

// Update computes the next table from the current snapshot while holding the write
// guard. An error from fn leaves the cell unchanged.
func (c *SnapshotCell) Update(fn func(prev ModuleSnapshot) (*module.Table, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return ErrSharedStatePoisoned()
	}

	completed := false
	defer func() {
		if !completed {
			c.poisoned = true
		}
	}()

	next, err := fn(c.current)
	completed = true
	if err != nil {
		return err
	}

	c.current = ModuleSnapshot{table: next, generation: c.current.generation + 1}
	return nil
}

// Poisoned reports whether a previous update panicked.
func (c *SnapshotCell) Poisoned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.poisoned
}
