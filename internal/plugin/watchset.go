// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"slices"
	"unique"

	"github.com/puzpuzpuz/xsync/v3"
)

// WatchSet is the build-wide set of files whose changes trigger a rebuild.
//
// WatchSet is safe for concurrent use. Paths are interned, so repeated inserts of the
// same path from many modules share one string.
type WatchSet struct {
	paths *xsync.MapOf[unique.Handle[string], struct{}]
}

// NewWatchSet creates an empty watch set.
func NewWatchSet() *WatchSet {
	return &WatchSet{paths: xsync.NewMapOf[unique.Handle[string], struct{}]()}
}

// Add inserts path and reports whether it was not already present.
func (w *WatchSet) Add(path string) bool {
	_, loaded := w.paths.LoadOrStore(unique.Make(path), struct{}{})
	return !loaded
}

// Contains reports whether path is in the set.
func (w *WatchSet) Contains(path string) bool {
	_, ok := w.paths.Load(unique.Make(path))
	return ok
}

// Len returns the number of distinct paths.
func (w *WatchSet) Len() int {
	return w.paths.Size()
}

// Paths returns the watched paths in lexical order.
func (w *WatchSet) Paths() []string {
	out := make([]string, 0, w.paths.Size())
	w.paths.Range(func(h unique.Handle[string], _ struct{}) bool {
		out = append(out, h.Value())
		return true
	})
	slices.Sort(out)
	return out
}
