// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package module_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-build/tessera/internal/module"
)

func TestNewTable_KeepsInsertionOrder(t *testing.T) {
	tbl := module.NewTable([]module.Info{
		{ID: "/src/main.js", IsEntry: true},
		{ID: "/src/util.js"},
	})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"/src/main.js", "/src/util.js"}, tbl.IDs())
}

func TestNewTable_DuplicateReplaces(t *testing.T) {
	tbl := module.NewTable([]module.Info{
		{ID: "a"},
		{ID: "b"},
		{ID: "a", IsEntry: true},
	})

	assert.Equal(t, []string{"a", "b"}, tbl.IDs())
	got, ok := tbl.Get("a")
	require.True(t, ok)
	assert.True(t, got.IsEntry)
}

func TestTable_GetReturnsCopy(t *testing.T) {
	tbl := module.NewTable([]module.Info{{ID: "a", ImportedIDs: []string{"b"}}})

	got, ok := tbl.Get("a")
	require.True(t, ok)
	got.ImportedIDs[0] = "mutated"

	again, _ := tbl.Get("a")
	assert.Equal(t, []string{"b"}, again.ImportedIDs)
}

func TestTable_GetMissing(t *testing.T) {
	tbl := module.NewTable(nil)
	_, ok := tbl.Get("nope")
	assert.False(t, ok)
}

func TestTable_NilIsEmpty(t *testing.T) {
	var tbl *module.Table
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.IDs())
	_, ok := tbl.Get("a")
	assert.False(t, ok)
}

func TestTable_Without(t *testing.T) {
	tbl := module.NewTable([]module.Info{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	pruned := tbl.Without("b")

	assert.Equal(t, []string{"a", "c"}, pruned.IDs())
	assert.Equal(t, 3, tbl.Len(), "original table is untouched")
}
