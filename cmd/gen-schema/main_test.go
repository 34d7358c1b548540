// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-build/tessera/internal/config"
)

func TestRun_WritesSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "tessera.schema.json")

	require.NoError(t, run(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, config.SchemaID, doc["$id"])
}
