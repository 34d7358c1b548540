// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInspectCommand_SinglePlugin(t *testing.T) {
	path := writeTestConfig(t, testConfig)

	out, _, err := execute(t, "--config", path, "inspect", "css")
	require.NoError(t, err)

	var reports []struct {
		Index        int               `yaml:"index"`
		Name         string            `yaml:"name"`
		Hooks        map[string]string `yaml:"hooks"`
		Filters      map[string]any    `yaml:"filters"`
		Capabilities []string          `yaml:"capabilities"`
		Watch        []string          `yaml:"watch"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, 1, r.Index)
	assert.Equal(t, "css", r.Name)
	assert.Equal(t, map[string]string{"load": "post", "transform": "post"}, r.Hooks)
	assert.Contains(t, r.Filters, "load")
	assert.Equal(t, []string{"**"}, r.Capabilities)
	assert.Equal(t, []string{"postcss.config.js"}, r.Watch)
}

func TestInspectCommand_AllPlugins(t *testing.T) {
	path := writeTestConfig(t, testConfig)

	out, _, err := execute(t, "--config", path, "inspect")
	require.NoError(t, err)

	assert.Contains(t, out, "name: alias")
	assert.Contains(t, out, "name: css")
	assert.Contains(t, out, "name: env")
	assert.Contains(t, out, "- watch.*")
}

func TestInspectCommand_UnknownPlugin(t *testing.T) {
	path := writeTestConfig(t, testConfig)

	_, _, err := execute(t, "--config", path, "inspect", "nope")
	assert.ErrorContains(t, err, `no plugin named "nope"`)
}
