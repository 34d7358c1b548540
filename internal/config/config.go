// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package config loads and validates tessera.yaml build configurations.
package config

import (
	"regexp"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/internal/plugin/capability"
)

// Error codes returned by Validate and Load.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeLoadFailed      = "CONFIG_LOAD_FAILED"
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeAPIMismatch     = "API_VERSION_MISMATCH"
)

// Config is the root of a tessera.yaml file.
type Config struct {
	Version string         `koanf:"version" json:"version" jsonschema:"description=Semantic version of the configuration format"`
	API     string         `koanf:"api" json:"api,omitempty" jsonschema:"description=Semantic version constraint on the plugin API"`
	Options Options        `koanf:"options" json:"options,omitempty"`
	Log     Log            `koanf:"log" json:"log,omitempty"`
	Plugins []PluginConfig `koanf:"plugins" json:"plugins,omitempty"`
}

// Options are the build options shared with every plugin.
type Options struct {
	Input    []string `koanf:"input" json:"input,omitempty"`
	Dir      string   `koanf:"dir" json:"dir,omitempty"`
	Format   string   `koanf:"format" json:"format,omitempty" jsonschema:"enum=esm,enum=cjs,enum=iife,enum=umd"`
	Platform string   `koanf:"platform" json:"platform,omitempty" jsonschema:"enum=browser,enum=node,enum=neutral"`
	Watch    bool     `koanf:"watch" json:"watch,omitempty"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
}

// PluginConfig declares one plugin.
type PluginConfig struct {
	Name string `koanf:"name" json:"name" jsonschema:"minLength=1,maxLength=64,pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$"`
	// Hooks maps hook kind names to an order preference: pre, normal or post.
	Hooks        map[string]string `koanf:"hooks" json:"hooks,omitempty"`
	Filters      Filters           `koanf:"filters" json:"filters,omitempty"`
	Watch        []string          `koanf:"watch" json:"watch,omitempty"`
	Capabilities []string          `koanf:"capabilities" json:"capabilities,omitempty"`
}

// Filters holds the filter descriptors of the filterable hooks.
type Filters struct {
	Load      *plugin.HookFilter `koanf:"load" json:"load,omitempty"`
	ResolveID *plugin.HookFilter `koanf:"resolve-id" json:"resolve-id,omitempty"`
	Transform *plugin.HookFilter `koanf:"transform" json:"transform,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens. Cannot end with a hyphen.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

var validFormats = []string{"", "esm", "cjs", "iife", "umd"}

// Validate checks configuration constraints that the schema cannot express.
func (c *Config) Validate() error {
	errb := oops.Code(CodeInvalidConfig)

	if c.Version == "" {
		return errb.Errorf("version is required")
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return errb.With("version", c.Version).Wrapf(err, "version must be a semantic version")
	}
	if err := c.CheckAPI(); err != nil {
		return err
	}
	if !slices.Contains(validFormats, c.Options.Format) {
		return errb.With("format", c.Options.Format).Errorf("format must be one of esm, cjs, iife, umd")
	}

	seen := make(map[string]int, len(c.Plugins))
	for i := range c.Plugins {
		p := &c.Plugins[i]
		if prev, dup := seen[p.Name]; dup {
			return errb.With("plugin", p.Name).Errorf("plugin %q declared twice (entries %d and %d)", p.Name, prev, i)
		}
		seen[p.Name] = i
		if err := p.Validate(); err != nil {
			return oops.Code(CodeInvalidConfig).With("plugin_entry", i).Wrap(err)
		}
	}
	return nil
}

// CheckAPI reports whether the api constraint admits plugin.APIVersion. An empty
// constraint admits every version.
func (c *Config) CheckAPI() error {
	if c.API == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.API)
	if err != nil {
		return oops.Code(CodeInvalidConfig).With("api", c.API).Wrapf(err, "api must be a semantic version constraint")
	}
	if !constraint.Check(semver.MustParse(plugin.APIVersion)) {
		return oops.Code(CodeAPIMismatch).
			With("api", c.API).
			With("api_version", plugin.APIVersion).
			Errorf("plugin API %s does not satisfy %q", plugin.APIVersion, c.API)
	}
	return nil
}

// Validate checks a single plugin entry.
func (p *PluginConfig) Validate() error {
	errb := oops.Code(CodeInvalidConfig).With("plugin", p.Name)

	if p.Name == "" || !namePattern.MatchString(p.Name) {
		return errb.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", p.Name)
	}
	if len(p.Name) > maxNameLength {
		return errb.Errorf("name must be %d characters or less, got %d", maxNameLength, len(p.Name))
	}
	if _, err := p.HookOrders(); err != nil {
		return errb.Wrap(err)
	}
	for i, path := range p.Watch {
		if path == "" {
			return errb.Errorf("watch[%d] is empty", i)
		}
	}
	if err := capability.NewEnforcer().SetGrants(p.Name, p.Grants()); err != nil {
		return errb.Wrapf(err, "invalid capabilities")
	}
	return nil
}

// HookOrders parses the hooks map into order preferences keyed by hook kind.
func (p *PluginConfig) HookOrders() (map[plugin.HookKind]plugin.Order, error) {
	orders := make(map[plugin.HookKind]plugin.Order, len(p.Hooks))
	for name, order := range p.Hooks {
		kind, err := plugin.ParseHookKind(name)
		if err != nil {
			return nil, err
		}
		o, err := plugin.ParseOrder(order)
		if err != nil {
			return nil, oops.With("hook", name).Wrap(err)
		}
		orders[kind] = o
	}
	return orders, nil
}

// Grants returns the capability patterns of the plugin. An entry without
// capabilities is granted everything.
func (p *PluginConfig) Grants() []string {
	if len(p.Capabilities) == 0 {
		return []string{"**"}
	}
	return slices.Clone(p.Capabilities)
}

// PluginOptions converts the build options to the form shared with plugins.
func (c *Config) PluginOptions(cwd string) *plugin.Options {
	return &plugin.Options{
		Input:    slices.Clone(c.Options.Input),
		Dir:      c.Options.Dir,
		Format:   c.Options.Format,
		Platform: c.Options.Platform,
		Cwd:      cwd,
		Watch:    c.Options.Watch,
	}
}

// Enforcer builds a capability enforcer holding every plugin's grants.
func (c *Config) Enforcer() (*capability.Enforcer, error) {
	e := capability.NewEnforcer()
	for i := range c.Plugins {
		p := &c.Plugins[i]
		if err := e.SetGrants(p.Name, p.Grants()); err != nil {
			return nil, oops.Code(CodeInvalidConfig).With("plugin", p.Name).Wrapf(err, "invalid capabilities")
		}
	}
	return e, nil
}
