// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Package capability scopes what a plugin context may do.
//
// Grants are glob patterns with '.' as the segment separator:
//   - '*' matches a single segment: "watch.*" matches "watch.add"
//   - '**' matches zero or more segments: "**" matches every capability
package capability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// Capabilities checked by plugin contexts.
const (
	Resolve     = "resolve"
	EmitFile    = "emit.file"
	WatchAdd    = "watch.add"
	ModulesRead = "modules.read"
	PluginsRead = "plugins.read"
)

// All lists every capability a context can check.
var All = []string{Resolve, EmitFile, WatchAdd, ModulesRead, PluginsRead}

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer maps plugin names to granted capability patterns.
//
// Enforcer is safe for concurrent use. Plugins without grants are denied everything.
type Enforcer struct {
	grants map[string][]compiledGrant
	mu     sync.RWMutex
}

// NewEnforcer creates an enforcer with no grants.
func NewEnforcer() *Enforcer {
	return &Enforcer{grants: make(map[string][]compiledGrant)}
}

// SetGrants replaces the grants of plugin. Every pattern is compiled before any state
// changes, so an invalid pattern leaves the enforcer untouched.
func (e *Enforcer) SetGrants(plugin string, patterns []string) error {
	if plugin == "" {
		return errors.New("plugin name cannot be empty")
	}

	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("capability %d: empty capability pattern", i)
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return fmt.Errorf("capability %d (%q): %w", i, pattern, err)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[plugin] = compiled
	return nil
}

// Grants returns a copy of the patterns granted to plugin, or nil if unregistered.
func (e *Enforcer) Grants(plugin string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	grants, ok := e.grants[plugin]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// Check reports whether plugin holds capability.
func (e *Enforcer) Check(plugin, capability string) bool {
	if capability == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, grant := range e.grants[plugin] {
		if grant.glob.Match(capability) {
			return true
		}
	}
	return false
}
