// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tessera-build/tessera/internal/declarative"
	"github.com/tessera-build/tessera/internal/plugin"
)

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [plugin...]",
		Short: "Show hook preferences, filters and capabilities of plugins",
		Long: `Show what the driver recorded for each plugin: its index, the hooks it declared
an order for, its load, resolve-id and transform filters, its capability grants
and its watched files. With no arguments every plugin is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			d, err := s.newDriver()
			if err != nil {
				return err
			}
			reports, err := inspectPlugins(s, d, args)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), reports)
		},
	}
}

type pluginReport struct {
	Index        int                           `yaml:"index"`
	Name         string                        `yaml:"name"`
	Hooks        map[string]string             `yaml:"hooks,omitempty"`
	Filters      map[string]*plugin.HookFilter `yaml:"filters,omitempty"`
	Capabilities []string                      `yaml:"capabilities"`
	Watch        []string                      `yaml:"watch,omitempty"`
}

func inspectPlugins(s *session, d *plugin.Driver, names []string) ([]pluginReport, error) {
	byName := make(map[string]plugin.PluginIdx, d.Len())
	for i, name := range d.Names() {
		byName[name] = plugin.PluginIdx(i)
	}

	selected := make([]plugin.PluginIdx, 0, d.Len())
	if len(names) == 0 {
		for i := range d.Len() {
			selected = append(selected, plugin.PluginIdx(i))
		}
	}
	for _, name := range names {
		idx, ok := byName[name]
		if !ok {
			return nil, oops.With("plugin", name).Errorf("no plugin named %q", name)
		}
		selected = append(selected, idx)
	}

	enforcer, err := s.cfg.Enforcer()
	if err != nil {
		return nil, err
	}

	reports := make([]pluginReport, 0, len(selected))
	for _, idx := range selected {
		p := d.Plugin(idx)
		r := pluginReport{
			Index:        int(idx),
			Name:         p.Name(),
			Hooks:        make(map[string]string),
			Filters:      make(map[string]*plugin.HookFilter),
			Capabilities: enforcer.Grants(p.Name()),
		}
		filters := d.Filters(idx)
		for _, kind := range plugin.HookKinds() {
			if meta := p.HookMeta(kind); meta != nil {
				r.Hooks[kind.String()] = meta.Order.String()
			}
			if f := filters.For(kind); f != nil {
				r.Filters[kind.String()] = f
			}
		}
		if dp, ok := p.(*declarative.Plugin); ok {
			r.Watch = dp.Watched()
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return oops.Wrapf(err, "encode report")
	}
	return enc.Close()
}
