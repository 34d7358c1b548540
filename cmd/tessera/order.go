// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tessera-build/tessera/internal/plugin"
)

// NewOrderCmd creates the order subcommand.
func NewOrderCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "order [hook...]",
		Short: "Print the plugin order for each hook kind",
		Long: `Print the order in which plugins run for each hook kind.

Plugins that declared "pre" for a hook run first, then plugins with no preference,
then plugins that declared "post". Within each group registration order is kept.
With no arguments every hook kind is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseHookKinds(args)
			if err != nil {
				return err
			}
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			d, err := s.newDriver()
			if err != nil {
				return err
			}
			return writeOrder(cmd.OutOrStdout(), d, kinds, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func parseHookKinds(args []string) ([]plugin.HookKind, error) {
	if len(args) == 0 {
		return plugin.HookKinds(), nil
	}
	kinds := make([]plugin.HookKind, 0, len(args))
	for _, arg := range args {
		kind, err := plugin.ParseHookKind(arg)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

type orderRow struct {
	Hook    string   `json:"hook"`
	Plugins []string `json:"plugins"`
}

func writeOrder(w io.Writer, d *plugin.Driver, kinds []plugin.HookKind, output string) error {
	rows := make([]orderRow, 0, len(kinds))
	for _, kind := range kinds {
		names := make([]string, 0, d.Len())
		for e := range d.OrderedPlugins(d.Order(kind)) {
			names = append(names, e.Plugin.Name())
		}
		rows = append(rows, orderRow{Hook: kind.String(), Plugins: names})
	}

	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "HOOK\tPLUGINS")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", r.Hook, strings.Join(r.Plugins, ", "))
		}
		return tw.Flush()
	default:
		return oops.With("output", output).Errorf("output must be text or json")
	}
}
