// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tessera-build/tessera/internal/config"
	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/pkg/errutil"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a tessera.yaml without building",
		Long: `Validate a configuration file against the JSON schema, check semantic rules
(plugin names, hook kinds, orders, semver fields) and register every plugin.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch configuration errors early:
  tessera validate tessera.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				configFile = args[0]
			}
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return oops.Wrapf(err, "determine working directory")
	}
	path := resolveConfigPath(wd)
	if path == "" {
		return oops.Code(config.CodeLoadFailed).Errorf("no config file found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return oops.Code(config.CodeLoadFailed).With("path", path).Wrap(err)
	}
	if err := config.ValidateSchema(data); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, config.FormatSchemaError(err))
		return err
	}

	s, err := loadSession(cmd)
	if err != nil {
		errutil.LogError(logFallback(cmd), "config validation failed", err)
		return err
	}
	d, err := s.newDriver()
	if err != nil {
		errutil.LogError(s.logger, "plugin registration failed", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d plugins, plugin API %s)\n", path, d.Len(), plugin.APIVersion)
	return nil
}
