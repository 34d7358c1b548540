// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tessera-build/tessera/internal/config"
	"github.com/tessera-build/tessera/internal/declarative"
	"github.com/tessera-build/tessera/internal/logging"
	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tessera CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tessera",
		Short: "Tessera - plugin orchestration for a JavaScript bundler",
		Long: `Tessera loads bundler plugins declared in tessera.yaml, orders them
per hook kind, and drives incremental rebuilds in watch mode.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "",
		"config file path (default ./"+xdg.ConfigFileName+", then the XDG config dir)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	cmd.AddCommand(NewOrderCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewWatchCmd())

	return cmd
}

// session holds what every subcommand derives from the configuration.
type session struct {
	path   string
	cwd    string
	cfg    *config.Config
	logger *slog.Logger
}

// resolveConfigPath returns --config, or the first config file found from the
// working directory, or "" to run on defaults.
func resolveConfigPath(cwd string) string {
	if configFile != "" {
		return configFile
	}
	return xdg.FindConfig(cwd)
}

func loadSession(cmd *cobra.Command) (*session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, oops.Wrapf(err, "determine working directory")
	}
	path := resolveConfigPath(wd)

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "log.level")
	}
	logger := logging.Setup("tessera", version, cfg.Log.Format, level, cmd.ErrOrStderr())

	cwd := wd
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		cwd = filepath.Dir(abs)
	}

	logger.Debug("configuration loaded", "path", path, "plugins", len(cfg.Plugins))
	return &session{path: path, cwd: cwd, cfg: cfg, logger: logger}, nil
}

// newDriver registers the configured plugins. Relative paths resolve against the
// directory holding the config file.
func (s *session) newDriver(opts ...plugin.DriverOption) (*plugin.Driver, error) {
	plugins, err := declarative.FromConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	enforcer, err := s.cfg.Enforcer()
	if err != nil {
		return nil, err
	}
	opts = append([]plugin.DriverOption{
		plugin.WithEnforcer(enforcer),
		plugin.WithLogger(s.logger),
	}, opts...)
	return plugin.New(plugins, nil, nil, s.cfg.PluginOptions(s.cwd), opts...)
}

// logFallback is used for errors raised before the configured logger exists.
func logFallback(cmd *cobra.Command) *slog.Logger {
	return logging.Setup("tessera", version, "text", slog.LevelInfo, cmd.ErrOrStderr())
}
