// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tessera-build/tessera/internal/observability"
	"github.com/tessera-build/tessera/internal/plugin"
	"github.com/tessera-build/tessera/internal/watch"
	"github.com/tessera-build/tessera/pkg/errutil"
)

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd() *cobra.Command {
	var (
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever a watched file changes",
		Long: `Run a build pass, watch every file plugins added to the watch set, and rebuild
after changes settle for the debounce period. Each rebuild starts with a fresh
watch set and module snapshot. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, debounce, metricsAddr)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&debounce, "debounce", 50*time.Millisecond, "quiet period before a rebuild")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	f.StringSlice("input", nil, "entry modules")
	f.String("out-dir", "dist", "output directory")
	f.String("format", "esm", "output format: esm, cjs, iife, umd")
	f.String("platform", "", "target platform: browser, node, neutral")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, debounce time.Duration, metricsAddr string) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	s.cfg.Options.Watch = true

	var (
		ready     atomic.Bool
		opts      []plugin.DriverOption
		serveErrs <-chan error
	)
	if metricsAddr != "" {
		srv := observability.NewServer(metricsAddr, ready.Load, s.logger)
		serveErrs, err = srv.Start()
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				errutil.LogError(s.logger, "stop observability server", err)
			}
		}()
		opts = append(opts, plugin.WithMetrics(srv.Metrics()))
	}

	d, err := s.newDriver(opts...)
	if err != nil {
		return err
	}

	w, err := watch.New(d, watch.Config{
		Debounce: debounce,
		Logger:   s.logger,
		OnRebuild: func(d *plugin.Driver, changes []watch.Change, err error) {
			ready.Store(true)
			if err == nil {
				s.logger.Info("build pass complete",
					"build_id", d.BuildID().String(),
					"watched", d.WatchFiles().Len(),
					"changes", len(changes))
			}
		},
	})
	if err != nil {
		return err
	}

	runCtx, cancel := cancelOnServeError(ctx, serveErrs)
	defer cancel(nil)

	s.logger.Info("watching", "config", s.path, "plugins", d.Len())
	if err := w.Run(runCtx); err != nil {
		return err
	}
	if cause := context.Cause(runCtx); cause != nil &&
		!errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return nil
}

// cancelOnServeError derives a context that is cancelled with the first error the
// observability server reports after startup. A nil channel never cancels.
func cancelOnServeError(ctx context.Context, errs <-chan error) (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	if errs == nil {
		return ctx, cancel
	}
	go func() {
		select {
		case err, ok := <-errs:
			if ok && err != nil {
				cancel(oops.Wrapf(err, "observability server failed"))
			}
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
