// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a Driver and its contexts.
// A nil *Metrics disables recording.
type Metrics struct {
	DriverBuilds        *prometheus.CounterVec
	DriverBuildDuration prometheus.Histogram
	PluginsRegistered   prometheus.Gauge
	WatchFilesAdded     prometheus.Counter
	SnapshotReplaces    *prometheus.CounterVec
	ContextResolves     *prometheus.CounterVec
}

// NewMetrics creates driver metrics and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DriverBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_plugin_driver_builds_total",
				Help: "Total number of plugin driver constructions by kind and status",
			},
			[]string{"kind", "status"},
		),
		DriverBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tessera_plugin_driver_build_duration_seconds",
				Help:    "Plugin driver construction duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		PluginsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tessera_plugins_registered",
				Help: "Number of plugins registered with the current driver",
			},
		),
		WatchFilesAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tessera_watch_files_added_total",
				Help: "Total number of distinct paths added to watch sets",
			},
		),
		SnapshotReplaces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_module_snapshot_replacements_total",
				Help: "Total number of module snapshot replacements by status",
			},
			[]string{"status"},
		),
		ContextResolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_context_resolves_total",
				Help: "Total number of resolutions requested through plugin contexts",
			},
			[]string{"plugin", "status"},
		),
	}

	reg.MustRegister(
		m.DriverBuilds,
		m.DriverBuildDuration,
		m.PluginsRegistered,
		m.WatchFilesAdded,
		m.SnapshotReplaces,
		m.ContextResolves,
	)
	return m
}

// Status labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

func statusOf(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

func (m *Metrics) recordBuild(kind string, n int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DriverBuilds.WithLabelValues(kind, statusOf(err)).Inc()
	if err == nil {
		m.DriverBuildDuration.Observe(d.Seconds())
		m.PluginsRegistered.Set(float64(n))
	}
}

func (m *Metrics) recordWatchAdd() {
	if m == nil {
		return
	}
	m.WatchFilesAdded.Inc()
}

func (m *Metrics) recordSnapshotReplace(err error) {
	if m == nil {
		return
	}
	m.SnapshotReplaces.WithLabelValues(statusOf(err)).Inc()
}

func (m *Metrics) recordResolve(plugin string, err error) {
	if m == nil {
		return
	}
	m.ContextResolves.WithLabelValues(plugin, statusOf(err)).Inc()
}
