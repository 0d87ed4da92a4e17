package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Download metrics
var (
	// DownloadsTotal counts orchestration calls by source kind ("single", "playlist")
	// and outcome ("success", "skipped", "error", "canceled").
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Total number of download requests.",
		},
		[]string{"kind", "status"},
	)

	// PlaylistItemsTotal counts playlist items by outcome ("downloaded", "skipped", "failed").
	PlaylistItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_items_total",
			Help: "Total number of playlist items processed.",
		},
		[]string{"status"},
	)

	// ActiveDownloads tracks orchestration calls currently in flight.
	ActiveDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_downloads",
			Help: "Number of download requests currently running.",
		},
	)

	// ConversionsTotal counts standalone conversions by outcome.
	ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Total number of standalone MP3 conversions.",
		},
		[]string{"status"},
	)
)

// Provisioning and process metrics
var (
	// ProvisionTotal counts Ensure outcomes per tool ("cached", "extracted", "failed").
	ProvisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binary_provision_total",
			Help: "Total number of binary provisioning attempts.",
		},
		[]string{"tool", "result"},
	)

	// ProcessRunsTotal counts child processes by executable and mode ("once", "streamed").
	ProcessRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "process_runs_total",
			Help: "Total number of external tool invocations.",
		},
		[]string{"tool", "mode"},
	)

	// ProcessDuration observes wall time of child processes per executable.
	ProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "process_duration_seconds",
			Help:    "Duration of external tool invocations.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"tool"},
	)
)

func init() {
	prometheus.MustRegister(
		DownloadsTotal,
		PlaylistItemsTotal,
		ActiveDownloads,
		ConversionsTotal,
		ProvisionTotal,
		ProcessRunsTotal,
		ProcessDuration,
	)
}
