package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus collectors for a GFS fetch job. The job is a
// short-lived batch process, so collectors live in their own registry and
// are pushed to a Pushgateway instead of being scraped.
type Metrics struct {
	Registry *prometheus.Registry

	FilesDownloaded  prometheus.Counter
	BytesDownloaded  prometheus.Counter
	DownloadFailures prometheus.Counter
	DownloadDuration prometheus.Histogram

	// Job-level results.
	FetchDuration  prometheus.Gauge
	LastSuccess    prometheus.Gauge
	FilesPlanned   prometheus.Gauge
	NotifyFailures prometheus.Counter
}

// NewMetrics creates all fetch metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tdm",
			Name:      "gfs_files_downloaded_total",
			Help:      "GFS GRIB2 files downloaded and moved into place.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tdm",
			Name:      "gfs_bytes_downloaded_total",
			Help:      "Bytes written for downloaded GFS files.",
		}),
		DownloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tdm",
			Name:      "gfs_download_failures_total",
			Help:      "GFS file downloads that failed.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tdm",
			Name:      "gfs_download_duration_seconds",
			Help:      "Duration of a single GFS file download.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		FetchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tdm",
			Name:      "gfs_fetch_duration_seconds",
			Help:      "Wall time of the last fetch job.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tdm",
			Name:      "gfs_fetch_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch job.",
		}),
		FilesPlanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tdm",
			Name:      "gfs_files_planned",
			Help:      "Number of files the last fetch job attempted.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tdm",
			Name:      "gfs_notify_failures_total",
			Help:      "Completion notifications that could not be published.",
		}),
	}

	m.Registry.MustRegister(
		m.FilesDownloaded,
		m.BytesDownloaded,
		m.DownloadFailures,
		m.DownloadDuration,
		m.FetchDuration,
		m.LastSuccess,
		m.FilesPlanned,
		m.NotifyFailures,
	)

	return m
}

// Push sends the current metric values to a Pushgateway, replacing any
// previous values for job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
