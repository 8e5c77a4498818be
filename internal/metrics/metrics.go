// Package metrics counts rename and upload outcomes in Prometheus form and
// writes them as a node_exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one process. All methods are safe on a
// nil *Metrics so callers can leave metrics disabled.
type Metrics struct {
	reg *prometheus.Registry

	RenamesTotal      *prometheus.CounterVec
	UploadsTotal      *prometheus.CounterVec
	UploadBytesTotal  prometheus.Counter
	RunDuration       prometheus.Histogram
	LastRunTimestamp  prometheus.Gauge
	LastRunSuccessful prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		RenamesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_renames_total",
				Help: "Candidate files by rename outcome",
			},
			[]string{"outcome"},
		),
		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_uploads_total",
				Help: "Upload attempts by final status",
			},
			[]string{"status"},
		),
		UploadBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealsync_upload_bytes_total",
			Help: "Bytes uploaded successfully",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealsync_run_duration_seconds",
			Help:    "Wall time of a run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealsync_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		LastRunSuccessful: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealsync_last_run_success",
			Help: "1 if the last run finished without errors",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveRename(outcome string) {
	if m == nil {
		return
	}
	m.RenamesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpload(status string, bytes int64) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.UploadBytesTotal.Add(float64(bytes))
	}
}

// MarkRun records the end of a run that started at start.
func (m *Metrics) MarkRun(start, end time.Time, ok bool) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(end.Sub(start).Seconds())
	m.LastRunTimestamp.Set(float64(end.Unix()))
	if ok {
		m.LastRunSuccessful.Set(1)
	} else {
		m.LastRunSuccessful.Set(0)
	}
}

// WriteTextfile writes all metrics to path atomically. An empty path or a
// nil receiver is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
