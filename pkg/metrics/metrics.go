// Package metrics exposes Prometheus counters for exports and rewrites.
//
// All methods are safe on a nil *Metrics, so callers that do not collect metrics can
// pass nil instead of a no-op implementation.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// Status label values besides the csverr codes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors of one service instance.
type Metrics struct {
	reg *prometheus.Registry

	exportCounter  *prometheus.CounterVec   // "app_csv_exports_total"
	exportDuration *prometheus.HistogramVec // "app_csv_export_duration_seconds"
	rowCounter     *prometheus.CounterVec   // "app_csv_rows_total"
	byteCounter    *prometheus.CounterVec   // "app_csv_bytes_total"
	rewriteCounter *prometheus.CounterVec   // "app_csv_rewrites_total"
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		exportCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_csv_exports_total",
				Help: "Export invocations, partitioned by sink and status.",
			},
			[]string{"sink", "status"},
		),
		exportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "app_csv_export_duration_seconds",
				Help:    "Duration of exports in seconds, partitioned by sink.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_csv_rows_total",
				Help: "Input rows rendered by successful exports, partitioned by sink.",
			},
			[]string{"sink"},
		),
		byteCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_csv_bytes_total",
				Help: "Bytes written by successful exports, partitioned by sink.",
			},
			[]string{"sink"},
		),
		rewriteCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "app_csv_rewrites_total",
				Help: "Query rewrites, partitioned by mode (wired, wrapped, chained) and status.",
			},
			[]string{"mode", "status"},
		),
	}

	reg.MustRegister(m.exportCounter, m.exportDuration, m.rowCounter, m.byteCounter, m.rewriteCounter)
	return m
}

// ObserveExport records one finished export.
func (m *Metrics) ObserveExport(sink string, rows, bytes int64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.exportCounter.WithLabelValues(sink, Status(err)).Inc()
	m.exportDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
	if err == nil {
		m.rowCounter.WithLabelValues(sink).Add(float64(rows))
		m.byteCounter.WithLabelValues(sink).Add(float64(bytes))
	}
}

// ObserveRewrite records one rewrite attempt. mode is empty when the rewrite failed.
func (m *Metrics) ObserveRewrite(mode string, err error) {
	if m == nil {
		return
	}
	if mode == "" {
		mode = "none"
	}
	m.rewriteCounter.WithLabelValues(mode, Status(err)).Inc()
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Status maps an error to a status label: "ok", the csverr code, or "error".
func Status(err error) string {
	if err == nil {
		return StatusOK
	}
	var cerr *csverr.Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return StatusError
}
