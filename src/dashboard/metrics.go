package dashboard

import (
	"time"

	"WaterTruckDashboard/src/processor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 加载与清洗相关的指标，使用独立的Registry
type Metrics struct {
	Registry *prometheus.Registry

	loads         *prometheus.CounterVec
	cleanDuration prometheus.Histogram
	rows          *prometheus.GaugeVec
	missing       *prometheus.GaugeVec
	fills         *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_loads_total",
				Help: "Total number of dataset loads by result",
			},
			[]string{"status"},
		),
		cleanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dataset_clean_duration_seconds",
				Help:    "Duration of the cleaning pipeline",
				Buckets: prometheus.DefBuckets,
			},
		),
		rows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dataset_rows",
				Help: "Rows in the current snapshot",
			},
			[]string{"table"},
		),
		missing: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dataset_missing_values",
				Help: "Missing values per tracked column in the current snapshot",
			},
			[]string{"stage", "column"},
		),
		fills: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_imputed_cells_total",
				Help: "Total number of imputed categorical cells by column and source",
			},
			[]string{"column", "source"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_requests_total",
				Help: "Total number of dashboard API requests",
			},
			[]string{"route", "status"},
		),
	}
}

// ObserveLoadError 记录一次加载失败
func (m *Metrics) ObserveLoadError() {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("error").Inc()
}

// ObserveResult 记录一次成功的清洗
func (m *Metrics) ObserveResult(res *processor.Result, took time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("ok").Inc()
	m.cleanDuration.Observe(took.Seconds())
	m.rows.WithLabelValues("cleaned").Set(float64(res.Cleaned.Nrow()))
	m.rows.WithLabelValues("joined").Set(float64(res.Joined.Nrow()))

	m.missing.Reset()
	for _, e := range res.MissingBefore.Entries() {
		m.missing.WithLabelValues("before", e.Column).Set(float64(e.Count))
	}
	for _, e := range res.MissingAfter.Entries() {
		m.missing.WithLabelValues("after", e.Column).Set(float64(e.Count))
	}
	for _, f := range res.Fills {
		m.fills.WithLabelValues(f.Column, string(f.Source)).Inc()
	}
}

func (m *Metrics) observeRequest(route, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
}
