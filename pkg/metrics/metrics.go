package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	receipts           *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
}

// New registers every collector on a fresh registry so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tudu_extractions_total",
			Help: "Model extraction calls by kind and outcome",
		}, []string{"kind", "outcome"}),
		extractionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tudu_extraction_duration_seconds",
			Help:    "Model extraction latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"kind"}),
		receipts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tudu_receipts_total",
			Help: "Receipts by final status",
		}, []string{"status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tudu_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		}, []string{"method", "route", "status"}),
	}
}

const (
	KindTodo    = "todo"
	KindReceipt = "receipt"
)

// ObserveExtraction records one extraction call.
func (m *Metrics) ObserveExtraction(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.extractions.WithLabelValues(kind, outcome).Inc()
	m.extractionDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ReceiptFinished(status string) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(status).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
