package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector arbor exports.
type Metrics struct {
	registry *prometheus.Registry

	Asks           *prometheus.CounterVec
	AskDuration    prometheus.Histogram
	Clears         *prometheus.CounterVec
	LayoutNodes    prometheus.Gauge
	LayoutDuration prometheus.Histogram
	TreeNodes      *prometheus.GaugeVec
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, alongside the
// standard process and Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Asks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_asks_total",
				Help: "Total number of asks by outcome",
			},
			[]string{"outcome"},
		),
		AskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbor_ask_duration_seconds",
				Help:    "Duration of asks, including the answerer",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		Clears: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_clears_total",
				Help: "Total number of conversation clears by outcome",
			},
			[]string{"outcome"},
		),
		LayoutNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbor_layout_nodes",
				Help: "Number of nodes placed by the last layout pass",
			},
		),
		LayoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbor_layout_duration_seconds",
				Help:    "Duration of layout passes",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		TreeNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arbor_tree_nodes",
				Help: "Number of nodes per stored conversation",
			},
			[]string{"conversation"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "arbor_http_request_duration_seconds",
				Help: "HTTP request latency by route",
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.Asks, m.AskDuration, m.Clears,
		m.LayoutNodes, m.LayoutDuration, m.TreeNodes,
		m.Requests, m.RequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveTree records the size of a conversation; an empty tree drops the series.
func (m *Metrics) ObserveTree(conversationID string, nodes int) {
	if nodes == 0 {
		m.TreeNodes.DeleteLabelValues(conversationID)
		return
	}
	m.TreeNodes.WithLabelValues(conversationID).Set(float64(nodes))
}
