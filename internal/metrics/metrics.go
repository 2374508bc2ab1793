package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors exported on /metrics: HTTP traffic,
// order and bill throughput, and database query latency.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Orders          *prometheus.CounterVec
	BillsGenerated  prometheus.Counter
	DBQueryDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "canteen_http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canteen_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Orders: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "canteen_orders_total",
			Help: "Orders placed or moved into a status.",
		}, []string{"status"}),
		BillsGenerated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "canteen_bills_generated_total",
			Help: "Total number of monthly bills generated.",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canteen_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'insert_order', 'list_transactions'
	}

	for _, s := range []string{"PENDING", "PREPARING", "READY", "DELIVERED", "CANCELLED"} {
		m.Orders.WithLabelValues(s)
	}

	return m
}

// ObserveQuery records the time since start under queryType.
func (m *Metrics) ObserveQuery(queryType string, start time.Time) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// OrderStatus counts an order entering status.
func (m *Metrics) OrderStatus(status string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(status).Inc()
}

// BillGenerated counts one generated bill.
func (m *Metrics) BillGenerated() {
	if m == nil {
		return
	}
	m.BillsGenerated.Inc()
}
