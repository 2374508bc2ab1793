package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/canteen/internal/metrics"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	m := metrics.New(reg)

	m.OrderStatus("DELIVERED")
	m.OrderStatus("DELIVERED")
	m.BillGenerated()
	m.ObserveQuery("insert_order", time.Now())
	m.ObserveRequest("GET", "/api/orders", "200", 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Orders.WithLabelValues("DELIVERED")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Orders.WithLabelValues("PENDING")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BillsGenerated), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/orders", "200")), 0)

	n, err := testutil.GatherAndCount(reg, "canteen_db_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics

	m.OrderStatus("PENDING")
	m.BillGenerated()
	m.ObserveQuery("noop", time.Now())
	m.ObserveRequest("GET", "/", "200", time.Second)
}

func TestNewRegistry(t *testing.T) {
	reg := metrics.NewRegistry()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
