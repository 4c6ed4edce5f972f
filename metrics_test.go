package knora

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(ServiceRegistry, "login", time.Second)
		m.failure(ServiceRegistry, "login")
		m.retry("login")
	})
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	stubs := newStubServices(t)
	client, _ := newTestClient(t, Config{Target: stubs.target(), Metrics: metrics})
	ctx := context.Background()

	require.Error(t, client.Login(ctx, stubUser, "wrong"))
	require.NoError(t, client.Login(ctx, stubUser, stubPassword))
	_, err = client.CreateResource(ctx, Document{"restype_id": "X"})
	require.NoError(t, err)
	_, err = client.CreateResource(ctx, Document{"restype_id": "rejected"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestFailures.WithLabelValues("registry", "login")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RequestFailures.WithLabelValues("assetstore", "login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestFailures.WithLabelValues("registry", "create_resource")))

	// registry/login, assetstore/login, registry/create_resource
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.RequestDuration))
}
