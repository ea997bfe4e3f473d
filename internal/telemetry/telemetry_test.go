package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"

	"stabledesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewDisabled(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestMetricsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordProvisioningRun(ctx, "completed", "")
	m.RecordProvisioningRun(ctx, "failed", "create_organization")
	m.RecordRowsCreated(ctx, "horse", 3)
	m.RecordRowsCreated(ctx, "horse", 0)
	m.RecordLoginAttempt(ctx, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, md.Name)
			for _, dp := range sum.DataPoints {
				totals[md.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), totals["stabledesk_provisioning_runs_total"])
	assert.Equal(t, int64(3), totals["stabledesk_business_rows_created_total"])
	assert.Equal(t, int64(1), totals["stabledesk_login_attempts_total"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordProvisioningRun(context.Background(), "completed", "")
		m.RecordRowsCreated(context.Background(), "horse", 1)
		m.RecordLoginAttempt(context.Background(), false)
	})
}

func TestFiberMiddlewareStoresContext(t *testing.T) {
	app := fiber.New()
	app.Use(FiberMiddleware("test"))
	app.Get("/ping", func(c *fiber.Ctx) error {
		assert.NotNil(t, Context(c))
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
