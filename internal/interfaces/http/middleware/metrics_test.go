package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetricsWithMeter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(HTTPMetricsWithMeter(mp.Meter("test"), nil))
	r.GET("/payments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/payments/a", "/payments/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	metrics := collectMetrics(t, reader)
	total, ok := metrics["http.server.request.total"]
	require.True(t, ok)

	sum := total.Data.(metricdata.Sum[int64])
	byRoute := map[string]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		byRoute[route.AsString()] += dp.Value
	}
	assert.EqualValues(t, 2, byRoute["/payments/:id"])
	assert.EqualValues(t, 1, byRoute["unmatched"])

	_, ok = metrics["http.server.request.duration"]
	assert.True(t, ok)
}

func TestHTTPMetrics_DisabledProvider(t *testing.T) {
	r := gin.New()
	r.Use(HTTPMetrics(nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
