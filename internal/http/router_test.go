package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	fiadohttp "github.com/MrJamesThe3rd/fiado/internal/http"
	"github.com/MrJamesThe3rd/fiado/internal/http/health"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
)

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.Charged(decimal.RequireFromString("12.50"))

	router := fiadohttp.New(
		zap.NewNop(),
		health.NewHandler("dev", time.Second, zap.NewNop(), nil),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	t.Run("Health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `fiado_ledger_movements_total{kind="charge"} 1`)
	})

	t.Run("NoBusinessRoutes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
