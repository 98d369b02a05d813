package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewRegistry()

	m.ProviderError("coingecko", "coins")
	m.ProviderError("coingecko", "coins")
	m.PassDiscarded()
	m.CacheLookup("coins", true)
	m.CacheLookup("coins", false)
	m.CacheLookup("coins", false)
	m.SetPortfolioTotal(1234.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.providerErrors.WithLabelValues("coingecko", "coins")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesDiscarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("coins", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("coins", "miss")))
	assert.Equal(t, 1234.5, testutil.ToFloat64(m.portfolioTotal))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewRegistry()
	m.ObservePass("ok", 150*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(body, `portfolio_pass_duration_seconds_count{outcome="ok"} 1`), body)
	assert.True(t, strings.Contains(body, `portfolio_http_requests_total{method="GET",route="/health",status="200"} 1`), body)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePass("ok", time.Second)
	m.PassDiscarded()
	m.ProviderError("x", "y")
	m.CacheLookup("c", true)
	m.SetPortfolioTotal(1)
	m.ObserveRequest("GET", "/", 200, time.Second)
	assert.NotNil(t, m.Handler())
}
