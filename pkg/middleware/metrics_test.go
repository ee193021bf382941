package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric pulls the first sample out of a Vec whose labels include
// every given pair. Returns nil when no sample matches.
func findMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		have := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			have[lp.GetName()] = lp.GetValue()
		}
		matched := true
		for k, v := range labels {
			if have[k] != v {
				matched = false
				break
			}
		}
		if matched {
			return d
		}
	}
	return nil
}

// cartRouter mounts a handler on the cart item route so the middleware
// sees a real chi route pattern.
func cartRouter(svc string, handler http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(svc))
	r.Delete("/api/cart/items/{productId}", handler)
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := cartRouter("storefront-count", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/api/cart/items/prod-001", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	m := findMetric(httpRequestsTotal, map[string]string{
		"service": "storefront-count",
		"method":  "DELETE",
		"path":    "/api/cart/items/{productId}",
		"status":  "200",
	})
	require.NotNil(t, m, "counter should be labelled with the route pattern, not the raw path")
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), float64(3))
}

func TestPrometheusMetrics_ObservesDuration(t *testing.T) {
	r := cartRouter("storefront-duration", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/cart/items/prod-002", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	m := findMetric(httpRequestDuration, map[string]string{
		"service": "storefront-duration",
		"status":  "204",
	})
	require.NotNil(t, m)
	assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
}

func TestPrometheusMetrics_InFlightDuringRequest(t *testing.T) {
	inFlight := float64(-1)
	r := cartRouter("storefront-inflight", func(w http.ResponseWriter, req *http.Request) {
		if m := findMetric(httpRequestsInFlight, map[string]string{"service": "storefront-inflight"}); m != nil {
			inFlight = m.GetGauge().GetValue()
		}
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/cart/items/prod-003", nil))

	assert.GreaterOrEqual(t, inFlight, float64(1), "gauge should register the request while it is in flight")

	// And drop back once the handler returns.
	m := findMetric(httpRequestsInFlight, map[string]string{"service": "storefront-inflight"})
	require.NotNil(t, m)
	assert.Equal(t, float64(0), m.GetGauge().GetValue())
}

func TestPrometheusMetrics_ErrorStatusRecorded(t *testing.T) {
	r := cartRouter("storefront-error", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/cart/items/prod-004", nil))
	require.Equal(t, http.StatusConflict, rr.Code)

	m := findMetric(httpRequestsTotal, map[string]string{
		"service": "storefront-error",
		"status":  "409",
	})
	require.NotNil(t, m)
}

func TestPrometheusMetrics_ImplicitStatusIs200(t *testing.T) {
	r := cartRouter("storefront-implicit", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`)) // no explicit WriteHeader
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/cart/items/prod-005", nil))

	m := findMetric(httpRequestsTotal, map[string]string{
		"service": "storefront-implicit",
		"status":  "200",
	})
	require.NotNil(t, m, "a handler that never calls WriteHeader counts as 200")
}
