package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// breakerConfig trips after 3 requests at a 50% failure rate and probes
// again after one second.
func breakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func newBreakerClient(name string) *CircuitBreakerClient {
	return NewCircuitBreakerClient(New(fastConfig(0)), breakerConfig(name), testLogger())
}

func doGet(t *testing.T, c *CircuitBreakerClient, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return c.Do(context.Background(), req)
}

// trip drives the breaker into the open state against a failing server.
func trip(t *testing.T, c *CircuitBreakerClient, url string) {
	t.Helper()
	for i := 0; i < 5; i++ {
		if resp, err := doGet(t, c, url); err == nil {
			resp.Body.Close()
		}
		if c.State() == gobreaker.StateOpen {
			return
		}
	}
	require.Equal(t, gobreaker.StateOpen, c.State(), "breaker should have tripped")
}

func TestBreaker_ClosedPassesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"orderId":"order-42","status":"Paid"}`))
	}))
	defer srv.Close()

	c := newBreakerClient("orders-closed")

	resp, err := doGet(t, c, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreaker_ServerErrorsCountAsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("order db unavailable"))
	}))
	defer srv.Close()

	c := newBreakerClient("orders-5xx")

	_, err := doGet(t, c, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error 500")
	assert.Contains(t, err.Error(), "order db unavailable")
}

func TestBreaker_TripsAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newBreakerClient("orders-trip")
	trip(t, c, srv.URL)

	// Once open, requests are rejected without touching the server.
	_, err := doGet(t, c, srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newBreakerClient("orders-recover")
	trip(t, c, srv.URL)

	failing.Store(false)
	time.Sleep(1100 * time.Millisecond) // past the breaker timeout

	resp, err := doGet(t, c, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreaker_FallbackInvokedWhenOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var fallbackCalls atomic.Int32
	c := newBreakerClient("orders-fallback").WithFallback(
		func(ctx context.Context, err error) (*http.Response, error) {
			fallbackCalls.Add(1)
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader(`{"error":"order service unavailable"}`)),
				Header:     http.Header{"Content-Type": []string{"application/json"}},
			}, nil
		})
	trip(t, c, srv.URL)

	resp, err := doGet(t, c, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), fallbackCalls.Load())
}

func TestBreaker_FallbackNotInvokedForOrdinaryFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var fallbackCalls atomic.Int32
	c := newBreakerClient("orders-nofallback").WithFallback(
		func(ctx context.Context, err error) (*http.Response, error) {
			fallbackCalls.Add(1)
			return nil, err
		})

	// Breaker still closed: the 5xx surfaces as an error, no fallback.
	_, err := doGet(t, c, srv.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(0), fallbackCalls.Load())
}

func TestBreaker_WithFallbackDoesNotMutateOriginal(t *testing.T) {
	base := newBreakerClient("orders-copy")
	wrapped := base.WithFallback(func(ctx context.Context, err error) (*http.Response, error) {
		return nil, err
	})

	assert.Nil(t, base.fallback)
	assert.NotNil(t, wrapped.fallback)
	assert.Same(t, base.breaker, wrapped.breaker)
}

func TestBreaker_4xxDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newBreakerClient("orders-4xx")
	for i := 0; i < 5; i++ {
		resp, err := doGet(t, c, srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}
