package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// allowlistStatus runs one request from remoteAddr through the allowlist
// and reports the resulting status code.
func allowlistStatus(t *testing.T, cidrs []string, remoteAddr string) int {
	t.Helper()
	handler := IPAllowlist(cidrs, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestIPAllowlist_MatchesCIDRs(t *testing.T) {
	podCIDRs := []string{"10.42.0.0/16", "127.0.0.0/8"}

	tests := []struct {
		name   string
		remote string
		status int
	}{
		{"pod network allowed", "10.42.3.17:40312", http.StatusOK},
		{"loopback allowed", "127.0.0.1:40312", http.StatusOK},
		{"loopback without port", "127.0.0.1", http.StatusOK},
		{"other private range denied", "192.168.1.50:40312", http.StatusForbidden},
		{"public address denied", "203.0.113.9:40312", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, allowlistStatus(t, podCIDRs, tt.remote))
		})
	}
}

func TestIPAllowlist_IPv6Loopback(t *testing.T) {
	assert.Equal(t, http.StatusOK, allowlistStatus(t, []string{"::1/128"}, "[::1]:40312"))
}

func TestIPAllowlist_EmptyListDeniesEverything(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, allowlistStatus(t, nil, "127.0.0.1:40312"))
}

func TestIPAllowlist_BadCIDRSkippedNotFatal(t *testing.T) {
	// The malformed entry is dropped; the valid one still admits loopback.
	cidrs := []string{"10.42.0.0/notmask", "127.0.0.0/8"}
	assert.Equal(t, http.StatusOK, allowlistStatus(t, cidrs, "127.0.0.1:40312"))
	assert.Equal(t, http.StatusForbidden, allowlistStatus(t, cidrs, "10.42.0.1:40312"))
}

func TestIPAllowlist_DenialBodyIsStructuredError(t *testing.T) {
	handler := IPAllowlist([]string{"10.42.0.0/16"}, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/heap", nil)
	req.RemoteAddr = "203.0.113.9:40312"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN", body["error"]["code"])
}

func pprofRouter(cidrs []string) *chi.Mux {
	r := chi.NewRouter()
	RegisterPprof(r, cidrs, quietLogger())
	return r
}

func TestRegisterPprof_ServesIndexToAllowedIP(t *testing.T) {
	r := pprofRouter([]string{"127.0.0.0/8"})

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:40312"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pprof")
}

func TestRegisterPprof_HeapProfileViaCatchAll(t *testing.T) {
	r := pprofRouter([]string{"127.0.0.0/8"})

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/heap", nil)
	req.RemoteAddr = "127.0.0.1:40312"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterPprof_GateAppliesToAllRoutes(t *testing.T) {
	r := pprofRouter([]string{"10.42.0.0/16"})

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.9:40312"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "path %s should be gated", path)
	}
}
