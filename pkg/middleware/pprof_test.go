package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fromAddr(h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPAllowlist_DefaultProfilingRanges(t *testing.T) {
	handler := IPAllowlist([]string{"127.0.0.0/8", "::1/128"}, discardLogger())(okHandler())

	tests := []struct {
		name   string
		remote string
		want   int
	}{
		{"ipv4 loopback", "127.0.0.1:6060", http.StatusOK},
		{"ipv6 loopback", "[::1]:6060", http.StatusOK},
		{"loopback without port", "127.0.0.1", http.StatusOK},
		{"lan address", "192.168.1.20:6060", http.StatusForbidden},
		{"other ipv6", "[2001:db8::1]:6060", http.StatusForbidden},
		{"unparseable peer", "not-an-ip", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fromAddr(handler, http.MethodGet, "/debug/pprof/", tc.remote).Code)
		})
	}
}

func TestIPAllowlist_DeniedRequestGetsJSONError(t *testing.T) {
	var buf bytes.Buffer
	handler := IPAllowlist([]string{"10.0.0.0/8"}, newTestLogger(&buf))(okHandler())

	rec := fromAddr(handler, http.MethodGet, "/debug/pprof/heap", "203.0.113.7:4000")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"access restricted by IP allowlist"}`, rec.Body.String())

	line := decodeLine(t, &buf)
	assert.Equal(t, "access denied by IP allowlist", line["msg"])
	assert.Equal(t, "203.0.113.7", line["ip"])
	assert.Equal(t, "/debug/pprof/heap", line["path"])
}

func TestIPAllowlist_CIDRListFromEnvironment(t *testing.T) {
	var buf bytes.Buffer
	handler := IPAllowlist([]string{" 10.0.0.0/8 ", "", "10.0.0.300/8"}, newTestLogger(&buf))(okHandler())

	assert.Equal(t, http.StatusOK, fromAddr(handler, http.MethodGet, "/debug/pprof/", "10.4.4.4:1").Code)
	assert.Contains(t, buf.String(), "invalid allowlist CIDR, skipping")
	assert.Contains(t, buf.String(), "10.0.0.300/8")
}

func TestIPAllowlist_NoRangesDeniesLoopback(t *testing.T) {
	handler := IPAllowlist(nil, discardLogger())(okHandler())

	assert.Equal(t, http.StatusForbidden, fromAddr(handler, http.MethodGet, "/debug/pprof/", "127.0.0.1:1").Code)
}

func TestParseCIDRs(t *testing.T) {
	nets := parseCIDRs([]string{"10.0.0.0/8", " ", "bogus", "fd00::/8"}, "trusted proxy", discardLogger())
	require.Len(t, nets, 2)

	assert.True(t, containsIP(nets, net.ParseIP("10.9.9.9")))
	assert.True(t, containsIP(nets, net.ParseIP("fd00::1")))
	assert.False(t, containsIP(nets, net.ParseIP("11.0.0.1")))
	assert.False(t, containsIP(nets, nil))
}

func TestRegisterPprof_ServesProfilesToAllowedPeers(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, discardLogger())

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/heap", "/debug/pprof/cmdline", "/debug/pprof/symbol"} {
		rec := fromAddr(r, http.MethodGet, path, "127.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRegisterPprof_DeniesOtherPeersWithJSON(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, discardLogger())

	rec := fromAddr(r, http.MethodGet, "/debug/pprof/cmdline", "192.168.1.1:1234")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access restricted by IP allowlist"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "pprof")
}
