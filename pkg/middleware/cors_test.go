package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testOrigins = []string{"http://localhost:5173", "https://pearlbloom.web.app"}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestOriginPolicy_IsAllowed(t *testing.T) {
	p := NewOriginPolicy([]string{" http://localhost:5173 ", "", "https://pearlbloom.web.app"})

	assert.True(t, p.IsAllowed("http://localhost:5173"))
	assert.True(t, p.IsAllowed("https://pearlbloom.web.app"))
	assert.False(t, p.IsAllowed("https://evil.example"))
	assert.False(t, p.IsAllowed(""))
	assert.ElementsMatch(t, testOrigins, p.Origins())
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	p := NewOriginPolicy([]string{"*"})

	assert.True(t, p.IsAllowed("https://anything.example"))
	assert.False(t, p.IsAllowed(""))
	assert.Equal(t, []string{"*"}, p.Origins())
}

func TestOriginPolicy_Nil(t *testing.T) {
	var p *OriginPolicy
	assert.False(t, p.IsAllowed("http://localhost:5173"))
}

func TestCORS_AllowedOrigin_EchoesAndSetsCredentials(t *testing.T) {
	handler := CORS(DefaultCORSConfig(NewOriginPolicy(testOrigins)))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/uploadimage", nil)
	req.Header.Set("Origin", "https://pearlbloom.web.app")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://pearlbloom.web.app", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin_StillServedWithoutEcho(t *testing.T) {
	handler := CORS(DefaultCORSConfig(NewOriginPolicy(testOrigins)))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/uploadimage", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Vary"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "POST,OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_StaticHeadersAlwaysSet(t *testing.T) {
	handler := CORS(DefaultCORSConfig(NewOriginPolicy(nil)))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/deleteimage", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "POST,OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rr.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_PreflightOptions_Returns204(t *testing.T) {
	handler := CORS(DefaultCORSConfig(NewOriginPolicy(testOrigins)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("should not reach"))
	}))

	for _, origin := range []string{"http://localhost:5173", "https://evil.example", ""} {
		req := httptest.NewRequest(http.MethodOptions, "/uploadimage", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code, origin)
		assert.Empty(t, rr.Body.String(), origin)
		assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"), origin)
	}
}

func TestCORS_CustomConfig(t *testing.T) {
	handler := CORS(CORSConfig{
		Policy:         NewOriginPolicy([]string{"*"}),
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "X-Custom"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         7200,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://anything.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET,POST", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Accept, X-Custom", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-Correlation-ID", rr.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "7200", rr.Header().Get("Access-Control-Max-Age"))
}
