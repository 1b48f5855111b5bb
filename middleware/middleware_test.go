package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fakeVerifier(ctx context.Context, token string) (string, error) {
	if token == "good-token" {
		return "user_123", nil
	}
	return "", errors.New("bad signature")
}

func TestAuthMiddleware(t *testing.T) {
	var seen string
	h := AuthMiddleware(fakeVerifier, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetOwnerID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", "good-token", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good token", "Bearer good-token", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
	assert.Equal(t, "user_123", seen)
}

func TestGetOwnerIDEmpty(t *testing.T) {
	_, ok := GetOwnerID(context.Background())
	assert.False(t, ok)

	_, ok = GetOwnerID(WithOwnerID(context.Background(), ""))
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1, 172.16.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2"))

	rl.evictIdle(time.Now().Add(10 * time.Minute))
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestMetricsMonitorUsesRouteTemplate(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	r := mux.NewRouter()
	r.Use(m.Monitor)
	r.HandleFunc("/challenges/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/challenges/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/challenges/{id}", http.MethodGet, "401")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authRejections.WithLabelValues("401_unauthorized")))
}

func TestMetricsRecordTransition(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("active", "abandoned", "lapsed")
	m.RecordTransition("active", "abandoned", "lapsed")
	m.RecordRefreshFailures(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.challengeTransitions.WithLabelValues("active", "abandoned", "lapsed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.refreshFailures))
}

func TestBasicAuthMiddleware(t *testing.T) {
	h := BasicAuthMiddleware("ops", "secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req.SetBasicAuth("ops", "secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	open := BasicAuthMiddleware("", "", http.NotFoundHandler())
	rr = httptest.NewRecorder()
	open.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "metrics stay closed without credentials configured")
}

func TestPprofSecurityMiddleware(t *testing.T) {
	h := PprofSecurityMiddleware("s3cret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req.Header.Set("X-Pprof-Secret", "s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsMonitorUnmatchedRoute(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	h := m.Monitor(http.NotFoundHandler())
	for _, p := range []string{"/wp-admin", "/random/x1", "/random/x2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpRequestsTotal))
}

func TestCORSAllowsAnyOriginWithoutCredentials(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/challenges", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}
