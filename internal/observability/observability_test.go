package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithComponent(ctx, "storage")
	logger.InfoContext(ctx, "hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["component"] != "storage" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v", entry["key"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info record emitted below level: %s", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn record missing")
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context: %q", got)
	}
	ctx := WithRequestID(context.Background(), "abc")
	if got := RequestIDFromContext(ctx); got != "abc" {
		t.Errorf("got %q", got)
	}
	// Empty ids are not stored.
	if ctx := WithRequestID(context.Background(), ""); RequestIDFromContext(ctx) != "" {
		t.Error("empty id should not be stored")
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/providers":          "/api/v1/providers",
		"/api/v1/providers/abc-123":  "/api/v1/providers/{id}",
		"/api/v1/auth/sso/login/42":  "/api/v1/auth/sso/login/{id}",
		"/healthz":                   "/healthz",
		"/api/v1/users/u1":           "/api/v1/users/{id}",
		"/api/v1/dashboard/stats":    "/api/v1/dashboard/stats",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsHandlerOutput(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "ssomgr", Version: "test"})
	m.RecordHTTPRequest("GET", "/api/v1/providers/p1", 200)
	m.RecordHTTPRequest("GET", "/api/v1/providers/p2", 200)
	m.RecordRateLimitRejected()
	m.RecordLogin(true)
	m.RecordLogin(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	checks := []string{
		`ssomgr_info{version="test"} 1`,
		`ssomgr_http_requests_total{method="GET",path="/api/v1/providers/{id}",status="200"} 2`,
		`ssomgr_rate_limit_total{decision="rejected"} 1`,
		`ssomgr_logins_total{outcome="success"} 1`,
		`ssomgr_logins_total{outcome="failure"} 1`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(out.Body.String(), `status="418"} 1`) {
		t.Errorf("recorded status missing:\n%s", out.Body.String())
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest("GET", "/x", 200)
	m.RecordRateLimitAllowed()
	m.RecordLogin(true)

	called := false
	handler := MetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("nil metrics middleware must pass requests through")
	}
}
