package observability

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// MetricsConfig holds configuration for the metrics subsystem.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool
	// Namespace prefix for all metrics (default: ssomgr).
	Namespace string
	// Version is the application version for the info metric.
	Version string
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "ssomgr",
		Version:   "dev",
	}
}

// MetricsConfigFromEnv creates a MetricsConfig from environment variables.
// SSOMGR_METRICS_ENABLED: true/false (default: true)
// APP_VERSION: version string (default: dev)
func MetricsConfigFromEnv() MetricsConfig {
	cfg := DefaultMetricsConfig()
	if v := os.Getenv("SSOMGR_METRICS_ENABLED"); v != "" {
		cfg.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		cfg.Version = v
	}
	return cfg
}

// Metrics provides application metrics collection.
// Thread-safe for concurrent use.
type Metrics struct {
	mu        sync.RWMutex
	namespace string
	version   string

	// HTTP request counters: key = "method:path:status"
	httpRequestCounts map[string]*atomic.Int64

	// Rate limiter counters
	rateLimitAllowed  atomic.Int64
	rateLimitRejected atomic.Int64

	// Login outcome counters
	loginSucceeded atomic.Int64
	loginFailed    atomic.Int64
}

// NewMetrics creates a new Metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		namespace:         cfg.Namespace,
		version:           cfg.Version,
		httpRequestCounts: make(map[string]*atomic.Int64),
	}
}

// RecordHTTPRequest counts a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int) {
	if m == nil {
		return
	}
	key := fmt.Sprintf("%s:%s:%d", method, normalizePath(path), statusCode)

	m.mu.RLock()
	counter, ok := m.httpRequestCounts[key]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		counter, ok = m.httpRequestCounts[key]
		if !ok {
			counter = &atomic.Int64{}
			m.httpRequestCounts[key] = counter
		}
		m.mu.Unlock()
	}
	counter.Add(1)
}

// RecordRateLimitAllowed counts a request admitted by the rate limiter.
func (m *Metrics) RecordRateLimitAllowed() {
	if m != nil {
		m.rateLimitAllowed.Add(1)
	}
}

// RecordRateLimitRejected counts a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitRejected() {
	if m != nil {
		m.rateLimitRejected.Add(1)
	}
}

// RecordLogin counts a login attempt by outcome.
func (m *Metrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	if success {
		m.loginSucceeded.Add(1)
	} else {
		m.loginFailed.Add(1)
	}
}

// normalizePath collapses resource IDs so the metric cardinality stays
// bounded: /api/v1/providers/abc-123 -> /api/v1/providers/{id}
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i > 0 && part != "" && isResourceSegment(parts[i-1]) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isResourceSegment(s string) bool {
	switch s {
	case "providers", "users", "login":
		return true
	}
	return false
}

// Handler returns an HTTP handler exposing metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		fmt.Fprintf(w, "# HELP %s_info Application info.\n", m.namespace)
		fmt.Fprintf(w, "# TYPE %s_info gauge\n", m.namespace)
		fmt.Fprintf(w, "%s_info{version=%q} 1\n", m.namespace, m.version)

		fmt.Fprintf(w, "# HELP %s_http_requests_total Total HTTP requests by method, path and status.\n", m.namespace)
		fmt.Fprintf(w, "# TYPE %s_http_requests_total counter\n", m.namespace)

		m.mu.RLock()
		keys := make([]string, 0, len(m.httpRequestCounts))
		for k := range m.httpRequestCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts := strings.SplitN(k, ":", 3)
			if len(parts) != 3 {
				continue
			}
			fmt.Fprintf(w, "%s_http_requests_total{method=%q,path=%q,status=%q} %d\n",
				m.namespace, parts[0], parts[1], parts[2], m.httpRequestCounts[k].Load())
		}
		m.mu.RUnlock()

		fmt.Fprintf(w, "# HELP %s_rate_limit_total Rate limiter decisions.\n", m.namespace)
		fmt.Fprintf(w, "# TYPE %s_rate_limit_total counter\n", m.namespace)
		fmt.Fprintf(w, "%s_rate_limit_total{decision=\"allowed\"} %d\n", m.namespace, m.rateLimitAllowed.Load())
		fmt.Fprintf(w, "%s_rate_limit_total{decision=\"rejected\"} %d\n", m.namespace, m.rateLimitRejected.Load())

		fmt.Fprintf(w, "# HELP %s_logins_total Login attempts by outcome.\n", m.namespace)
		fmt.Fprintf(w, "# TYPE %s_logins_total counter\n", m.namespace)
		fmt.Fprintf(w, "%s_logins_total{outcome=\"success\"} %d\n", m.namespace, m.loginSucceeded.Load())
		fmt.Fprintf(w, "%s_logins_total{outcome=\"failure\"} %d\n", m.namespace, m.loginFailed.Load())
	})
}

// MetricsMiddleware records request counts for every HTTP request.
// A nil Metrics disables collection.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordHTTPRequest(r.Method, r.URL.Path, rec.status)
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
