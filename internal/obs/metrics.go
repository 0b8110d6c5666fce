package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})
)

// Runtime metrics for the tenancy/audit subsystem.
var (
	auditEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_published_total",
			Help: "Audit events dispatched to the in-process bus.",
		},
		[]string{"event_type"},
	)

	auditEventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_failed_total",
			Help: "Audit events dropped before or during persistence.",
		},
		[]string{"reason"},
	)

	scopeSyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scope_sync_failures_total",
		Help: "Database request-scope set/reset calls that failed.",
	})

	sequenceAllocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_sequence_allocations_total",
			Help: "Identifier allocations served by the tenant sequence generator.",
		},
		[]string{"table"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
		auditEventsPublished, auditEventsFailed, scopeSyncFailures, sequenceAllocations,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// IncAuditPublished counts one dispatched audit event.
func IncAuditPublished(eventType string) {
	auditEventsPublished.WithLabelValues(eventType).Inc()
}

// IncAuditFailed counts one audit event lost to the given reason.
func IncAuditFailed(reason string) {
	auditEventsFailed.WithLabelValues(reason).Inc()
}

// IncScopeSyncFailure counts one failed scope set/reset round-trip.
func IncScopeSyncFailure() {
	scopeSyncFailures.Inc()
}

// IncSequenceAllocation counts one served identifier for the table.
func IncSequenceAllocation(table string) {
	sequenceAllocations.WithLabelValues(table).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-resource identifiers so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const auditPrefix = "/v1/audit/resources/"
	if strings.HasPrefix(path, auditPrefix) {
		rest := strings.Trim(strings.TrimPrefix(path, auditPrefix), "/")
		if parts := strings.Split(rest, "/"); len(parts) == 2 {
			return auditPrefix + ":type/:id"
		}
	}
	const seqPrefix = "/v1/sequences/"
	if strings.HasPrefix(path, seqPrefix) {
		rest := strings.Trim(strings.TrimPrefix(path, seqPrefix), "/")
		if rest != "" && !strings.Contains(rest, "/") {
			return seqPrefix + ":entity"
		}
	}
	const tenantPrefix = "/v1/tenants/"
	if strings.HasPrefix(path, tenantPrefix) {
		rest := strings.Trim(strings.TrimPrefix(path, tenantPrefix), "/")
		if parts := strings.Split(rest, "/"); len(parts) == 3 && parts[1] == "sequences" {
			return tenantPrefix + ":id/sequences/:entity"
		}
	}
	return path
}

// statusWriter records the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
