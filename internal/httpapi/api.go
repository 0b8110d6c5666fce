// Package httpapi is the HTTP surface: health and info probes, the audit
// log query endpoints, and the authentication middleware that turns a
// request token into request-scoped context.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tenantcore.io/internal/audit"
	"tenantcore.io/internal/obs"
	"tenantcore.io/internal/scope"
	"tenantcore.io/internal/sequence"
	"tenantcore.io/internal/token"
)

// ReadyProbe pings the backing database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type Options struct {
	Version        string
	Codec          *token.Codec
	CookieName     string
	AuditLog       *audit.LogService
	Scope          scope.Service
	Sequence       *sequence.Generator
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
}

type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	opts       Options
}

func New(rp ReadyProbe, opts Options) *API {
	if opts.CookieName == "" {
		opts.CookieName = "tc_session"
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		opts:       opts,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.HandleFunc("/v1/audit/events", a.handleAuditEvents)
	a.mux.HandleFunc("/v1/audit/resources/", a.handleAuditResource)
	a.mux.HandleFunc("/v1/sequences/", a.handleSequenceAllocate)
	a.mux.HandleFunc("/v1/tenants/", a.handleTenantSequenceAllocate)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuthentication(h)
	if a.opts.MaxBodyBytes > 0 {
		h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	}
	if a.opts.RateLimitRPS > 0 {
		h = RateLimit(h, a.opts.RateLimitBurst, a.opts.RateLimitRPS)
	}
	h = SecurityHeaders(h)
	h = CORS(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tenantcore-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tenantcore-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
