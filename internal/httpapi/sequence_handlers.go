package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tenantcore.io/internal/scope"
	"tenantcore.io/internal/sequence"
)

type allocateResponse struct {
	Entity   string `json:"entity"`
	TenantID int64  `json:"tenant_id"`
	Value    int64  `json:"value"`
}

// POST /v1/sequences/{entity} — allocate the next id for the caller's tenant.
func (a *API) handleSequenceAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.opts.Scope == nil || a.opts.Sequence == nil {
		writeError(w, r, http.StatusNotImplemented, "sequence generation not configured")
		return
	}

	entity := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sequences/"), "/")
	if entity == "" || strings.Contains(entity, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	tenantID, ok := a.opts.Scope.CurrentTenantID(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "tenant context required")
		return
	}

	value, err := a.opts.Sequence.NextID(r.Context(), entity)
	if err != nil {
		a.writeSequenceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allocateResponse{Entity: entity, TenantID: tenantID, Value: value})
}

// POST /v1/tenants/{tenant}/sequences/{entity} — allocate for an explicit
// tenant. The allocation runs inside a tenant-scoped block so both the
// context override and the database scope see the target tenant.
func (a *API) handleTenantSequenceAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.opts.Scope == nil || a.opts.Sequence == nil {
		writeError(w, r, http.StatusNotImplemented, "sequence generation not configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/tenants/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 3 || parts[1] != "sequences" || parts[0] == "" || parts[2] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	tenantID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "tenant id must be an integer")
		return
	}
	entity := parts[2]

	if _, ok := a.opts.Scope.CurrentSession(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var value int64
	err = a.opts.Scope.RunWithTenantID(r.Context(), tenantID, func(ctx context.Context) error {
		var nerr error
		value, nerr = a.opts.Sequence.NextID(ctx, entity)
		return nerr
	})
	if err != nil {
		a.writeSequenceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allocateResponse{Entity: entity, TenantID: tenantID, Value: value})
}

func (a *API) writeSequenceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scope.ErrTenantContextMissing):
		writeError(w, r, http.StatusUnauthorized, "tenant context required")
	case errors.Is(err, scope.ErrInvalidScopeArgument), errors.Is(err, sequence.ErrNoTableName):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "sequence allocation failed")
	}
}
