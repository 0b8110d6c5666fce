// Package scope provides the security context service: read access to the
// current identity/scope and the runWith* override blocks, plus a
// persistence-aware decorator that mirrors every override into the active
// database session.
package scope

import (
	"context"
	"fmt"

	"tenantcore.io/internal/reqctx"
	"tenantcore.io/internal/session"
)

// Work is one unit of work executed under a scope override. It receives the
// derived context carrying the override frames; results are captured by
// closure.
type Work func(ctx context.Context) error

// Service runs work under temporary scope overrides and exposes read access
// to the current context. Override restoration is structural: the override
// lives only in the context passed to work, so every exit path — normal
// return, error, or panic propagation — leaves the caller's scope untouched.
type Service interface {
	RunWithTenantID(ctx context.Context, tenantID int64, work Work) error
	RunWithBusinessUnitID(ctx context.Context, tenantID, businessUnitID int64, work Work) error
	RunUnscoped(ctx context.Context, work Work) error

	CurrentSession(ctx context.Context) (session.Session, bool)
	CurrentUser(ctx context.Context) (session.AuthenticatedUser, bool)
	CurrentTenant(ctx context.Context) (session.AuthenticatedOrganisation, bool)
	CurrentTenantID(ctx context.Context) (int64, bool)
	CurrentBusinessUnitID(ctx context.Context) (int64, bool)
	CurrentIsUnscoped(ctx context.Context) bool
}

// ContextService is the pure implementation: it only manages context
// override frames. Database scope is handled by PersistenceService.
type ContextService struct{}

var _ Service = ContextService{}

// NewContextService returns the pure context-only service.
func NewContextService() ContextService { return ContextService{} }

// RunWithTenantID executes work with the tenant-id override pushed.
func (ContextService) RunWithTenantID(ctx context.Context, tenantID int64, work Work) error {
	if tenantID <= 0 {
		return fmt.Errorf("%w: tenant id %d", ErrInvalidScopeArgument, tenantID)
	}
	return work(reqctx.WithTenantOverride(ctx, tenantID))
}

// RunWithBusinessUnitID executes work with both the tenant and the business
// unit override pushed, tenant first.
func (ContextService) RunWithBusinessUnitID(ctx context.Context, tenantID, businessUnitID int64, work Work) error {
	if tenantID <= 0 {
		return fmt.Errorf("%w: tenant id %d", ErrInvalidScopeArgument, tenantID)
	}
	if businessUnitID <= 0 {
		return fmt.Errorf("%w: business unit id %d", ErrInvalidScopeArgument, businessUnitID)
	}
	ctx = reqctx.WithTenantOverride(ctx, tenantID)
	ctx = reqctx.WithBusinessUnitOverride(ctx, businessUnitID)
	return work(ctx)
}

// RunUnscoped executes work with the unscoped flag pushed. Used for
// operations that must see across all tenants.
func (ContextService) RunUnscoped(ctx context.Context, work Work) error {
	return work(reqctx.WithUnscoped(ctx, true))
}

func (ContextService) CurrentSession(ctx context.Context) (session.Session, bool) {
	return reqctx.CurrentSession(ctx)
}

func (ContextService) CurrentUser(ctx context.Context) (session.AuthenticatedUser, bool) {
	return reqctx.CurrentUser(ctx)
}

func (ContextService) CurrentTenant(ctx context.Context) (session.AuthenticatedOrganisation, bool) {
	return reqctx.CurrentOrganisation(ctx)
}

func (ContextService) CurrentTenantID(ctx context.Context) (int64, bool) {
	return reqctx.CurrentTenantID(ctx)
}

func (ContextService) CurrentBusinessUnitID(ctx context.Context) (int64, bool) {
	return reqctx.CurrentBusinessUnitID(ctx)
}

func (ContextService) CurrentIsUnscoped(ctx context.Context) bool {
	return reqctx.IsUnscoped(ctx)
}
