package scope

import (
	"context"
	"fmt"

	"tenantcore.io/internal/obs"
	"tenantcore.io/internal/session"
)

// Store is the storage engine's session-scoping surface. The engine filters
// all queries on the active session's scope (row-level security keyed on
// session variables), so the three operations below are the enforcement
// point for tenant isolation at the data layer.
type Store interface {
	// BindSession pins one database session to the context for the duration
	// of a scoped block. The returned release function must be called when
	// the block exits; the session must not be reused across calls while
	// carrying a scope.
	BindSession(ctx context.Context) (context.Context, func(), error)

	SetTenantScope(ctx context.Context, tenantID int64) (int64, error)
	SetBusinessUnitScope(ctx context.Context, businessUnitID int64) (int64, error)
	ResetRequestScope(ctx context.Context) (int64, error)
}

// PersistenceService decorates a Service so that every override is mirrored
// into the active database session: scope is set before work runs and reset
// on every exit path, including panic propagation and caller cancellation.
// Scope-setting failures abort the block; they are never retried here.
type PersistenceService struct {
	inner Service
	store Store
}

var _ Service = (*PersistenceService)(nil)

// NewPersistenceService wraps inner with database scope synchronization.
func NewPersistenceService(inner Service, store Store) *PersistenceService {
	return &PersistenceService{inner: inner, store: store}
}

// RunWithTenantID pushes the tenant override, sets the database tenant scope,
// runs work, and resets the database scope when the block exits.
func (s *PersistenceService) RunWithTenantID(ctx context.Context, tenantID int64, work Work) error {
	return s.inner.RunWithTenantID(ctx, tenantID, func(ctx context.Context) (err error) {
		ctx, release, berr := s.store.BindSession(ctx)
		if berr != nil {
			return fmt.Errorf("%w: bind session: %v", ErrScopeSync, berr)
		}
		defer release()
		defer s.reset(ctx, &err)

		if _, serr := s.store.SetTenantScope(ctx, tenantID); serr != nil {
			return fmt.Errorf("%w: set tenant scope %d: %v", ErrScopeSync, tenantID, serr)
		}
		return work(ctx)
	})
}

// RunWithBusinessUnitID pushes both overrides and sets tenant scope before
// business unit scope; both are active before work runs.
func (s *PersistenceService) RunWithBusinessUnitID(ctx context.Context, tenantID, businessUnitID int64, work Work) error {
	return s.inner.RunWithBusinessUnitID(ctx, tenantID, businessUnitID, func(ctx context.Context) (err error) {
		ctx, release, berr := s.store.BindSession(ctx)
		if berr != nil {
			return fmt.Errorf("%w: bind session: %v", ErrScopeSync, berr)
		}
		defer release()
		defer s.reset(ctx, &err)

		if _, serr := s.store.SetTenantScope(ctx, tenantID); serr != nil {
			return fmt.Errorf("%w: set tenant scope %d: %v", ErrScopeSync, tenantID, serr)
		}
		if _, serr := s.store.SetBusinessUnitScope(ctx, businessUnitID); serr != nil {
			return fmt.Errorf("%w: set business unit scope %d: %v", ErrScopeSync, businessUnitID, serr)
		}
		return work(ctx)
	})
}

// RunUnscoped resets the database scope before work so queries see across
// all tenants, and leaves it reset afterwards.
func (s *PersistenceService) RunUnscoped(ctx context.Context, work Work) error {
	return s.inner.RunUnscoped(ctx, func(ctx context.Context) error {
		ctx, release, berr := s.store.BindSession(ctx)
		if berr != nil {
			return fmt.Errorf("%w: bind session: %v", ErrScopeSync, berr)
		}
		defer release()

		if _, serr := s.store.ResetRequestScope(ctx); serr != nil {
			return fmt.Errorf("%w: reset request scope: %v", ErrScopeSync, serr)
		}
		return work(ctx)
	})
}

// reset issues reset_request_scope when the block unwinds. It runs detached
// from the caller's cancellation: the bound connection goes back to the pool
// and a skipped reset would leak this scope into an unrelated request. A
// reset failure is surfaced to the caller only when work itself succeeded;
// it never shadows the work's own error, but it is always observable in the
// logs.
func (s *PersistenceService) reset(ctx context.Context, werr *error) {
	if _, rerr := s.store.ResetRequestScope(context.WithoutCancel(ctx)); rerr != nil {
		obs.IncScopeSyncFailure()
		obs.LogError("request scope reset failed", map[string]any{"error": rerr.Error()})
		if *werr == nil {
			*werr = fmt.Errorf("%w: reset request scope: %v", ErrScopeSync, rerr)
		}
	}
}

// Read accessors are pure context projections; delegate to the inner service.

func (s *PersistenceService) CurrentSession(ctx context.Context) (session.Session, bool) {
	return s.inner.CurrentSession(ctx)
}

func (s *PersistenceService) CurrentUser(ctx context.Context) (session.AuthenticatedUser, bool) {
	return s.inner.CurrentUser(ctx)
}

func (s *PersistenceService) CurrentTenant(ctx context.Context) (session.AuthenticatedOrganisation, bool) {
	return s.inner.CurrentTenant(ctx)
}

func (s *PersistenceService) CurrentTenantID(ctx context.Context) (int64, bool) {
	return s.inner.CurrentTenantID(ctx)
}

func (s *PersistenceService) CurrentBusinessUnitID(ctx context.Context) (int64, bool) {
	return s.inner.CurrentBusinessUnitID(ctx)
}

func (s *PersistenceService) CurrentIsUnscoped(ctx context.Context) bool {
	return s.inner.CurrentIsUnscoped(ctx)
}
