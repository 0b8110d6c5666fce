package pg

import (
	"context"
	"strconv"

	"tenantcore.io/internal/scope"
)

var _ scope.Store = (*Store)(nil)

// The scope functions live in the database so that row level security
// policies can read the same connection-local settings the application
// writes. Each returns the number of settings it touched.

func (s *Store) SetTenantScope(ctx context.Context, tenantID int64) (int64, error) {
	return s.scanScopeResult(ctx, `select set_tenant_scope(CAST($1 AS TEXT))`, strconv.FormatInt(tenantID, 10))
}

func (s *Store) SetBusinessUnitScope(ctx context.Context, businessUnitID int64) (int64, error) {
	return s.scanScopeResult(ctx, `select set_business_unit_scope(CAST($1 AS TEXT))`, strconv.FormatInt(businessUnitID, 10))
}

// ResetRequestScope clears the connection-local settings. If the reset does
// not complete, the pinned connection is discarded rather than pooled: a
// connection whose scope state is unknown must never serve another request.
func (s *Store) ResetRequestScope(ctx context.Context) (int64, error) {
	n, err := s.scanScopeResult(ctx, `select reset_request_scope()`)
	if err != nil {
		s.discardSession(ctx)
	}
	return n, err
}

func (s *Store) scanScopeResult(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
