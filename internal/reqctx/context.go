// Package reqctx holds the per-call request context: the current
// DecoratedAuthentication plus the three scope-override slots (tenant id,
// business unit id, unscoped flag).
//
// Everything lives in a context.Context value. Each override is installed by
// deriving a child context, so entering a scoped block pushes a frame and
// returning from it structurally restores the previous one — there is no
// mutable singleton shared across calls, and concurrent calls can never
// observe each other's overrides.
package reqctx

import (
	"context"

	"tenantcore.io/internal/session"
)

type (
	authenticationKey       struct{}
	tenantOverrideKey       struct{}
	businessUnitOverrideKey struct{}
	unscopedKey             struct{}
)

// WithAuthentication attaches the decoded authentication to the context.
func WithAuthentication(ctx context.Context, auth session.DecoratedAuthentication) context.Context {
	return context.WithValue(ctx, authenticationKey{}, &auth)
}

// Authentication extracts the current authentication, if one was attached.
func Authentication(ctx context.Context) (session.DecoratedAuthentication, bool) {
	if ctx == nil {
		return session.DecoratedAuthentication{}, false
	}
	v, ok := ctx.Value(authenticationKey{}).(*session.DecoratedAuthentication)
	if !ok || v == nil {
		return session.DecoratedAuthentication{}, false
	}
	return *v, true
}

// WithTenantOverride pushes a tenant-id override frame.
func WithTenantOverride(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantOverrideKey{}, tenantID)
}

// TenantOverride returns the innermost tenant-id override, if any.
func TenantOverride(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(tenantOverrideKey{}).(int64)
	return v, ok
}

// WithBusinessUnitOverride pushes a business-unit-id override frame.
func WithBusinessUnitOverride(ctx context.Context, businessUnitID int64) context.Context {
	return context.WithValue(ctx, businessUnitOverrideKey{}, businessUnitID)
}

// BusinessUnitOverride returns the innermost business-unit override, if any.
func BusinessUnitOverride(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(businessUnitOverrideKey{}).(int64)
	return v, ok
}

// WithUnscoped pushes an unscoped-flag frame.
func WithUnscoped(ctx context.Context, unscoped bool) context.Context {
	return context.WithValue(ctx, unscopedKey{}, unscoped)
}

// CurrentSession returns the session carried by the current authentication.
func CurrentSession(ctx context.Context) (session.Session, bool) {
	auth, ok := Authentication(ctx)
	if !ok || auth.Session == nil {
		return nil, false
	}
	return auth.Session, true
}

// CurrentSessionID returns the id of the current session.
func CurrentSessionID(ctx context.Context) (int64, bool) {
	s, ok := CurrentSession(ctx)
	if !ok {
		return 0, false
	}
	return s.Ref().SessionID, true
}

// CurrentUser returns the identity claims of the current authentication.
func CurrentUser(ctx context.Context) (session.AuthenticatedUser, bool) {
	auth, ok := Authentication(ctx)
	if !ok {
		return session.AuthenticatedUser{}, false
	}
	return auth.User, true
}

// CurrentOrganisation returns the organisation claims, when present.
func CurrentOrganisation(ctx context.Context) (session.AuthenticatedOrganisation, bool) {
	auth, ok := Authentication(ctx)
	if !ok || auth.Organisation == nil {
		return session.AuthenticatedOrganisation{}, false
	}
	return *auth.Organisation, true
}

// CurrentTenantID resolves the effective tenant: the innermost override when
// one is set, otherwise the tenant carried by the current session.
func CurrentTenantID(ctx context.Context) (int64, bool) {
	if id, ok := TenantOverride(ctx); ok {
		return id, true
	}
	s, ok := CurrentSession(ctx)
	if !ok {
		return 0, false
	}
	return session.TenantID(s)
}

// CurrentBusinessUnitID resolves the effective business unit: the innermost
// override when one is set, otherwise the business unit carried by the
// current session.
func CurrentBusinessUnitID(ctx context.Context) (int64, bool) {
	if id, ok := BusinessUnitOverride(ctx); ok {
		return id, true
	}
	s, ok := CurrentSession(ctx)
	if !ok {
		return 0, false
	}
	return session.BusinessUnitID(s)
}

// IsUnscoped reports whether the innermost unscoped frame is set to true.
func IsUnscoped(ctx context.Context) bool {
	v, ok := ctx.Value(unscopedKey{}).(bool)
	return ok && v
}
