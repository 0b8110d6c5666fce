package scope

import "errors"

var (
	// ErrTenantContextMissing indicates a tenant-scoped operation executed
	// with no resolvable tenant. Fatal to the current call; never defaulted.
	ErrTenantContextMissing = errors.New("scope: no tenant context")

	// ErrInvalidScopeArgument indicates an override requested with a
	// non-positive id. Rejected before any state mutation.
	ErrInvalidScopeArgument = errors.New("scope: invalid scope argument")

	// ErrScopeSync indicates the storage engine rejected a scope set/reset
	// call. The wrapped work must not be treated as having executed under a
	// valid scope.
	ErrScopeSync = errors.New("scope: database scope sync failed")
)
