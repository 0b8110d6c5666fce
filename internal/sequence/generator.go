// Package sequence supplies tenant-partitioned identifiers for newly
// inserted entities. Values are unique and monotonically increasing per
// (tenant, table) pair; counters for different tenants or tables are
// independent.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenantcore.io/internal/obs"
	"tenantcore.io/internal/reqctx"
	"tenantcore.io/internal/scope"
)

// ErrNoTableName indicates an entity name that derives to an empty table.
var ErrNoTableName = errors.New("sequence: cannot derive table name")

// Allocator is the storage engine's atomic counter: next value for the
// composite key (tenant, table), safe under arbitrary concurrent callers.
type Allocator interface {
	NextValue(ctx context.Context, table string, tenantID int64) (int64, error)
}

// Generator resolves the tenant from the request context and asks the
// allocator for the next identifier. It never falls back to a shared
// counter: a missing tenant context is fatal to the call.
type Generator struct {
	alloc Allocator
}

// NewGenerator builds a Generator on the given allocator.
func NewGenerator(alloc Allocator) *Generator {
	return &Generator{alloc: alloc}
}

// NextID returns the identifier for a new row of the entity. The table name
// is derived from the entity name; the tenant comes from the request
// context.
func (g *Generator) NextID(ctx context.Context, entityName string) (int64, error) {
	tenantID, ok := reqctx.CurrentTenantID(ctx)
	if !ok {
		return 0, fmt.Errorf("%w: sequence generation for %q", scope.ErrTenantContextMissing, entityName)
	}

	table, err := TableName(entityName)
	if err != nil {
		return 0, err
	}

	value, err := g.alloc.NextValue(ctx, table, tenantID)
	if err != nil {
		return 0, fmt.Errorf("sequence: next value for (%s, %d): %w", table, tenantID, err)
	}
	obs.IncSequenceAllocation(table)
	return value, nil
}

// TableName derives the table for an entity name: lower-case, with the
// conventional entity suffix stripped.
func TableName(entityName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(entityName))
	name = strings.TrimSuffix(name, "entity")
	if name == "" {
		return "", fmt.Errorf("%w from %q", ErrNoTableName, entityName)
	}
	return name, nil
}
