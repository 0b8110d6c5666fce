package pg

import (
	"context"
	"fmt"
	"regexp"

	"tenantcore.io/internal/sequence"
)

var _ sequence.Allocator = (*Store)(nil)

// Sequence identifiers are interpolated into DDL and nextval calls, so the
// generated names are validated against this shape before use.
var sequenceNamePattern = regexp.MustCompile(`^seq_[a-z0-9_]+$`)

// NextValue allocates the next identifier from the per-tenant sequence for
// the given table, creating the sequence on first use. Tables without a
// tenant_id column (and the organisation table itself) share one global
// sequence per table instead.
func (s *Store) NextValue(ctx context.Context, table string, tenantID int64) (int64, error) {
	tenantScoped, err := s.isTenantTable(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("pg: classify table %q: %w", table, err)
	}

	name := fmt.Sprintf("seq_%s", table)
	if tenantScoped {
		name = fmt.Sprintf("seq_%s_%d", table, tenantID)
	}
	if !sequenceNamePattern.MatchString(name) {
		return 0, fmt.Errorf("pg: unsafe sequence name %q", name)
	}

	exists, err := s.sequenceExists(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("pg: check sequence %q: %w", name, err)
	}
	if !exists {
		if err := s.createSequence(ctx, name, table, tenantID, tenantScoped); err != nil {
			return 0, fmt.Errorf("pg: create sequence %q: %w", name, err)
		}
	}

	var next int64
	if err := s.conn(ctx).QueryRowContext(ctx, fmt.Sprintf(`select nextval('%s')`, name)).Scan(&next); err != nil {
		return 0, fmt.Errorf("pg: advance sequence %q: %w", name, err)
	}
	return next, nil
}

func (s *Store) isTenantTable(ctx context.Context, table string) (bool, error) {
	var scoped bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`select table_column_exists($1, 'tenant_id') and $1 <> 'organisation'`,
		table,
	).Scan(&scoped)
	if err != nil {
		return false, err
	}
	return scoped, nil
}

func (s *Store) sequenceExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`select exists (select 1 from pg_sequences where sequencename = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// createSequence provisions the sequence. Tenant sequences occupy the id
// range assigned to the tenant so that identifiers never collide across
// tenants; global sequences start at one.
func (s *Store) createSequence(ctx context.Context, name, table string, tenantID int64, tenantScoped bool) error {
	if !tenantScoped {
		_, err := s.conn(ctx).ExecContext(ctx,
			fmt.Sprintf(`create sequence if not exists %s start with 1`, name))
		return err
	}

	var minValue, maxValue int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`select min_value, max_value from tenant_sequence_details($1)`,
		tenantID,
	).Scan(&minValue, &maxValue)
	if err != nil {
		return fmt.Errorf("resolve tenant range: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, fmt.Sprintf(
		`create sequence if not exists %s minvalue %d maxvalue %d start with %d`,
		name, minValue, maxValue, minValue,
	))
	return err
}
