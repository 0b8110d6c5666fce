package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tenantcore.io/internal/audit"
)

var _ audit.LogStore = (*Store)(nil)

// Writes target the insert-optimized table; reads go through the
// vw_audit_event_log read view so the write path never carries read indexes.

func (s *Store) Append(ctx context.Context, entry *audit.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into audit_event_log
			(id, audit_event_type, timestamp, resource_type, resource_id, resource, tenant_id, session_id, version)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, string(entry.EventType), entry.Timestamp.UTC(), string(entry.ResourceType),
		entry.ResourceID, []byte(entry.Resource), entry.TenantID, entry.SessionID, entry.Version)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, q audit.Query, page audit.PageRequest) (audit.Page, error) {
	where, args := buildAuditFilter(q)

	var total int64
	countQuery := `select count(*) from vw_audit_event_log` + where
	if err := s.conn(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return audit.Page{}, err
	}

	listQuery := fmt.Sprintf(`
		select id, audit_event_type, timestamp, resource_type, resource_id, resource, tenant_id, session_id, version
		from vw_audit_event_log%s
		order by timestamp desc, id
		limit $%d offset $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Number*page.Size)

	rows, err := s.conn(ctx).QueryContext(ctx, listQuery, args...)
	if err != nil {
		return audit.Page{}, err
	}
	defer rows.Close()

	items, err := scanLogEntries(rows)
	if err != nil {
		return audit.Page{}, err
	}
	return audit.Page{
		Items:      items,
		TotalCount: total,
		Number:     page.Number,
		Size:       page.Size,
	}, nil
}

func (s *Store) ListByResource(ctx context.Context, resourceType audit.ResourceType, resourceID int64) ([]audit.LogEntry, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, audit_event_type, timestamp, resource_type, resource_id, resource, tenant_id, session_id, version
		from vw_audit_event_log
		where resource_type = $1 and resource_id = $2
		order by timestamp desc, id
	`, string(resourceType), resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func (s *Store) HasAny(ctx context.Context, resourceType audit.ResourceType) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`select exists (select 1 from vw_audit_event_log where resource_type = $1)`,
		string(resourceType),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// buildAuditFilter renders the dynamic WHERE clause. Slice predicates use
// ANY over a scalar list rendered per element because the stdlib driver
// interface has no native array binding.
func buildAuditFilter(q audit.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	addIn := func(column string, values []any) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("%s in (%s)", column, strings.Join(placeholders, ",")))
	}

	addIn("resource_type", stringArgs(q.ResourceTypes))
	addIn("resource_id", int64Args(q.ResourceIDs))
	addIn("tenant_id", int64Args(q.TenantIDs))
	addIn("audit_event_type", eventTypeArgs(q.EventTypes))

	if q.MinTimestamp != nil {
		args = append(args, q.MinTimestamp.UTC())
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if q.MaxTimestamp != nil {
		args = append(args, q.MaxTimestamp.UTC())
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

func stringArgs(types []audit.ResourceType) []any {
	out := make([]any, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func eventTypeArgs(types []audit.EventType) []any {
	out := make([]any, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func int64Args(ids []int64) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

func scanLogEntries(rows *sql.Rows) ([]audit.LogEntry, error) {
	var entries []audit.LogEntry
	for rows.Next() {
		var (
			e         audit.LogEntry
			eventType string
			resType   string
			ts        time.Time
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &ts, &resType, &e.ResourceID, &payload, &e.TenantID, &e.SessionID, &e.Version); err != nil {
			return nil, err
		}
		e.EventType = audit.EventType(eventType)
		e.ResourceType = audit.ResourceType(resType)
		e.Timestamp = ts
		e.Resource = payload
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
