package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LogEntry is the persisted projection of an Event. Entries are written once
// and never mutated; the version field belongs to the audited resource, not
// to the log row.
type LogEntry struct {
	ID           uuid.UUID       `json:"id"`
	EventType    EventType       `json:"audit_event_type"`
	Timestamp    time.Time       `json:"timestamp"`
	ResourceType ResourceType    `json:"resource_type"`
	ResourceID   int64           `json:"resource_id"`
	Resource     json.RawMessage `json:"resource"`
	TenantID     int64           `json:"tenant_id"`
	SessionID    int64           `json:"session_id"`
	Version      int             `json:"version"`
}

// Query filters the audit log. A nil/empty slice or bound leaves that
// predicate unconstrained; timestamp bounds are inclusive.
type Query struct {
	ResourceTypes []ResourceType
	ResourceIDs   []int64
	TenantIDs     []int64
	EventTypes    []EventType
	MinTimestamp  *time.Time
	MaxTimestamp  *time.Time
}

// PageRequest selects one page of results. Pages are zero-based.
type PageRequest struct {
	Number int
	Size   int
}

// Page carries one page of entries plus total-count metadata.
type Page struct {
	Items      []LogEntry
	TotalCount int64
	Number     int
	Size       int
}

// LogWriter appends entries to the insert-optimized projection.
type LogWriter interface {
	Append(ctx context.Context, entry *LogEntry) error
}

// LogReader queries the read-optimized projection.
type LogReader interface {
	Search(ctx context.Context, q Query, page PageRequest) (Page, error)
	ListByResource(ctx context.Context, resourceType ResourceType, resourceID int64) ([]LogEntry, error)
	HasAny(ctx context.Context, resourceType ResourceType) (bool, error)
}

// LogStore is the full persistence surface of the audit log.
type LogStore interface {
	LogWriter
	LogReader
}

// LogService exposes the audit log to handlers and to the query surface.
type LogService struct {
	store LogStore
}

// NewLogService wraps the store.
func NewLogService(store LogStore) *LogService {
	return &LogService{store: store}
}

// Append persists one event as a log entry, exactly once, keyed by a
// generated identifier. The write runs in its own transaction boundary and
// is never retried here.
func (s *LogService) Append(ctx context.Context, evt Event) error {
	entry := &LogEntry{
		ID:           uuid.New(),
		EventType:    evt.EventType,
		Timestamp:    evt.Timestamp,
		ResourceType: evt.ResourceType,
		ResourceID:   evt.ResourceID,
		Resource:     evt.Resource,
		TenantID:     evt.TenantID,
		SessionID:    evt.SessionID,
		Version:      evt.Version,
	}
	return s.store.Append(ctx, entry)
}

// Search returns the page of entries matching the filter, newest first
// unless the store applies a caller-imposed sort.
func (s *LogService) Search(ctx context.Context, q Query, page PageRequest) (Page, error) {
	if page.Size <= 0 {
		page.Size = 20
	}
	if page.Number < 0 {
		page.Number = 0
	}
	return s.store.Search(ctx, q, page)
}

// ListByResource returns the full trail for one resource.
func (s *LogService) ListByResource(ctx context.Context, resourceType ResourceType, resourceID int64) ([]LogEntry, error) {
	return s.store.ListByResource(ctx, resourceType, resourceID)
}

// IsEmpty reports whether no entry exists for the resource type, without
// materializing rows.
func (s *LogService) IsEmpty(ctx context.Context, resourceType ResourceType) (bool, error) {
	any, err := s.store.HasAny(ctx, resourceType)
	if err != nil {
		return false, err
	}
	return !any, nil
}
