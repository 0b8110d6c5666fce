// Package audit records an immutable, queryable trail of who changed what
// and when. Mutating service calls are wrapped by a Recorder which extracts
// the audit stamp from the resulting resource and publishes an Event on an
// in-process bus; a handler appends the event to the audit log exactly once.
package audit

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType classifies the mutation that produced an audit event.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ResourceType tags the kind of resource a mutation touched.
type ResourceType string

// RootTenantID is the platform tenant that owns unscoped resources.
const RootTenantID int64 = 1

// ErrExtraction indicates a resource that reached the audit pipeline without
// the stamp fields the persistence layer is required to maintain. The event
// is not published; the triggering mutation is unaffected.
var ErrExtraction = errors.New("audit: resource audit extraction failed")

// Stamp records one change: which session made it and when.
type Stamp struct {
	SessionID int64     `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ResourceAudit is embedded in every auditable resource. The persistence
// layer sets created and lastChanged on insert and refreshes lastChanged on
// update; version follows the storage engine's optimistic lock. Business
// code never writes these fields.
type ResourceAudit struct {
	Version     int    `json:"version"`
	Created     *Stamp `json:"created,omitempty"`
	LastChanged *Stamp `json:"last_changed,omitempty"`
}

// Resource is the contract an auditable domain resource fulfils.
type Resource interface {
	ResourceID() int64
	ResourceType() ResourceType
	ResourceAudit() *ResourceAudit
}

// TenantScoped is implemented by tenant- and business-unit-scoped resources.
// The tenant must come from the resource's own scope data: by the time the
// audit pipeline runs, the ambient override may already be gone.
type TenantScoped interface {
	ScopeTenantID() (int64, bool)
}

// Event is the immutable record published for one completed mutation.
type Event struct {
	EventType    EventType       `json:"audit_event_type"`
	Timestamp    time.Time       `json:"timestamp"`
	ResourceType ResourceType    `json:"resource_type"`
	ResourceID   int64           `json:"resource_id"`
	Resource     json.RawMessage `json:"resource"`
	TenantID     int64           `json:"tenant_id"`
	SessionID    int64           `json:"session_id"`
	Version      int             `json:"version"`
}

// Extract builds an Event from a completed mutation's resource. It fails
// with ErrExtraction when the stamp is missing or incomplete, or when a
// scoped resource carries no tenant.
func Extract(eventType EventType, res Resource) (Event, error) {
	if eventType == "" {
		eventType = EventCreate
	}
	if res == nil {
		return Event{}, errors.New("audit: nil resource")
	}

	stamp := res.ResourceAudit()
	if stamp == nil {
		return Event{}, errors.Join(ErrExtraction, errors.New("missing resource audit"))
	}
	if stamp.LastChanged == nil || stamp.LastChanged.SessionID <= 0 {
		return Event{}, errors.Join(ErrExtraction, errors.New("missing last changed session id"))
	}
	if stamp.LastChanged.Timestamp.IsZero() {
		return Event{}, errors.Join(ErrExtraction, errors.New("missing last changed timestamp"))
	}

	tenantID := RootTenantID
	if scoped, ok := res.(TenantScoped); ok {
		id, present := scoped.ScopeTenantID()
		if !present || id <= 0 {
			return Event{}, errors.Join(ErrExtraction, errors.New("scoped resource carries no tenant"))
		}
		tenantID = id
	}

	snapshot, err := json.Marshal(res)
	if err != nil {
		return Event{}, errors.Join(ErrExtraction, err)
	}

	return Event{
		EventType:    eventType,
		Timestamp:    stamp.LastChanged.Timestamp,
		ResourceType: res.ResourceType(),
		ResourceID:   res.ResourceID(),
		Resource:     snapshot,
		TenantID:     tenantID,
		SessionID:    stamp.LastChanged.SessionID,
		Version:      stamp.Version,
	}, nil
}
