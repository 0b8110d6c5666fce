package audit

import (
	"context"

	"tenantcore.io/internal/obs"
)

// Mutation is a mutating service call that yields the post-mutation resource.
type Mutation func(ctx context.Context) (Resource, error)

// Recorder wraps mutating service calls and publishes one audit event per
// successful mutation. It is the explicit decorator counterpart of an
// interceptor: business methods stay unaware of audit internals.
type Recorder struct {
	bus *Bus
}

// NewRecorder builds a Recorder publishing to the given bus.
func NewRecorder(bus *Bus) *Recorder {
	return &Recorder{bus: bus}
}

// Record executes work and, when it succeeds, extracts the audit stamp from
// the returned resource and publishes an event. A failed mutation never
// reaches the publish step. Extraction failures do not disturb the already
// completed mutation: the resource is still returned and the failure is
// logged and counted instead.
func (r *Recorder) Record(ctx context.Context, eventType EventType, work Mutation) (Resource, error) {
	res, err := work(ctx)
	if err != nil {
		return nil, err
	}

	evt, xerr := Extract(eventType, res)
	if xerr != nil {
		obs.IncAuditFailed("extraction")
		obs.LogError("audit event extraction failed", map[string]any{
			"event_type": string(eventType),
			"error":      xerr.Error(),
		})
		return res, nil
	}

	r.bus.Publish(ctx, evt)
	obs.IncAuditPublished(string(evt.EventType))
	return res, nil
}

// Created wraps a create mutation.
func (r *Recorder) Created(ctx context.Context, work Mutation) (Resource, error) {
	return r.Record(ctx, EventCreate, work)
}

// Updated wraps an update mutation.
func (r *Recorder) Updated(ctx context.Context, work Mutation) (Resource, error) {
	return r.Record(ctx, EventUpdate, work)
}

// Deleted wraps a delete mutation.
func (r *Recorder) Deleted(ctx context.Context, work Mutation) (Resource, error) {
	return r.Record(ctx, EventDelete, work)
}
