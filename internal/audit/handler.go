package audit

import (
	"context"

	"tenantcore.io/internal/obs"
)

// RegisterLogWriter subscribes the log-writing handler: every published event
// is appended to the audit log. The write runs detached from the triggering
// call's cancellation so a timed-out caller cannot abort it mid-flight, and a
// failed write is logged and counted, never propagated back into the
// business mutation.
func RegisterLogWriter(bus *Bus, svc *LogService) {
	bus.Subscribe(func(ctx context.Context, evt Event) {
		ctx = context.WithoutCancel(ctx)
		if err := svc.Append(ctx, evt); err != nil {
			obs.IncAuditFailed("append")
			obs.LogError("audit log append failed", map[string]any{
				"event_type":    string(evt.EventType),
				"resource_type": string(evt.ResourceType),
				"resource_id":   evt.ResourceID,
				"tenant_id":     evt.TenantID,
				"error":         err.Error(),
			})
		}
	})
}
