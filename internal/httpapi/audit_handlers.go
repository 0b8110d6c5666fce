package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tenantcore.io/internal/audit"
)

type auditEventsResponse struct {
	Items      []audit.LogEntry `json:"items"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// GET /v1/audit/events?resource_type=&resource_id=&tenant_id=&event_type=&min_timestamp=&max_timestamp=&page=&page_size=
func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.opts.AuditLog == nil {
		writeError(w, r, http.StatusNotImplemented, "audit log not configured")
		return
	}

	q, page, err := parseAuditQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.opts.AuditLog.Search(r.Context(), q, page)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit log query failed")
		return
	}
	if result.Items == nil {
		result.Items = []audit.LogEntry{}
	}
	writeJSON(w, http.StatusOK, auditEventsResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Page:       result.Number,
		PageSize:   result.Size,
	})
}

// GET /v1/audit/resources/{type}/{id}
func (a *API) handleAuditResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.opts.AuditLog == nil {
		writeError(w, r, http.StatusNotImplemented, "audit log not configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/audit/resources/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	resourceID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || resourceID <= 0 {
		writeError(w, r, http.StatusBadRequest, "resource id must be a positive integer")
		return
	}

	entries, err := a.opts.AuditLog.ListByResource(r.Context(), audit.ResourceType(parts[0]), resourceID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit log query failed")
		return
	}
	if entries == nil {
		entries = []audit.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
	})
}

func parseAuditQuery(values url.Values) (audit.Query, audit.PageRequest, error) {
	var q audit.Query

	for _, raw := range values["resource_type"] {
		if raw = strings.TrimSpace(raw); raw != "" {
			q.ResourceTypes = append(q.ResourceTypes, audit.ResourceType(raw))
		}
	}
	for _, raw := range values["event_type"] {
		switch et := audit.EventType(strings.ToUpper(strings.TrimSpace(raw))); et {
		case audit.EventCreate, audit.EventUpdate, audit.EventDelete:
			q.EventTypes = append(q.EventTypes, et)
		default:
			return q, audit.PageRequest{}, errBadParam("event_type", raw)
		}
	}

	ids, err := parseInt64List(values["resource_id"], "resource_id")
	if err != nil {
		return q, audit.PageRequest{}, err
	}
	q.ResourceIDs = ids

	tenants, err := parseInt64List(values["tenant_id"], "tenant_id")
	if err != nil {
		return q, audit.PageRequest{}, err
	}
	q.TenantIDs = tenants

	if raw := values.Get("min_timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, audit.PageRequest{}, errBadParam("min_timestamp", raw)
		}
		q.MinTimestamp = &ts
	}
	if raw := values.Get("max_timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, audit.PageRequest{}, errBadParam("max_timestamp", raw)
		}
		q.MaxTimestamp = &ts
	}

	page := audit.PageRequest{Size: 20}
	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, page, errBadParam("page", raw)
		}
		page.Number = n
	}
	if raw := values.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			return q, page, errBadParam("page_size", raw)
		}
		page.Size = n
	}
	return q, page, nil
}

func parseInt64List(raw []string, name string) ([]int64, error) {
	var out []int64
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, errBadParam(name, v)
		}
		out = append(out, id)
	}
	return out, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + " value " + strconv.Quote(e.value)
}

func errBadParam(name, value string) error {
	return paramError{name: name, value: value}
}
