package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"tenantcore.io/internal/audit"
)

type fakeLogStore struct {
	appended []*audit.LogEntry
	search   func(q audit.Query, page audit.PageRequest) (audit.Page, error)
	byRes    func(rt audit.ResourceType, id int64) ([]audit.LogEntry, error)
}

func (f *fakeLogStore) Append(_ context.Context, entry *audit.LogEntry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeLogStore) Search(_ context.Context, q audit.Query, page audit.PageRequest) (audit.Page, error) {
	if f.search != nil {
		return f.search(q, page)
	}
	return audit.Page{Number: page.Number, Size: page.Size}, nil
}

func (f *fakeLogStore) ListByResource(_ context.Context, rt audit.ResourceType, id int64) ([]audit.LogEntry, error) {
	if f.byRes != nil {
		return f.byRes(rt, id)
	}
	return nil, nil
}

func (f *fakeLogStore) HasAny(context.Context, audit.ResourceType) (bool, error) {
	return len(f.appended) > 0, nil
}

func newTestAPI(store audit.LogStore) *API {
	opts := Options{Version: "test"}
	if store != nil {
		opts.AuditLog = audit.NewLogService(store)
	}
	return New(ReadyProbe{}, opts)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(nil)
	rec := httptest.NewRecorder()
	api.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestReadyWithoutDB(t *testing.T) {
	api := newTestAPI(nil)
	rec := httptest.NewRecorder()
	api.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuditEventsQueryParsing(t *testing.T) {
	var gotQuery audit.Query
	var gotPage audit.PageRequest
	store := &fakeLogStore{
		search: func(q audit.Query, page audit.PageRequest) (audit.Page, error) {
			gotQuery, gotPage = q, page
			return audit.Page{
				Items: []audit.LogEntry{{
					ID:           uuid.New(),
					EventType:    audit.EventUpdate,
					ResourceType: "invoice",
					ResourceID:   101,
					TenantID:     42,
				}},
				TotalCount: 1,
				Number:     page.Number,
				Size:       page.Size,
			}, nil
		},
	}
	api := newTestAPI(store)

	req := httptest.NewRequest(http.MethodGet,
		"/v1/audit/events?resource_type=invoice&resource_id=101&tenant_id=42&event_type=update"+
			"&min_timestamp=2026-01-01T00:00:00Z&page=2&page_size=50", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gotQuery.ResourceTypes) != 1 || gotQuery.ResourceTypes[0] != "invoice" {
		t.Fatalf("resource types not parsed: %v", gotQuery.ResourceTypes)
	}
	if len(gotQuery.ResourceIDs) != 1 || gotQuery.ResourceIDs[0] != 101 {
		t.Fatalf("resource ids not parsed: %v", gotQuery.ResourceIDs)
	}
	if len(gotQuery.TenantIDs) != 1 || gotQuery.TenantIDs[0] != 42 {
		t.Fatalf("tenant ids not parsed: %v", gotQuery.TenantIDs)
	}
	if len(gotQuery.EventTypes) != 1 || gotQuery.EventTypes[0] != audit.EventUpdate {
		t.Fatalf("event types not parsed: %v", gotQuery.EventTypes)
	}
	if gotQuery.MinTimestamp == nil || !gotQuery.MinTimestamp.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("min timestamp not parsed: %v", gotQuery.MinTimestamp)
	}
	if gotPage.Number != 2 || gotPage.Size != 50 {
		t.Fatalf("page not parsed: %+v", gotPage)
	}

	var body auditEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.TotalCount != 1 || len(body.Items) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAuditEventsBadParams(t *testing.T) {
	api := newTestAPI(&fakeLogStore{})
	for _, target := range []string{
		"/v1/audit/events?event_type=rename",
		"/v1/audit/events?resource_id=abc",
		"/v1/audit/events?tenant_id=-1",
		"/v1/audit/events?min_timestamp=yesterday",
		"/v1/audit/events?page=-2",
		"/v1/audit/events?page_size=0",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestAuditEventsEmptyResult(t *testing.T) {
	api := newTestAPI(&fakeLogStore{})
	req := httptest.NewRequest(http.MethodGet, "/v1/audit/events", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body auditEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Items == nil || len(body.Items) != 0 {
		t.Fatalf("expected empty items array, got %v", body.Items)
	}
	if body.PageSize != 20 {
		t.Fatalf("expected default page size 20, got %d", body.PageSize)
	}
}

func TestAuditResourceTrail(t *testing.T) {
	store := &fakeLogStore{
		byRes: func(rt audit.ResourceType, id int64) ([]audit.LogEntry, error) {
			if rt != "invoice" || id != 101 {
				t.Fatalf("unexpected lookup: %s/%d", rt, id)
			}
			return []audit.LogEntry{
				{ID: uuid.New(), EventType: audit.EventUpdate, ResourceType: rt, ResourceID: id},
				{ID: uuid.New(), EventType: audit.EventCreate, ResourceType: rt, ResourceID: id},
			}, nil
		},
	}
	api := newTestAPI(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/resources/invoice/101", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items []audit.LogEntry `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(body.Items))
	}
}

func TestAuditResourceBadPath(t *testing.T) {
	api := newTestAPI(&fakeLogStore{})
	for target, want := range map[string]int{
		"/v1/audit/resources/invoice":     http.StatusNotFound,
		"/v1/audit/resources/invoice/0":   http.StatusBadRequest,
		"/v1/audit/resources/invoice/abc": http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
}

func TestAuditEventsMethodNotAllowed(t *testing.T) {
	api := newTestAPI(&fakeLogStore{})
	req := httptest.NewRequest(http.MethodPost, "/v1/audit/events", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
