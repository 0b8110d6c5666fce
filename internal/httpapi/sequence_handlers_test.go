package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenantcore.io/internal/scope"
	"tenantcore.io/internal/sequence"
	"tenantcore.io/internal/session"
)

type recordingAllocator struct {
	lastTable  string
	lastTenant int64
	next       int64
}

func (a *recordingAllocator) NextValue(_ context.Context, table string, tenantID int64) (int64, error) {
	a.lastTable = table
	a.lastTenant = tenantID
	a.next++
	return a.next, nil
}

func newSequenceAPI(t *testing.T, alloc sequence.Allocator) *API {
	t.Helper()
	codec := newTestTokenCodec(t)
	return New(ReadyProbe{}, Options{
		Codec:      codec,
		CookieName: "tc_session",
		Scope:      scope.NewContextService(),
		Sequence:   sequence.NewGenerator(alloc),
	})
}

func bearerFor(t *testing.T, api *API, s session.Session) string {
	t.Helper()
	signed, err := api.opts.Codec.Encode(session.DecoratedAuthentication{
		Session:        s,
		ExpirationTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "Bearer " + signed
}

func TestSequenceAllocateForSessionTenant(t *testing.T) {
	alloc := &recordingAllocator{}
	api := newSequenceAPI(t, alloc)

	req := httptest.NewRequest(http.MethodPost, "/v1/sequences/InvoiceEntity", nil)
	req.Header.Set("Authorization", bearerFor(t, api,
		session.Tenant{SessionID: 1, UserID: 2, WebApplicationID: 3, TenantID: 42, OperatorID: 9}))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body allocateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Entity != "InvoiceEntity" || body.TenantID != 42 || body.Value != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if alloc.lastTable != "invoice" || alloc.lastTenant != 42 {
		t.Fatalf("unexpected allocation target: (%s, %d)", alloc.lastTable, alloc.lastTenant)
	}
}

func TestSequenceAllocateRequiresTenant(t *testing.T) {
	api := newSequenceAPI(t, &recordingAllocator{})

	// unauthenticated
	req := httptest.NewRequest(http.MethodPost, "/v1/sequences/InvoiceEntity", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous caller, got %d", rec.Code)
	}

	// guest session carries no tenant
	req = httptest.NewRequest(http.MethodPost, "/v1/sequences/InvoiceEntity", nil)
	req.Header.Set("Authorization", bearerFor(t, api,
		session.Guest{SessionID: 1, UserID: 2, WebApplicationID: 3}))
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest session, got %d", rec.Code)
	}
}

func TestTenantSequenceAllocateOverridesTenant(t *testing.T) {
	alloc := &recordingAllocator{}
	api := newSequenceAPI(t, alloc)

	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/7/sequences/InvoiceEntity", nil)
	req.Header.Set("Authorization", bearerFor(t, api,
		session.Tenant{SessionID: 1, UserID: 2, WebApplicationID: 3, TenantID: 42, OperatorID: 9}))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if alloc.lastTenant != 7 {
		t.Fatalf("expected override tenant 7, got %d", alloc.lastTenant)
	}
}

func TestTenantSequenceAllocateInvalidTenant(t *testing.T) {
	api := newSequenceAPI(t, &recordingAllocator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/0/sequences/InvoiceEntity", nil)
	req.Header.Set("Authorization", bearerFor(t, api,
		session.Tenant{SessionID: 1, UserID: 2, WebApplicationID: 3, TenantID: 42, OperatorID: 9}))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for tenant 0, got %d", rec.Code)
	}
}

func TestTenantSequenceAllocateRequiresSession(t *testing.T) {
	api := newSequenceAPI(t, &recordingAllocator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/7/sequences/InvoiceEntity", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSequenceAllocateBadEntity(t *testing.T) {
	api := newSequenceAPI(t, &recordingAllocator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sequences/Entity", nil)
	req.Header.Set("Authorization", bearerFor(t, api,
		session.Tenant{SessionID: 1, UserID: 2, WebApplicationID: 3, TenantID: 42, OperatorID: 9}))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for underivable entity name, got %d", rec.Code)
	}
}

func TestSequenceAllocateMethodNotAllowed(t *testing.T) {
	api := newSequenceAPI(t, &recordingAllocator{})
	req := httptest.NewRequest(http.MethodGet, "/v1/sequences/InvoiceEntity", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

