package httpapi

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenantcore.io/internal/reqctx"
	"tenantcore.io/internal/session"
	"tenantcore.io/internal/token"
)

func newTestTokenCodec(t *testing.T, opts ...token.Option) *token.Codec {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	all := append([]token.Option{token.WithKeyPair(key, &key.PublicKey)}, opts...)
	codec, err := token.NewCodec(all...)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

type authnCapture struct {
	called bool
	auth   session.DecoratedAuthentication
	ok     bool
}

func captureHandler(c *authnCapture) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.auth, c.ok = reqctx.Authentication(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticationBearerHeader(t *testing.T) {
	codec := newTestTokenCodec(t)
	api := New(ReadyProbe{}, Options{Codec: codec, CookieName: "tc_session"})

	var capture authnCapture
	handler := api.withAuthentication(captureHandler(&capture))

	signed, err := codec.Encode(session.DecoratedAuthentication{
		Session:        session.Tenant{SessionID: 1, UserID: 2, WebApplicationID: 3, TenantID: 42, OperatorID: 9},
		ExpirationTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !capture.ok {
		t.Fatalf("expected authentication in context")
	}
	if tid, ok := session.TenantID(capture.auth.Session); !ok || tid != 42 {
		t.Fatalf("unexpected tenant id: %d %v", tid, ok)
	}
}

func TestAuthenticationSessionCookie(t *testing.T) {
	codec := newTestTokenCodec(t)
	api := New(ReadyProbe{}, Options{Codec: codec, CookieName: "tc_session"})

	var capture authnCapture
	handler := api.withAuthentication(captureHandler(&capture))

	signed, err := codec.Encode(session.DecoratedAuthentication{
		Session:        session.Guest{SessionID: 1, UserID: 2, WebApplicationID: 3},
		ExpirationTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.AddCookie(&http.Cookie{Name: "tc_session", Value: signed})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !capture.ok {
		t.Fatalf("expected authentication in context")
	}
	if capture.auth.Session.Type() != session.TypeGuest {
		t.Fatalf("unexpected session type: %s", capture.auth.Session.Type())
	}
}

func TestAuthenticationInvalidTokenFallsThrough(t *testing.T) {
	codec := newTestTokenCodec(t)
	api := New(ReadyProbe{}, Options{Codec: codec, CookieName: "tc_session"})

	var capture authnCapture
	handler := api.withAuthentication(captureHandler(&capture))

	for _, setup := range []func(*http.Request){
		func(r *http.Request) {},
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "tc_session", Value: "garbage"}) },
	} {
		capture = authnCapture{}
		req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
		setup(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if !capture.called {
			t.Fatalf("handler not reached")
		}
		if capture.ok {
			t.Fatalf("expected unauthenticated request, got %+v", capture.auth)
		}
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	}
}

func TestAuthenticationExpiredTokenFallsThrough(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	past := time.Now().Add(-2 * time.Hour)
	signer, err := token.NewCodec(
		token.WithKeyPair(key, &key.PublicKey),
		token.WithClock(func() time.Time { return past }),
	)
	if err != nil {
		t.Fatalf("new signer codec: %v", err)
	}
	verifier, err := token.NewCodec(token.WithKeyPair(key, &key.PublicKey))
	if err != nil {
		t.Fatalf("new verifier codec: %v", err)
	}
	api := New(ReadyProbe{}, Options{Codec: verifier, CookieName: "tc_session"})

	signed, err := signer.Encode(session.DecoratedAuthentication{
		Session:        session.Guest{SessionID: 1, UserID: 2, WebApplicationID: 3},
		ExpirationTime: past.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var capture authnCapture
	handler := api.withAuthentication(captureHandler(&capture))

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !capture.called {
		t.Fatalf("handler not reached")
	}
	if capture.ok {
		t.Fatalf("expected expired token to be ignored")
	}
}
