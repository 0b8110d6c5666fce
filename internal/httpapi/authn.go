package httpapi

import (
	"net/http"
	"strings"
	"time"

	"tenantcore.io/internal/reqctx"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuthentication resolves the request credential from the Authorization
// header or the session cookie and, when it decodes to a live session,
// attaches the authentication to the request context. Every failure mode
// (missing, malformed, tampered, expired) falls through unauthenticated;
// endpoints that need a session reject the request themselves.
func (a *API) withAuthentication(next http.Handler) http.Handler {
	if a == nil || a.opts.Codec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r, a.opts.CookieName)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth, ok := a.opts.Codec.Decode(raw)
		if !ok || auth.IsExpired(time.Now()) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := reqctx.WithAuthentication(r.Context(), auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tokenFromRequest prefers the bearer header; the cookie is the browser
// fallback.
func tokenFromRequest(r *http.Request, cookieName string) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" && strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		if token := strings.TrimSpace(header[len(bearer):]); token != "" {
			return token
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}
