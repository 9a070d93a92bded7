package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeyActor is the context key for the authenticated actor name
const ContextKeyActor contextKey = "actor"

// Actor names recorded on audit events.
const (
	ActorAdminKey     = "admin-key"
	ActorAdminKeyHash = "admin-key-hash"
)

// Authenticator checks admin credentials: the plain ADMIN_API_KEY and/or a
// bcrypt ADMIN_API_KEY_HASH. Either may be empty.
type Authenticator struct {
	adminKey     string
	adminKeyHash string
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(adminKey, adminKeyHash string) *Authenticator {
	return &Authenticator{adminKey: adminKey, adminKeyHash: adminKeyHash}
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Actor         string
	Error         string
}

// Authenticate checks the Authorization header
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{Error: "missing bearer token"}
	}

	if a.adminKey != "" && VerifyAPIKeyConstantTime(token, a.adminKey) {
		return AuthResult{Authenticated: true, Actor: ActorAdminKey}
	}
	if a.adminKeyHash != "" && VerifyAPIKey(token, a.adminKeyHash) {
		return AuthResult{Authenticated: true, Actor: ActorAdminKeyHash}
	}
	return AuthResult{Error: "invalid token"}
}

// FailureHandler writes the response for a rejected request.
type FailureHandler func(w http.ResponseWriter, r *http.Request, status int, message string)

// RequireAdmin is a middleware that rejects requests without a valid admin
// token. onFail renders the rejection; nil falls back to http.Error.
func (a *Authenticator) RequireAdmin(onFail FailureHandler) func(http.Handler) http.Handler {
	if onFail == nil {
		onFail = func(w http.ResponseWriter, r *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := a.Authenticate(r.Header.Get("Authorization"))
			if !result.Authenticated {
				onFail(w, r, http.StatusUnauthorized, result.Error)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyActor, result.Actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor, or "anonymous".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}

// GetIPAddress extracts the client IP address from the request
func GetIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
