package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ContextKeyRole is the context key under which the authenticated role is stored.
const ContextKeyRole contextKey = "auth_role"

// Keychain authenticates requests against the two statically configured
// credentials: one admin key and one optional client key. When the client
// key is empty, client-level endpoints are open.
type Keychain struct {
	admin  string
	client string
	onFail func(r *http.Request, reason string)
}

// NewKeychain builds a Keychain from configured credentials. Either value
// may be a plaintext key or a bcrypt hash produced by HashKey.
func NewKeychain(adminKey, clientKey string) *Keychain {
	return &Keychain{admin: adminKey, client: clientKey}
}

// OnFailure registers a hook invoked for every rejected request.
// Feeds the audit log.
func (k *Keychain) OnFailure(fn func(r *http.Request, reason string)) {
	k.onFail = fn
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Authenticated bool
	Role          Role
	Reason        string
}

// Authenticate resolves an Authorization header to a role.
func (k *Keychain) Authenticate(authHeader string) Result {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return Result{Reason: "missing bearer token"}
	}
	if VerifyKey(token, k.admin) {
		return Result{Authenticated: true, Role: RoleAdmin}
	}
	if VerifyKey(token, k.client) {
		return Result{Authenticated: true, Role: RoleClient}
	}
	return Result{Reason: "invalid token"}
}

// Require returns middleware enforcing the given role. Client-level
// endpoints accept anonymous requests when no client key is configured,
// but a presented token must still be valid.
func (k *Keychain) Require(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && required == RoleClient && k.client == "" {
				next.ServeHTTP(w, r.WithContext(withRole(r.Context(), RoleClient)))
				return
			}

			res := k.Authenticate(header)
			if !res.Authenticated {
				k.fail(r, res.Reason)
				writeDenied(w, http.StatusUnauthorized, "UNAUTHORIZED", res.Reason)
				return
			}
			if !HasPermission(res.Role, required) {
				k.fail(r, "insufficient permissions")
				writeDenied(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(withRole(r.Context(), res.Role)))
		})
	}
}

func (k *Keychain) fail(r *http.Request, reason string) {
	if k.onFail != nil {
		k.onFail(r, reason)
	}
}

func withRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RoleFromContext extracts the authenticated role from a request context.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(ContextKeyRole).(Role)
	return role, ok
}

// writeDenied emits the same JSON error envelope the API handlers use.
func writeDenied(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(status),
		"message": message,
		"code":    code,
	})
}

// ClientIP extracts the originating address of a request, preferring
// proxy headers over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
