package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxIdentity ctxKey = "OZ_ADMIN_IDENTITY"

	// SessionCookie carries the opaque admin session token. HttpOnly; never
	// readable by client script.
	SessionCookie = "oz_admin_session"
)

// Role is the back-office role attached to an admin user.
type Role string

const (
	// RoleInternalAdmin is staff; may edit any listing.
	RoleInternalAdmin Role = "internal_admin"
	// RoleCustomer is a developer customer; may edit only granted listings.
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleInternalAdmin || r == RoleCustomer
}

// EditsAnyListing reports whether the role carries the blanket edit capability.
// Customers need an explicit per-slug grant instead.
func (r Role) EditsAnyListing() bool {
	return r == RoleInternalAdmin
}

// Identity is an authenticated admin resolved from a session token.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IdentityFromContext returns the authenticated admin identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	v := ctx.Value(ctxIdentity)
	if v == nil {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

// IntoContext stores the identity on the context; exported for tests and the CLI.
func IntoContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// ResolveFunc maps a presented session token to an admin identity. It must
// treat every failure (malformed token, expired session, storage error) as
// unauthenticated rather than distinguishing causes to the client.
type ResolveFunc func(ctx context.Context, token string) (*Identity, error)

// Sessions parses the request's session token and sets the context identity.
// Requests without a token pass through unauthenticated; endpoint gates decide
// whether that is acceptable. A token that fails to resolve is rejected
// outright so a stale cookie never reaches a handler half-authenticated.
func Sessions(resolve ResolveFunc) func(http.Handler) http.Handler {
	if resolve == nil {
		panic("auth.Sessions: resolve func must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractSessionToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolve(r.Context(), token)
			if err != nil || identity == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin", error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := IntoContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractSessionToken pulls the session token from the Authorization header or
// the session cookie, preferring the header.
func ExtractSessionToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], true
		}
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// RequireAdmin gates endpoints that mutate listings: any authenticated admin
// passes, everything else is denied.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity == nil || !identity.Role.Valid() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
