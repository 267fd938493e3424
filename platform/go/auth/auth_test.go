package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func identityEcho(t *testing.T, captured **Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		*captured = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionsWithoutTokenPassesThrough(t *testing.T) {
	t.Parallel()

	resolve := func(ctx context.Context, token string) (*Identity, error) {
		t.Fatal("resolve must not be called without a token")
		return nil, nil
	}

	var captured *Identity
	handler := Sessions(resolve)(identityEcho(t, &captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, captured)
}

func TestSessionsResolvesBearerToken(t *testing.T) {
	t.Parallel()

	admin := &Identity{ID: uuid.New(), Email: "owner@example.com", Role: RoleCustomer}
	resolve := func(ctx context.Context, token string) (*Identity, error) {
		require.Equal(t, "the-token", token)
		return admin, nil
	}

	var captured *Identity
	handler := Sessions(resolve)(identityEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, admin, captured)
}

func TestSessionsRejectsStaleToken(t *testing.T) {
	t.Parallel()

	resolve := func(ctx context.Context, token string) (*Identity, error) {
		return nil, errors.New("session expired")
	}

	handler := Sessions(resolve)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for a rejected token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestExtractSessionTokenPrefersHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})

	token, found := ExtractSessionToken(req)
	require.True(t, found)
	require.Equal(t, "from-header", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	token, found = ExtractSessionToken(req)
	require.True(t, found)
	require.Equal(t, "from-cookie", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, found = ExtractSessionToken(req)
	require.False(t, found)
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := &Identity{ID: uuid.New(), Email: "owner@example.com", Role: RoleInternalAdmin}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(IntoContext(req.Context(), admin))
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	bogus := &Identity{ID: uuid.New(), Email: "x@example.com", Role: Role("superuser")}
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(IntoContext(req.Context(), bogus))
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
