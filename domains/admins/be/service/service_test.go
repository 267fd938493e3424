package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/requesttrace"
)

type mockRepository struct {
	createAdminFn     func(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error)
	getAdminByEmailFn func(ctx context.Context, email string) (persistence.AdminRecord, error)
	getAdminByIDFn    func(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error)
	hasGrantFn        func(ctx context.Context, adminID uuid.UUID, slug string) (bool, error)
	createGrantFn     func(ctx context.Context, adminID uuid.UUID, slug string) error
	listGrantedFn     func(ctx context.Context, adminID uuid.UUID) ([]persistence.GrantedListing, error)
	createSessionFn   func(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error
	getLiveSessionFn  func(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error)
	deleteSessionFn   func(ctx context.Context, tokenHash []byte) error
}

func (m *mockRepository) CreateAdmin(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error) {
	if m.createAdminFn == nil {
		panic("createAdminFn not configured")
	}
	return m.createAdminFn(ctx, params)
}

func (m *mockRepository) GetAdminByEmail(ctx context.Context, email string) (persistence.AdminRecord, error) {
	if m.getAdminByEmailFn == nil {
		panic("getAdminByEmailFn not configured")
	}
	return m.getAdminByEmailFn(ctx, email)
}

func (m *mockRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error) {
	if m.getAdminByIDFn == nil {
		panic("getAdminByIDFn not configured")
	}
	return m.getAdminByIDFn(ctx, id)
}

func (m *mockRepository) HasGrant(ctx context.Context, adminID uuid.UUID, slug string) (bool, error) {
	if m.hasGrantFn == nil {
		panic("hasGrantFn not configured")
	}
	return m.hasGrantFn(ctx, adminID, slug)
}

func (m *mockRepository) CreateGrant(ctx context.Context, adminID uuid.UUID, slug string) error {
	if m.createGrantFn == nil {
		panic("createGrantFn not configured")
	}
	return m.createGrantFn(ctx, adminID, slug)
}

func (m *mockRepository) ListGrantedListings(ctx context.Context, adminID uuid.UUID) ([]persistence.GrantedListing, error) {
	if m.listGrantedFn == nil {
		panic("listGrantedFn not configured")
	}
	return m.listGrantedFn(ctx, adminID)
}

func (m *mockRepository) CreateSession(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error {
	if m.createSessionFn == nil {
		panic("createSessionFn not configured")
	}
	return m.createSessionFn(ctx, tokenHash, adminID, expiresAt)
}

func (m *mockRepository) GetLiveSession(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error) {
	if m.getLiveSessionFn == nil {
		panic("getLiveSessionFn not configured")
	}
	return m.getLiveSessionFn(ctx, tokenHash)
}

func (m *mockRepository) DeleteSession(ctx context.Context, tokenHash []byte) error {
	if m.deleteSessionFn == nil {
		panic("deleteSessionFn not configured")
	}
	return m.deleteSessionFn(ctx, tokenHash)
}

func adminRecord(t *testing.T, email, password string, role platformauth.Role) persistence.AdminRecord {
	t.Helper()
	hash, err := platformauth.HashPassword(password)
	require.NoError(t, err)
	return persistence.AdminRecord{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
	}
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	record := adminRecord(t, "owner@example.com", "correct-horse-battery", platformauth.RoleCustomer)
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	var storedHash []byte
	repo.getAdminByEmailFn = func(ctx context.Context, email string) (persistence.AdminRecord, error) {
		require.Equal(t, "owner@example.com", email)
		return record, nil
	}
	repo.createSessionFn = func(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error {
		require.Equal(t, record.ID, adminID)
		require.Equal(t, now.Add(24*time.Hour), expiresAt)
		storedHash = tokenHash
		return nil
	}

	svc := New(repo, 24*time.Hour).(*service)
	svc.now = func() time.Time { return now }

	session, err := svc.Login(context.Background(), " Owner@Example.com ", "correct-horse-battery")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, record.Email, session.Admin.Email)
	require.Equal(t, platformauth.HashSessionToken(session.Token), storedHash)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	record := adminRecord(t, "owner@example.com", "correct-horse-battery", platformauth.RoleCustomer)

	repo.getAdminByEmailFn = func(ctx context.Context, email string) (persistence.AdminRecord, error) {
		return record, nil
	}
	// createSessionFn deliberately unconfigured: a failed login must never
	// issue a session.

	svc := New(repo, 24*time.Hour)

	_, err := svc.Login(context.Background(), "owner@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.getAdminByEmailFn = func(ctx context.Context, email string) (persistence.AdminRecord, error) {
		return persistence.AdminRecord{}, persistence.ErrAdminNotFound
	}

	svc := New(repo, 24*time.Hour)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMissingFields(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, 24*time.Hour)

	_, err := svc.Login(context.Background(), "", "")
	require.Error(t, err)
	_, ok := err.(*ValidationError)
	require.True(t, ok)
}

func TestResolveRoundTrip(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	record := adminRecord(t, "owner@example.com", "correct-horse-battery", platformauth.RoleInternalAdmin)

	token, hash, err := platformauth.NewSessionToken()
	require.NoError(t, err)

	repo.getLiveSessionFn = func(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error) {
		require.Equal(t, hash, tokenHash)
		return persistence.SessionRecord{TokenHash: tokenHash, AdminID: record.ID}, nil
	}
	repo.getAdminByIDFn = func(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error) {
		require.Equal(t, record.ID, id)
		return record, nil
	}

	svc := New(repo, 24*time.Hour)

	identity, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, record.ID, identity.ID)
	require.Equal(t, platformauth.RoleInternalAdmin, identity.Role)
}

func TestResolveMalformedToken(t *testing.T) {
	t.Parallel()

	// The repository mock panics on any call: a malformed token must be
	// rejected before any lookup.
	svc := New(&mockRepository{}, 24*time.Hour)

	_, err := svc.Resolve(context.Background(), "not-a-session-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveExpiredSession(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.getLiveSessionFn = func(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error) {
		return persistence.SessionRecord{}, persistence.ErrSessionNotFound
	}

	token, _, err := platformauth.NewSessionToken()
	require.NoError(t, err)

	svc := New(repo, 24*time.Hour)

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCanEditInternalAdmin(t *testing.T) {
	t.Parallel()

	// hasGrantFn unconfigured: internal_admin must not need a grant lookup.
	svc := New(&mockRepository{}, 24*time.Hour)

	allowed, err := svc.CanEdit(context.Background(), uuid.New(), platformauth.RoleInternalAdmin, "any-slug")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestCanEditCustomerGrant(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	adminID := uuid.New()
	repo.hasGrantFn = func(ctx context.Context, gotAdminID uuid.UUID, slug string) (bool, error) {
		require.Equal(t, adminID, gotAdminID)
		return slug == "granted-slug", nil
	}

	svc := New(repo, 24*time.Hour)

	allowed, err := svc.CanEdit(context.Background(), adminID, platformauth.RoleCustomer, "granted-slug")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.CanEdit(context.Background(), adminID, platformauth.RoleCustomer, "other-slug")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCanEditFailsClosed(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.hasGrantFn = func(ctx context.Context, adminID uuid.UUID, slug string) (bool, error) {
		return false, errors.New("connection reset")
	}

	svc := New(repo, 24*time.Hour)

	allowed, err := svc.CanEdit(context.Background(), uuid.New(), platformauth.RoleCustomer, "granted-slug")
	require.Error(t, err)
	require.False(t, allowed)

	allowed, err = svc.CanEdit(context.Background(), uuid.Nil, platformauth.RoleCustomer, "granted-slug")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = svc.CanEdit(context.Background(), uuid.New(), platformauth.Role("superuser"), "granted-slug")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestMeReturnsGrantedListings(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	record := adminRecord(t, "owner@example.com", "correct-horse-battery", platformauth.RoleCustomer)

	repo.getAdminByIDFn = func(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error) {
		return record, nil
	}
	repo.listGrantedFn = func(ctx context.Context, adminID uuid.UUID) ([]persistence.GrantedListing, error) {
		return []persistence.GrantedListing{{Slug: "acme-tower", Title: "Acme Tower", IsDraft: false, HasVault: true}}, nil
	}

	svc := New(repo, 24*time.Hour)

	audit, err := requesttrace.FromIdentity(&platformauth.Identity{
		ID:    record.ID,
		Email: record.Email,
		Role:  platformauth.RoleCustomer,
	}, "test")
	require.NoError(t, err)

	profile, err := svc.Me(context.Background(), audit)
	require.NoError(t, err)
	require.Equal(t, record.Email, profile.Admin.Email)
	require.Len(t, profile.Listings, 1)
	require.Equal(t, "acme-tower", profile.Listings[0].Slug)
}

func TestMeUnauthenticated(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, 24*time.Hour)

	_, err := svc.Me(context.Background(), requesttrace.Anonymous("test"))
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateAdminValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, 24*time.Hour)

	_, err := svc.CreateAdmin(context.Background(), "not-an-email", "short", platformauth.Role("root"))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "password")
	require.Contains(t, validationErr.Fields, "role")
}

func TestCreateAdminConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.createAdminFn = func(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error) {
		return persistence.AdminRecord{}, persistence.ErrAdminConflict
	}

	svc := New(repo, 24*time.Hour)

	_, err := svc.CreateAdmin(context.Background(), "owner@example.com", "a-long-enough-password", platformauth.RoleCustomer)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateAdminHashesPassword(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.createAdminFn = func(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error) {
		require.NotEqual(t, "a-long-enough-password", params.PasswordHash)

		ok, err := platformauth.VerifyPassword(params.PasswordHash, "a-long-enough-password")
		require.NoError(t, err)
		require.True(t, ok)

		return persistence.AdminRecord{
			ID:           params.ID,
			Email:        params.Email,
			PasswordHash: params.PasswordHash,
			Role:         params.Role,
		}, nil
	}

	svc := New(repo, 24*time.Hour)

	admin, err := svc.CreateAdmin(context.Background(), "Owner@Example.com", "a-long-enough-password", platformauth.RoleInternalAdmin)
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", admin.Email)
	require.Equal(t, platformauth.RoleInternalAdmin, admin.Role)
}
