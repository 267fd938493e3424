package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	sqlassets "github.com/paramvora-myacara/oz-listings-api/database"
)

// startTestDB boots a disposable Postgres and applies the embedded schema.
func startTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping persistence integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ozlistings"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	for _, ddl := range sqlassets.Ordered() {
		_, err = pool.Exec(ctx, ddl)
		require.NoError(t, err)
	}

	return pool
}

func mustAppend(t *testing.T, store *ListingStore, listingID uuid.UUID, doc string) VersionRecord {
	t.Helper()
	version, err := store.AppendVersion(context.Background(), AppendVersionParams{
		VersionID: uuid.New(),
		ListingID: listingID,
		Data:      json.RawMessage(doc),
	})
	require.NoError(t, err)
	return version
}

func TestListingStoreVersioning(t *testing.T) {
	t.Parallel()

	pool := startTestDB(t)
	ctx := context.Background()

	store, err := NewListingStore(ctx, pool)
	require.NoError(t, err)

	listing, err := store.CreateListing(ctx, CreateListingParams{
		ID:       uuid.New(),
		Slug:     "Acme-Tower",
		Title:    "Acme Tower",
		HasVault: true,
	})
	require.NoError(t, err)
	require.Equal(t, "acme-tower", listing.Slug)
	require.Nil(t, listing.CurrentVersionID)

	// Version numbers are assigned 1, 2, 3 with no gaps, and each append
	// advances the pointer.
	v1 := mustAppend(t, store, listing.ID, `{"listingName":"Acme Tower","sections":[{"n":1}]}`)
	v2 := mustAppend(t, store, listing.ID, `{"listingName":"Acme Tower","sections":[{"n":2}]}`)
	v3 := mustAppend(t, store, listing.ID, `{"listingName":"Acme Tower","sections":[{"n":3}]}`)
	require.Equal(t, 1, v1.VersionNumber)
	require.Equal(t, 2, v2.VersionNumber)
	require.Equal(t, 3, v3.VersionNumber)

	listing, err = store.GetListingBySlug(ctx, "acme-tower")
	require.NoError(t, err)
	require.NotNil(t, listing.CurrentVersionID)
	require.Equal(t, v3.ID, *listing.CurrentVersionID)

	metas, err := store.ListVersionMeta(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, 3, metas[0].VersionNumber)
	require.Equal(t, 1, metas[2].VersionNumber)

	// Rollback moves only the pointer; history is untouched.
	versionNumber, err := store.SetCurrentVersion(ctx, listing.ID, v1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, versionNumber)

	listing, err = store.GetListingBySlug(ctx, "acme-tower")
	require.NoError(t, err)
	require.Equal(t, v1.ID, *listing.CurrentVersionID)

	metas, err = store.ListVersionMeta(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, metas, 3)
}

func TestListingStoreCrossListingVersion(t *testing.T) {
	t.Parallel()

	pool := startTestDB(t)
	ctx := context.Background()

	store, err := NewListingStore(ctx, pool)
	require.NoError(t, err)

	listingA, err := store.CreateListing(ctx, CreateListingParams{ID: uuid.New(), Slug: "tower-a", Title: "Tower A"})
	require.NoError(t, err)
	listingB, err := store.CreateListing(ctx, CreateListingParams{ID: uuid.New(), Slug: "tower-b", Title: "Tower B"})
	require.NoError(t, err)

	versionA := mustAppend(t, store, listingA.ID, `{"listingName":"Tower A","sections":[{}]}`)
	mustAppend(t, store, listingB.ID, `{"listingName":"Tower B","sections":[{}]}`)

	// A foreign version id behaves exactly like an unknown one.
	_, err = store.SetCurrentVersion(ctx, listingB.ID, versionA.ID)
	require.ErrorIs(t, err, ErrVersionNotFound)

	_, err = store.SetCurrentVersion(ctx, listingB.ID, uuid.New())
	require.ErrorIs(t, err, ErrVersionNotFound)

	_, err = store.GetVersion(ctx, listingB.ID, versionA.ID)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestListingStoreSlugConflict(t *testing.T) {
	t.Parallel()

	pool := startTestDB(t)
	ctx := context.Background()

	store, err := NewListingStore(ctx, pool)
	require.NoError(t, err)

	_, err = store.CreateListing(ctx, CreateListingParams{ID: uuid.New(), Slug: "acme-tower", Title: "Acme Tower"})
	require.NoError(t, err)

	_, err = store.CreateListing(ctx, CreateListingParams{ID: uuid.New(), Slug: "acme-tower", Title: "Duplicate"})
	require.ErrorIs(t, err, ErrSlugConflict)

	_, err = store.GetListingBySlug(ctx, "unknown-slug")
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestAdminAndSessionStores(t *testing.T) {
	t.Parallel()

	pool := startTestDB(t)
	ctx := context.Background()

	admins, err := NewAdminStore(ctx, pool)
	require.NoError(t, err)
	sessions, err := NewSessionStore(ctx, pool)
	require.NoError(t, err)
	listings, err := NewListingStore(ctx, pool)
	require.NoError(t, err)

	admin, err := admins.CreateAdmin(ctx, CreateAdminParams{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         "customer",
	})
	require.NoError(t, err)

	_, err = admins.CreateAdmin(ctx, CreateAdminParams{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		PasswordHash: "x",
		Role:         "customer",
	})
	require.ErrorIs(t, err, ErrAdminConflict)

	// Grants are idempotent and drive the /admin/me listing view.
	listing, err := listings.CreateListing(ctx, CreateListingParams{ID: uuid.New(), Slug: "acme-tower", Title: "Acme Tower", HasVault: true})
	require.NoError(t, err)

	require.NoError(t, admins.CreateGrant(ctx, admin.ID, "acme-tower"))
	require.NoError(t, admins.CreateGrant(ctx, admin.ID, "acme-tower"))

	granted, err := admins.HasGrant(ctx, admin.ID, "acme-tower")
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = admins.HasGrant(ctx, admin.ID, "other-tower")
	require.NoError(t, err)
	require.False(t, granted)

	listingsForAdmin, err := admins.ListGrantedListings(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, listingsForAdmin, 1)
	require.Equal(t, "acme-tower", listingsForAdmin[0].Slug)
	require.True(t, listingsForAdmin[0].IsDraft)

	mustAppend(t, listings, listing.ID, `{"listingName":"Acme Tower","sections":[{}]}`)

	listingsForAdmin, err = admins.ListGrantedListings(ctx, admin.ID)
	require.NoError(t, err)
	require.False(t, listingsForAdmin[0].IsDraft)

	// Sessions: live lookup honors expiry, delete revokes.
	liveHash := []byte("0123456789abcdef0123456789abcdef")
	require.NoError(t, sessions.CreateSession(ctx, liveHash, admin.ID, time.Now().Add(time.Hour)))

	record, err := sessions.GetLiveSession(ctx, liveHash)
	require.NoError(t, err)
	require.Equal(t, admin.ID, record.AdminID)

	expiredHash := []byte("fedcba9876543210fedcba9876543210")
	require.NoError(t, sessions.CreateSession(ctx, expiredHash, admin.ID, time.Now().Add(-time.Hour)))

	_, err = sessions.GetLiveSession(ctx, expiredHash)
	require.ErrorIs(t, err, ErrSessionNotFound)

	deleted, err := sessions.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	require.NoError(t, sessions.DeleteSession(ctx, liveHash))
	_, err = sessions.GetLiveSession(ctx, liveHash)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
