package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

// Repository exposes persistence operations required by the listings service.
type Repository interface {
	GetListingBySlug(ctx context.Context, slug string) (persistence.ListingRecord, error)
	CreateListing(ctx context.Context, params persistence.CreateListingParams) (persistence.ListingRecord, error)
	AppendVersion(ctx context.Context, params persistence.AppendVersionParams) (persistence.VersionRecord, error)
	ListVersionMeta(ctx context.Context, listingID uuid.UUID) ([]persistence.VersionMeta, error)
	GetVersion(ctx context.Context, listingID, versionID uuid.UUID) (persistence.VersionRecord, error)
	SetCurrentVersion(ctx context.Context, listingID, versionID uuid.UUID) (int, error)
}

type postgresRepository struct {
	store *persistence.ListingStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ListingStore) Repository {
	if store == nil {
		panic("listing store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) GetListingBySlug(ctx context.Context, slug string) (persistence.ListingRecord, error) {
	return r.store.GetListingBySlug(ctx, slug)
}

func (r *postgresRepository) CreateListing(ctx context.Context, params persistence.CreateListingParams) (persistence.ListingRecord, error) {
	return r.store.CreateListing(ctx, params)
}

func (r *postgresRepository) AppendVersion(ctx context.Context, params persistence.AppendVersionParams) (persistence.VersionRecord, error) {
	return r.store.AppendVersion(ctx, params)
}

func (r *postgresRepository) ListVersionMeta(ctx context.Context, listingID uuid.UUID) ([]persistence.VersionMeta, error) {
	return r.store.ListVersionMeta(ctx, listingID)
}

func (r *postgresRepository) GetVersion(ctx context.Context, listingID, versionID uuid.UUID) (persistence.VersionRecord, error) {
	return r.store.GetVersion(ctx, listingID, versionID)
}

func (r *postgresRepository) SetCurrentVersion(ctx context.Context, listingID, versionID uuid.UUID) (int, error) {
	return r.store.SetCurrentVersion(ctx, listingID, versionID)
}
