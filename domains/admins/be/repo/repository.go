package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

// Repository exposes persistence operations required by the admins service.
type Repository interface {
	CreateAdmin(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error)
	GetAdminByEmail(ctx context.Context, email string) (persistence.AdminRecord, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error)
	HasGrant(ctx context.Context, adminID uuid.UUID, slug string) (bool, error)
	CreateGrant(ctx context.Context, adminID uuid.UUID, slug string) error
	ListGrantedListings(ctx context.Context, adminID uuid.UUID) ([]persistence.GrantedListing, error)

	CreateSession(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error
	GetLiveSession(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error)
	DeleteSession(ctx context.Context, tokenHash []byte) error
}

type postgresRepository struct {
	admins   *persistence.AdminStore
	sessions *persistence.SessionStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(admins *persistence.AdminStore, sessions *persistence.SessionStore) Repository {
	if admins == nil {
		panic("admin store is required")
	}
	if sessions == nil {
		panic("session store is required")
	}
	return &postgresRepository{admins: admins, sessions: sessions}
}

func (r *postgresRepository) CreateAdmin(ctx context.Context, params persistence.CreateAdminParams) (persistence.AdminRecord, error) {
	return r.admins.CreateAdmin(ctx, params)
}

func (r *postgresRepository) GetAdminByEmail(ctx context.Context, email string) (persistence.AdminRecord, error) {
	return r.admins.GetAdminByEmail(ctx, email)
}

func (r *postgresRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (persistence.AdminRecord, error) {
	return r.admins.GetAdminByID(ctx, id)
}

func (r *postgresRepository) HasGrant(ctx context.Context, adminID uuid.UUID, slug string) (bool, error) {
	return r.admins.HasGrant(ctx, adminID, slug)
}

func (r *postgresRepository) CreateGrant(ctx context.Context, adminID uuid.UUID, slug string) error {
	return r.admins.CreateGrant(ctx, adminID, slug)
}

func (r *postgresRepository) ListGrantedListings(ctx context.Context, adminID uuid.UUID) ([]persistence.GrantedListing, error) {
	return r.admins.ListGrantedListings(ctx, adminID)
}

func (r *postgresRepository) CreateSession(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error {
	return r.sessions.CreateSession(ctx, tokenHash, adminID, expiresAt)
}

func (r *postgresRepository) GetLiveSession(ctx context.Context, tokenHash []byte) (persistence.SessionRecord, error) {
	return r.sessions.GetLiveSession(ctx, tokenHash)
}

func (r *postgresRepository) DeleteSession(ctx context.Context, tokenHash []byte) error {
	return r.sessions.DeleteSession(ctx, tokenHash)
}
