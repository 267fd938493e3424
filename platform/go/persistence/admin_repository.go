package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRecord is a row of the admin_users table. PasswordHash is an encoded
// argon2id hash, never the raw secret.
type AdminRecord struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// GrantedListing is the /admin/me projection of a listing an admin may edit.
type GrantedListing struct {
	Slug     string `json:"listing_slug"`
	Title    string `json:"title"`
	IsDraft  bool   `json:"is_draft"`
	HasVault bool   `json:"has_vault"`
}

// AdminStore provides access to admin_users and admin_user_listings.
type AdminStore struct {
	pool *pgxpool.Pool
}

// NewAdminStore creates a store; assumes migrations already created the tables.
func NewAdminStore(ctx context.Context, pool *pgxpool.Pool) (*AdminStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AdminStore{pool: pool}, nil
}

// CreateAdminParams are the fields required to register an admin user.
type CreateAdminParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
}

// CreateAdmin inserts an admin user row.
func (s *AdminStore) CreateAdmin(ctx context.Context, params CreateAdminParams) (AdminRecord, error) {
	if params.ID == uuid.Nil {
		return AdminRecord{}, errors.New("admin id is required")
	}
	if params.Email == "" {
		return AdminRecord{}, errors.New("admin email is required")
	}
	if params.PasswordHash == "" {
		return AdminRecord{}, errors.New("password hash is required")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO admin_users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, email, password_hash, role, created_at
	`, params.ID, params.Email, params.PasswordHash, params.Role)

	rec, err := scanAdminRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return AdminRecord{}, ErrAdminConflict
		}
		return AdminRecord{}, fmt.Errorf("insert admin user: %w", err)
	}
	return rec, nil
}

// GetAdminByEmail fetches an admin by login email.
func (s *AdminStore) GetAdminByEmail(ctx context.Context, email string) (AdminRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM admin_users
		WHERE email = $1
	`, email)

	rec, err := scanAdminRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, fmt.Errorf("get admin by email: %w", err)
	}
	return rec, nil
}

// GetAdminByID fetches an admin by id.
func (s *AdminStore) GetAdminByID(ctx context.Context, id uuid.UUID) (AdminRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM admin_users
		WHERE id = $1
	`, id)

	rec, err := scanAdminRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, fmt.Errorf("get admin by id: %w", err)
	}
	return rec, nil
}

// HasGrant reports whether the admin holds an access grant for the slug.
func (s *AdminStore) HasGrant(ctx context.Context, adminID uuid.UUID, slug string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admin_user_listings
			WHERE user_id = $1 AND listing_slug = $2
		)
	`, adminID, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("check access grant: %w", err)
	}
	return exists, nil
}

// CreateGrant associates an admin with a listing slug. Granting twice is a no-op.
func (s *AdminStore) CreateGrant(ctx context.Context, adminID uuid.UUID, slug string) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO admin_user_listings (user_id, listing_slug, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, listing_slug) DO NOTHING
	`, adminID, slug); err != nil {
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

// ListGrantedListings returns the listings an admin may edit, with their
// draft state derived from the pointer column.
func (s *AdminStore) ListGrantedListings(ctx context.Context, adminID uuid.UUID) ([]GrantedListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.listing_slug,
		       COALESCE(l.title, ''),
		       l.current_version_id IS NULL OR l.id IS NULL,
		       COALESCE(l.has_vault, FALSE)
		FROM admin_user_listings g
		LEFT JOIN listings l ON l.slug = g.listing_slug
		WHERE g.user_id = $1
		ORDER BY g.listing_slug ASC
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("list granted listings: %w", err)
	}
	defer rows.Close()

	var listings []GrantedListing
	for rows.Next() {
		var gl GrantedListing
		if err := rows.Scan(&gl.Slug, &gl.Title, &gl.IsDraft, &gl.HasVault); err != nil {
			return nil, fmt.Errorf("scan granted listing: %w", err)
		}
		listings = append(listings, gl)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate granted listings: %w", err)
	}

	return listings, nil
}

func scanAdminRecord(scanner rowScanner) (AdminRecord, error) {
	var rec AdminRecord
	if err := scanner.Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Role, &rec.CreatedAt); err != nil {
		return AdminRecord{}, err
	}
	return rec, nil
}
