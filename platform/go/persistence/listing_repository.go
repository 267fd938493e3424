package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRecord is a row of the listings table: the mutable pointer record
// plus listing-level marketing metadata that lives outside the versioned
// content payload.
type ListingRecord struct {
	ID                  uuid.UUID  `db:"id"`
	Slug                string     `db:"slug"`
	Title               string     `db:"title"`
	DeveloperWebsite    *string    `db:"developer_website"`
	IsVerifiedOZProject bool       `db:"is_verified_oz_project"`
	HasVault            bool       `db:"has_vault"`
	CurrentVersionID    *uuid.UUID `db:"current_version_id"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// VersionRecord is an immutable content snapshot. Rows are never updated or
// deleted once written.
type VersionRecord struct {
	ID            uuid.UUID       `db:"id"`
	ListingID     uuid.UUID       `db:"listing_id"`
	VersionNumber int             `db:"version_number"`
	Data          json.RawMessage `db:"data"`
	NewsLinks     json.RawMessage `db:"news_links"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   time.Time       `db:"published_at"`
}

// VersionMeta is the history-listing projection of a VersionRecord.
type VersionMeta struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
	PublishedAt   time.Time `json:"published_at"`
	IsCurrent     bool      `json:"is_current"`
}

// ListingStore provides access to listings and listing_versions.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a store; assumes migrations already created the tables.
func NewListingStore(ctx context.Context, pool *pgxpool.Pool) (*ListingStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ListingStore{pool: pool}, nil
}

// CreateListingParams are the fields settable at listing creation. The pointer
// starts null; it is only ever moved by AppendVersion and SetCurrentVersion.
type CreateListingParams struct {
	ID       uuid.UUID
	Slug     string
	Title    string
	HasVault bool
}

// CreateListing inserts a listing row in draft state.
func (s *ListingStore) CreateListing(ctx context.Context, params CreateListingParams) (ListingRecord, error) {
	if params.ID == uuid.Nil {
		return ListingRecord{}, errors.New("listing id is required")
	}

	slug, err := NormalizeSlug(params.Slug)
	if err != nil {
		return ListingRecord{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO listings (id, slug, title, has_vault, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, slug, title, developer_website, is_verified_oz_project,
			has_vault, current_version_id, created_at, updated_at
	`, params.ID, slug, params.Title, params.HasVault)

	rec, err := scanListingRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return ListingRecord{}, ErrSlugConflict
		}
		return ListingRecord{}, fmt.Errorf("insert listing: %w", err)
	}
	return rec, nil
}

// GetListingBySlug fetches a listing row by its public slug.
func (s *ListingStore) GetListingBySlug(ctx context.Context, slug string) (ListingRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, slug, title, developer_website, is_verified_oz_project,
			has_vault, current_version_id, created_at, updated_at
		FROM listings
		WHERE slug = $1
	`, slug)

	rec, err := scanListingRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ListingRecord{}, ErrListingNotFound
		}
		return ListingRecord{}, fmt.Errorf("get listing by slug: %w", err)
	}
	return rec, nil
}

// AppendVersionParams carries the payload for a new version.
type AppendVersionParams struct {
	VersionID uuid.UUID
	ListingID uuid.UUID
	Data      json.RawMessage
	NewsLinks json.RawMessage
}

// AppendVersion inserts the next version for a listing and advances the
// current pointer to it, in one transaction. The version number is computed as
// 1 + max existing number; the unique (listing_id, version_number) constraint
// makes exactly one of two concurrent writers fail with ErrVersionConflict.
// The insert runs before the pointer update so no reader can observe a pointer
// to a version row that does not exist yet.
func (s *ListingStore) AppendVersion(ctx context.Context, params AppendVersionParams) (VersionRecord, error) {
	if params.VersionID == uuid.Nil {
		return VersionRecord{}, errors.New("version id is required")
	}
	if params.ListingID == uuid.Nil {
		return VersionRecord{}, errors.New("listing id is required")
	}
	if len(params.NewsLinks) == 0 {
		params.NewsLinks = json.RawMessage(`[]`)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return VersionRecord{}, fmt.Errorf("begin append version tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var nextNumber int
	if err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version_number), 0) + 1
		FROM listing_versions
		WHERE listing_id = $1
	`, params.ListingID).Scan(&nextNumber); err != nil {
		return VersionRecord{}, fmt.Errorf("compute next version number: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO listing_versions (id, listing_id, version_number, data, news_links, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, listing_id, version_number, data, news_links, created_at, published_at
	`, params.VersionID, params.ListingID, nextNumber, params.Data, params.NewsLinks)

	version, err := scanVersionRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return VersionRecord{}, ErrVersionConflict
		}
		return VersionRecord{}, fmt.Errorf("insert listing version: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE listings
		SET current_version_id = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, params.ListingID, version.ID)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("advance current version pointer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return VersionRecord{}, ErrListingNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return VersionRecord{}, fmt.Errorf("commit append version tx: %w", err)
	}

	return version, nil
}

// ListVersionMeta returns version metadata for a listing, newest first.
// The IsCurrent annotation is left to the caller, which knows the pointer.
func (s *ListingStore) ListVersionMeta(ctx context.Context, listingID uuid.UUID) ([]VersionMeta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, version_number, created_at, published_at
		FROM listing_versions
		WHERE listing_id = $1
		ORDER BY version_number DESC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var metas []VersionMeta
	for rows.Next() {
		var meta VersionMeta
		if err := rows.Scan(&meta.ID, &meta.VersionNumber, &meta.CreatedAt, &meta.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan version meta: %w", err)
		}
		metas = append(metas, meta)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return metas, nil
}

// GetVersion fetches a version that must belong to the given listing. A
// version id that exists under a different listing yields the same
// ErrVersionNotFound as an unknown id, so cross-listing probing leaks nothing.
func (s *ListingStore) GetVersion(ctx context.Context, listingID, versionID uuid.UUID) (VersionRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, listing_id, version_number, data, news_links, created_at, published_at
		FROM listing_versions
		WHERE id = $1 AND listing_id = $2
	`, versionID, listingID)

	version, err := scanVersionRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VersionRecord{}, ErrVersionNotFound
		}
		return VersionRecord{}, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// SetCurrentVersion repoints the listing at an existing version without
// touching version rows. Returns the target's version number for display.
func (s *ListingStore) SetCurrentVersion(ctx context.Context, listingID, versionID uuid.UUID) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin rollback tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var versionNumber int
	if err = tx.QueryRow(ctx, `
		SELECT version_number
		FROM listing_versions
		WHERE id = $1 AND listing_id = $2
	`, versionID, listingID).Scan(&versionNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionNotFound
		}
		return 0, fmt.Errorf("verify rollback target: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE listings
		SET current_version_id = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, listingID, versionID)
	if err != nil {
		return 0, fmt.Errorf("repoint current version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrListingNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rollback tx: %w", err)
	}

	return versionNumber, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListingRecord(scanner rowScanner) (ListingRecord, error) {
	var (
		rec              ListingRecord
		developerWebsite pgtype.Text
		currentVersionID pgtype.UUID
	)

	if err := scanner.Scan(&rec.ID, &rec.Slug, &rec.Title, &developerWebsite,
		&rec.IsVerifiedOZProject, &rec.HasVault, &currentVersionID,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return ListingRecord{}, err
	}

	if developerWebsite.Valid {
		site := developerWebsite.String
		rec.DeveloperWebsite = &site
	}

	if currentVersionID.Valid {
		id, err := uuid.FromBytes(currentVersionID.Bytes[:])
		if err != nil {
			return ListingRecord{}, fmt.Errorf("parse current version id: %w", err)
		}
		rec.CurrentVersionID = &id
	}

	return rec, nil
}

func scanVersionRecord(scanner rowScanner) (VersionRecord, error) {
	var rec VersionRecord
	if err := scanner.Scan(&rec.ID, &rec.ListingID, &rec.VersionNumber,
		&rec.Data, &rec.NewsLinks, &rec.CreatedAt, &rec.PublishedAt); err != nil {
		return VersionRecord{}, err
	}
	return rec, nil
}
