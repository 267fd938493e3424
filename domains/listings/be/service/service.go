package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/paramvora-myacara/oz-listings-api/domains/listings/be/repo"
	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/requesttrace"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError captures input validation problems surfaced by the service.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain-level error sentinel values.
var (
	ErrNotFound        = errors.New("listing not found")
	ErrVersionNotFound = errors.New("listing version not found")
	ErrUnauthorized    = errors.New("not authorized to edit listing")
	ErrConflict        = errors.New("listing version conflict")
	ErrSlugConflict    = errors.New("listing slug conflict")
)

// Listing is the listing-level record without version content.
type Listing struct {
	ID        uuid.UUID
	Slug      string
	Title     string
	HasVault  bool
	IsDraft   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Version is a full content snapshot of a listing.
type Version struct {
	ID            uuid.UUID
	VersionNumber int
	Data          json.RawMessage
	NewsLinks     json.RawMessage
	CreatedAt     time.Time
	PublishedAt   time.Time
}

// VersionMeta is the history projection of a version, annotated with whether
// it is the one the listing pointer currently targets.
type VersionMeta struct {
	ID            uuid.UUID
	VersionNumber int
	CreatedAt     time.Time
	PublishedAt   time.Time
	IsCurrent     bool
}

// Published is the public read model: the current version's content merged
// with listing-level metadata. For a listing that exists but was never
// published, IsDraft is true and Data holds a minimal placeholder document.
type Published struct {
	Slug                string
	Title               string
	DeveloperWebsite    *string
	IsVerifiedOZProject bool
	HasVault            bool
	IsDraft             bool
	VersionNumber       int
	Data                json.RawMessage
	NewsLinks           json.RawMessage
}

// RollbackResult confirms a pointer move.
type RollbackResult struct {
	VersionID     uuid.UUID
	VersionNumber int
}

// CreateVersionInput is the payload for publishing a new version.
type CreateVersionInput struct {
	Data      json.RawMessage
	NewsLinks json.RawMessage
}

// CreateListingInput is the payload for registering a listing, optionally with
// initial content (which becomes version 1).
type CreateListingInput struct {
	Slug      string
	Title     string
	HasVault  bool
	Data      json.RawMessage
	NewsLinks json.RawMessage
}

// Access answers edit-authorization questions and records access grants. It is
// implemented by the admins domain.
type Access interface {
	CanEdit(ctx context.Context, adminID uuid.UUID, role platformauth.Role, slug string) (bool, error)
	GrantAccess(ctx context.Context, adminID uuid.UUID, slug string) error
}

// ContentValidator performs the structural shape check on version payloads.
type ContentValidator interface {
	ValidateContent(payload []byte) error
	ValidateNewsLinks(payload []byte) error
}

// Service exposes the listings domain operations.
type Service interface {
	GetPublished(ctx context.Context, audit requesttrace.AuditInfo, slug string) (Published, []VersionMeta, error)
	ListVersions(ctx context.Context, audit requesttrace.AuditInfo, slug string) ([]VersionMeta, error)
	GetVersion(ctx context.Context, audit requesttrace.AuditInfo, slug string, versionID uuid.UUID) (Version, error)
	CreateVersion(ctx context.Context, audit requesttrace.AuditInfo, slug string, input CreateVersionInput) (Version, error)
	Rollback(ctx context.Context, audit requesttrace.AuditInfo, slug string, versionID uuid.UUID) (RollbackResult, error)
	CreateListing(ctx context.Context, audit requesttrace.AuditInfo, input CreateListingInput) (Listing, error)
}

type service struct {
	repo      domainrepo.Repository
	access    Access
	validator ContentValidator
}

// New builds a listings Service backed by the provided repository, access gate
// and content validator.
func New(repo domainrepo.Repository, access Access, validator ContentValidator) Service {
	if repo == nil {
		panic("listings repository is required")
	}
	if access == nil {
		panic("access gate is required")
	}
	if validator == nil {
		panic("content validator is required")
	}
	return &service{repo: repo, access: access, validator: validator}
}

func (s *service) GetPublished(ctx context.Context, audit requesttrace.AuditInfo, slug string) (Published, []VersionMeta, error) { //nolint:revive
	listing, err := s.repo.GetListingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, persistence.ErrListingNotFound) {
			return Published{}, nil, ErrNotFound
		}
		return Published{}, nil, err
	}

	metas, err := s.versionMetas(ctx, listing)
	if err != nil {
		return Published{}, nil, err
	}

	published := Published{
		Slug:                listing.Slug,
		Title:               listing.Title,
		DeveloperWebsite:    listing.DeveloperWebsite,
		IsVerifiedOZProject: listing.IsVerifiedOZProject,
		HasVault:            listing.HasVault,
	}

	// A listing without a pointer was never published. It is still reachable,
	// distinct from an unknown slug, with a placeholder document.
	if listing.CurrentVersionID == nil {
		published.IsDraft = true
		published.Data = draftPlaceholder(listing)
		published.NewsLinks = json.RawMessage(`[]`)
		return published, metas, nil
	}

	current, err := s.repo.GetVersion(ctx, listing.ID, *listing.CurrentVersionID)
	if err != nil {
		return Published{}, nil, err
	}

	published.VersionNumber = current.VersionNumber
	published.Data = current.Data
	published.NewsLinks = current.NewsLinks
	return published, metas, nil
}

func (s *service) ListVersions(ctx context.Context, audit requesttrace.AuditInfo, slug string) ([]VersionMeta, error) { //nolint:revive
	listing, err := s.repo.GetListingBySlug(ctx, slug)
	if err != nil {
		// An unknown slug has no history. Not an error.
		if errors.Is(err, persistence.ErrListingNotFound) {
			return []VersionMeta{}, nil
		}
		return nil, err
	}

	return s.versionMetas(ctx, listing)
}

func (s *service) GetVersion(ctx context.Context, audit requesttrace.AuditInfo, slug string, versionID uuid.UUID) (Version, error) {
	if err := s.authorizeEdit(ctx, audit, slug); err != nil {
		return Version{}, err
	}

	listing, err := s.repo.GetListingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, persistence.ErrListingNotFound) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}

	record, err := s.repo.GetVersion(ctx, listing.ID, versionID)
	if err != nil {
		if errors.Is(err, persistence.ErrVersionNotFound) {
			return Version{}, ErrVersionNotFound
		}
		return Version{}, err
	}

	return mapVersion(record), nil
}

func (s *service) CreateVersion(ctx context.Context, audit requesttrace.AuditInfo, slug string, input CreateVersionInput) (Version, error) {
	normalizedSlug, err := persistence.NormalizeSlug(slug)
	if err != nil {
		return Version{}, &ValidationError{Fields: FieldErrors{"slug": {err.Error()}}}
	}

	if err := s.authorizeEdit(ctx, audit, normalizedSlug); err != nil {
		return Version{}, err
	}

	if err := s.validateContent(input.Data, input.NewsLinks); err != nil {
		return Version{}, err
	}

	listing, err := s.ensureListing(ctx, normalizedSlug, input.Data, true)
	if err != nil {
		return Version{}, err
	}

	record, err := s.appendVersion(ctx, listing.ID, input)
	if err != nil {
		return Version{}, err
	}

	return mapVersion(record), nil
}

func (s *service) Rollback(ctx context.Context, audit requesttrace.AuditInfo, slug string, versionID uuid.UUID) (RollbackResult, error) {
	if err := s.authorizeEdit(ctx, audit, slug); err != nil {
		return RollbackResult{}, err
	}

	if versionID == uuid.Nil {
		return RollbackResult{}, &ValidationError{Fields: FieldErrors{"versionId": {"versionId is required"}}}
	}

	listing, err := s.repo.GetListingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, persistence.ErrListingNotFound) {
			return RollbackResult{}, ErrNotFound
		}
		return RollbackResult{}, err
	}

	versionNumber, err := s.repo.SetCurrentVersion(ctx, listing.ID, versionID)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrVersionNotFound):
			return RollbackResult{}, ErrVersionNotFound
		case errors.Is(err, persistence.ErrListingNotFound):
			return RollbackResult{}, ErrNotFound
		default:
			return RollbackResult{}, err
		}
	}

	return RollbackResult{VersionID: versionID, VersionNumber: versionNumber}, nil
}

func (s *service) CreateListing(ctx context.Context, audit requesttrace.AuditInfo, input CreateListingInput) (Listing, error) {
	adminID, _, err := s.requireAdmin(audit)
	if err != nil {
		return Listing{}, err
	}

	errs := FieldErrors{}

	normalizedSlug, slugErr := persistence.NormalizeSlug(input.Slug)
	if slugErr != nil {
		errs.add("slug", slugErr.Error())
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		errs.add("title", "title is required")
	}

	if len(errs) > 0 {
		return Listing{}, &ValidationError{Fields: errs}
	}

	hasContent := len(input.Data) > 0
	if hasContent {
		if err := s.validateContent(input.Data, input.NewsLinks); err != nil {
			return Listing{}, err
		}
	}

	record, err := s.repo.CreateListing(ctx, persistence.CreateListingParams{
		ID:       uuid.New(),
		Slug:     normalizedSlug,
		Title:    title,
		HasVault: input.HasVault,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrSlugConflict) {
			return Listing{}, ErrSlugConflict
		}
		return Listing{}, err
	}

	// The creator always gets a grant, so customers can keep editing the
	// listing they just registered.
	if err := s.access.GrantAccess(ctx, adminID, record.Slug); err != nil {
		return Listing{}, err
	}

	isDraft := true
	if hasContent {
		if _, err := s.appendVersion(ctx, record.ID, CreateVersionInput{Data: input.Data, NewsLinks: input.NewsLinks}); err != nil {
			return Listing{}, err
		}
		isDraft = false
	}

	return Listing{
		ID:        record.ID,
		Slug:      record.Slug,
		Title:     record.Title,
		HasVault:  record.HasVault,
		IsDraft:   isDraft,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

// appendVersion inserts the next version, retrying exactly once when a
// concurrent writer claims the same version number first.
func (s *service) appendVersion(ctx context.Context, listingID uuid.UUID, input CreateVersionInput) (persistence.VersionRecord, error) {
	params := persistence.AppendVersionParams{
		VersionID: uuid.New(),
		ListingID: listingID,
		Data:      input.Data,
		NewsLinks: input.NewsLinks,
	}

	record, err := s.repo.AppendVersion(ctx, params)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, persistence.ErrVersionConflict) {
		return persistence.VersionRecord{}, err
	}

	params.VersionID = uuid.New()
	record, err = s.repo.AppendVersion(ctx, params)
	if err != nil {
		if errors.Is(err, persistence.ErrVersionConflict) {
			return persistence.VersionRecord{}, ErrConflict
		}
		return persistence.VersionRecord{}, err
	}
	return record, nil
}

// ensureListing fetches the listing for a slug, creating a draft row when
// lazyCreate is set and no row exists. A concurrent creator winning the race
// is fine; the row is re-fetched.
func (s *service) ensureListing(ctx context.Context, slug string, data json.RawMessage, lazyCreate bool) (persistence.ListingRecord, error) {
	listing, err := s.repo.GetListingBySlug(ctx, slug)
	if err == nil {
		return listing, nil
	}
	if !errors.Is(err, persistence.ErrListingNotFound) || !lazyCreate {
		if errors.Is(err, persistence.ErrListingNotFound) {
			return persistence.ListingRecord{}, ErrNotFound
		}
		return persistence.ListingRecord{}, err
	}

	listing, err = s.repo.CreateListing(ctx, persistence.CreateListingParams{
		ID:       uuid.New(),
		Slug:     slug,
		Title:    listingNameFrom(data, slug),
		HasVault: true,
	})
	if err == nil {
		return listing, nil
	}
	if errors.Is(err, persistence.ErrSlugConflict) {
		return s.repo.GetListingBySlug(ctx, slug)
	}
	return persistence.ListingRecord{}, err
}

func (s *service) validateContent(data, newsLinks json.RawMessage) error {
	errs := FieldErrors{}

	if len(data) == 0 {
		errs.add("data", "data is required")
	} else if err := s.validator.ValidateContent(data); err != nil {
		errs.add("data", err.Error())
	}

	if err := s.validator.ValidateNewsLinks(newsLinks); err != nil {
		errs.add("newsLinks", err.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// authorizeEdit resolves the audit actor to an admin and checks the per-slug
// edit capability. Any ambiguity denies.
func (s *service) authorizeEdit(ctx context.Context, audit requesttrace.AuditInfo, slug string) error {
	adminID, role, err := s.requireAdmin(audit)
	if err != nil {
		return err
	}

	allowed, err := s.access.CanEdit(ctx, adminID, role, slug)
	if err != nil || !allowed {
		return ErrUnauthorized
	}
	return nil
}

func (s *service) requireAdmin(audit requesttrace.AuditInfo) (uuid.UUID, platformauth.Role, error) {
	if audit.ActorKind != requesttrace.ActorKindAdmin || audit.AdminID == nil || !audit.Role.Valid() {
		return uuid.Nil, "", ErrUnauthorized
	}

	adminID, err := uuid.Parse(*audit.AdminID)
	if err != nil {
		return uuid.Nil, "", ErrUnauthorized
	}
	return adminID, audit.Role, nil
}

func (s *service) versionMetas(ctx context.Context, listing persistence.ListingRecord) ([]VersionMeta, error) {
	records, err := s.repo.ListVersionMeta(ctx, listing.ID)
	if err != nil {
		return nil, err
	}

	metas := make([]VersionMeta, 0, len(records))
	for _, record := range records {
		meta := VersionMeta{
			ID:            record.ID,
			VersionNumber: record.VersionNumber,
			CreatedAt:     record.CreatedAt,
			PublishedAt:   record.PublishedAt,
		}
		if listing.CurrentVersionID != nil && record.ID == *listing.CurrentVersionID {
			meta.IsCurrent = true
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func draftPlaceholder(listing persistence.ListingRecord) json.RawMessage {
	placeholder, err := json.Marshal(map[string]any{
		"listingName": listing.Title,
		"slug":        listing.Slug,
		"sections":    []any{},
	})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return placeholder
}

func listingNameFrom(data json.RawMessage, fallback string) string {
	var doc struct {
		ListingName string `json:"listingName"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fallback
	}
	if name := strings.TrimSpace(doc.ListingName); name != "" {
		return name
	}
	return fallback
}

func mapVersion(record persistence.VersionRecord) Version {
	return Version{
		ID:            record.ID,
		VersionNumber: record.VersionNumber,
		Data:          record.Data,
		NewsLinks:     record.NewsLinks,
		CreatedAt:     record.CreatedAt,
		PublishedAt:   record.PublishedAt,
	}
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
