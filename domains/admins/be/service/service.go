package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/paramvora-myacara/oz-listings-api/domains/admins/be/repo"
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
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrConflict           = errors.New("admin email conflict")
)

// Admin is a back-office user without credential material.
type Admin struct {
	ID        uuid.UUID
	Email     string
	Role      platformauth.Role
	CreatedAt time.Time
}

// Session is a freshly issued login session. Token is returned to the client
// exactly once.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Admin     Admin
}

// Profile is the /admin/me view: identity plus editable listings.
type Profile struct {
	Admin    Admin
	Listings []persistence.GrantedListing
}

// Service exposes the admins domain operations: credentials, sessions and
// per-listing edit authorization.
type Service interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, audit requesttrace.AuditInfo) (Profile, error)
	Resolve(ctx context.Context, token string) (*platformauth.Identity, error)
	CanEdit(ctx context.Context, adminID uuid.UUID, role platformauth.Role, slug string) (bool, error)
	GrantAccess(ctx context.Context, adminID uuid.UUID, slug string) error
	CreateAdmin(ctx context.Context, email, password string, role platformauth.Role) (Admin, error)
}

type service struct {
	repo       domainrepo.Repository
	sessionTTL time.Duration
	now        func() time.Time
}

// New builds an admins Service. sessionTTL bounds how long an issued session
// stays valid.
func New(repo domainrepo.Repository, sessionTTL time.Duration) Service {
	if repo == nil {
		panic("admins repository is required")
	}
	if sessionTTL <= 0 {
		panic("session ttl must be positive")
	}
	return &service{
		repo:       repo,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, &ValidationError{Fields: FieldErrors{"body": {"email and password are required"}}}
	}

	record, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrAdminNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ok, err := platformauth.VerifyPassword(record.PasswordHash, password)
	if err != nil || !ok {
		return Session{}, ErrInvalidCredentials
	}

	token, hash, err := platformauth.NewSessionToken()
	if err != nil {
		return Session{}, err
	}

	expiresAt := s.now().UTC().Add(s.sessionTTL)
	if err := s.repo.CreateSession(ctx, hash, record.ID, expiresAt); err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     mapAdmin(record),
	}, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	// A malformed token cannot match any stored hash; nothing to revoke.
	if err := platformauth.ValidateTokenShape(token); err != nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, platformauth.HashSessionToken(token))
}

func (s *service) Me(ctx context.Context, audit requesttrace.AuditInfo) (Profile, error) {
	if audit.ActorKind != requesttrace.ActorKindAdmin || audit.AdminID == nil {
		return Profile{}, ErrUnauthenticated
	}

	adminID, err := uuid.Parse(*audit.AdminID)
	if err != nil {
		return Profile{}, ErrUnauthenticated
	}

	record, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, persistence.ErrAdminNotFound) {
			return Profile{}, ErrUnauthenticated
		}
		return Profile{}, err
	}

	listings, err := s.repo.ListGrantedListings(ctx, adminID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{Admin: mapAdmin(record), Listings: listings}, nil
}

// Resolve maps a presented session token to an admin identity. Every failure
// collapses to the same error so callers stay unauthenticated without learning
// why.
func (s *service) Resolve(ctx context.Context, token string) (*platformauth.Identity, error) {
	if err := platformauth.ValidateTokenShape(token); err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.repo.GetLiveSession(ctx, platformauth.HashSessionToken(token))
	if err != nil {
		return nil, ErrUnauthenticated
	}

	record, err := s.repo.GetAdminByID(ctx, session.AdminID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	role := platformauth.Role(record.Role)
	if !role.Valid() {
		return nil, ErrUnauthenticated
	}

	return &platformauth.Identity{
		ID:    record.ID,
		Email: record.Email,
		Role:  role,
	}, nil
}

// CanEdit decides per-slug edit authorization. Lookup failures deny.
func (s *service) CanEdit(ctx context.Context, adminID uuid.UUID, role platformauth.Role, slug string) (bool, error) {
	if adminID == uuid.Nil || !role.Valid() {
		return false, nil
	}
	if role.EditsAnyListing() {
		return true, nil
	}

	granted, err := s.repo.HasGrant(ctx, adminID, slug)
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (s *service) GrantAccess(ctx context.Context, adminID uuid.UUID, slug string) error {
	return s.repo.CreateGrant(ctx, adminID, slug)
}

func (s *service) CreateAdmin(ctx context.Context, email, password string, role platformauth.Role) (Admin, error) {
	errs := FieldErrors{}

	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		errs.add("email", "a valid email is required")
	}
	if len(password) < 12 {
		errs.add("password", "password must be at least 12 characters")
	}
	if !role.Valid() {
		errs.add("role", "role must be internal_admin or customer")
	}
	if len(errs) > 0 {
		return Admin{}, &ValidationError{Fields: errs}
	}

	hash, err := platformauth.HashPassword(password)
	if err != nil {
		return Admin{}, err
	}

	record, err := s.repo.CreateAdmin(ctx, persistence.CreateAdminParams{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrAdminConflict) {
			return Admin{}, ErrConflict
		}
		return Admin{}, err
	}

	return mapAdmin(record), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapAdmin(record persistence.AdminRecord) Admin {
	return Admin{
		ID:        record.ID,
		Email:     record.Email,
		Role:      platformauth.Role(record.Role),
		CreatedAt: record.CreatedAt,
	}
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
