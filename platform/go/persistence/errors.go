package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors surfaced by the stores. Services translate these into their
// own error taxonomy; nothing below this layer is retried automatically.
var (
	// ErrListingNotFound indicates no listing row exists for the slug or id.
	ErrListingNotFound = errors.New("listing not found")
	// ErrVersionNotFound covers both "no such version" and "version belongs to
	// a different listing"; callers must not be able to tell these apart.
	ErrVersionNotFound = errors.New("listing version not found")
	// ErrVersionConflict indicates a concurrent writer claimed the same
	// version number first.
	ErrVersionConflict = errors.New("listing version number conflict")
	// ErrSlugConflict indicates the listing slug is already taken.
	ErrSlugConflict = errors.New("listing slug already exists")
	// ErrAdminNotFound indicates no admin user matches the lookup.
	ErrAdminNotFound = errors.New("admin user not found")
	// ErrAdminConflict indicates the admin email is already registered.
	ErrAdminConflict = errors.New("admin email already exists")
	// ErrSessionNotFound indicates the session token matches no live session.
	ErrSessionNotFound = errors.New("session not found")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
