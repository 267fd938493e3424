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

// SessionRecord is a row of the admin_sessions table. Only the SHA-256 hash of
// the token is stored; the raw token exists solely in the client's cookie.
type SessionRecord struct {
	TokenHash []byte    `db:"token_hash"`
	AdminID   uuid.UUID `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// SessionStore provides access to the admin_sessions table.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a store; assumes migrations already created the table.
func NewSessionStore(ctx context.Context, pool *pgxpool.Pool) (*SessionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SessionStore{pool: pool}, nil
}

// CreateSession persists a new session under the token hash.
func (s *SessionStore) CreateSession(ctx context.Context, tokenHash []byte, adminID uuid.UUID, expiresAt time.Time) error {
	if len(tokenHash) == 0 {
		return errors.New("token hash is required")
	}
	if adminID == uuid.Nil {
		return errors.New("admin id is required")
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO admin_sessions (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
	`, tokenHash, adminID, expiresAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetLiveSession fetches the session for a token hash, excluding expired rows.
// Expired sessions are indistinguishable from absent ones.
func (s *SessionStore) GetLiveSession(ctx context.Context, tokenHash []byte) (SessionRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, created_at, expires_at
		FROM admin_sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)

	var rec SessionRecord
	if err := row.Scan(&rec.TokenHash, &rec.AdminID, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRecord{}, ErrSessionNotFound
		}
		return SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

// DeleteSession revokes a session. Deleting an unknown token is not an error.
func (s *SessionStore) DeleteSession(ctx context.Context, tokenHash []byte) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM admin_sessions WHERE token_hash = $1
	`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes expired rows; used by the operator CLI.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM admin_sessions WHERE expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
