package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aditpras/civil-registry-api/internal/models"
)

// SessionRepository provides database access for refresh-token sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a session and fills in the generated id.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (refresh_token_hash, expires_at, user_agent, ip_address, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		session.RefreshTokenHash,
		session.ExpiresAt,
		session.UserAgent,
		session.IPAddress,
		session.UserID,
		session.CreatedAt,
		session.UpdatedAt,
	).Scan(&session.ID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindActive returns all sessions that are unrevoked and unexpired.
// Refresh lookup must compare the presented raw token against each row's
// salted hash, so the caller receives every candidate.
func (r *SessionRepository) FindActive(ctx context.Context, now time.Time) ([]models.Session, error) {
	const query = `SELECT id, refresh_token_hash, expires_at, user_agent, ip_address, user_id, created_at, updated_at, revoked_at FROM sessions WHERE revoked_at IS NULL AND expires_at > $1 ORDER BY created_at DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, now); err != nil {
		return nil, fmt.Errorf("find active sessions: %w", err)
	}
	return sessions, nil
}

// FindByUser returns all unrevoked sessions belonging to a user.
func (r *SessionRepository) FindByUser(ctx context.Context, userID string) ([]models.Session, error) {
	const query = `SELECT id, refresh_token_hash, expires_at, user_agent, ip_address, user_id, created_at, updated_at, revoked_at FROM sessions WHERE user_id = $1 AND revoked_at IS NULL ORDER BY created_at DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("find sessions by user: %w", err)
	}
	return sessions, nil
}

// Revoke marks a single session as revoked.
func (r *SessionRepository) Revoke(ctx context.Context, id int64, revokedAt time.Time) error {
	const query = `UPDATE sessions SET revoked_at = $2, updated_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeByUser revokes every active session of a user and returns the
// number affected.
func (r *SessionRepository) RevokeByUser(ctx context.Context, userID string, revokedAt time.Time) (int, error) {
	const query = `UPDATE sessions SET revoked_at = $2, updated_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, userID, revokedAt)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions by user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke sessions by user: %w", err)
	}
	return int(affected), nil
}

// DeleteExpired hard-deletes sessions past their expiry regardless of
// revocation state and returns the number removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(affected), nil
}
