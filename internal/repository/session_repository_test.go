package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/aditpras/civil-registry-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	session := &models.Session{
		RefreshTokenHash: "$2a$10$hash",
		ExpiresAt:        time.Now().Add(168 * time.Hour),
		UserID:           "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.Equal(t, int64(7), session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "refresh_token_hash", "expires_at", "user_agent", "ip_address", "user_id", "created_at", "updated_at", "revoked_at"}).
		AddRow(int64(1), "$2a$10$hash-a", now.Add(time.Hour), nil, nil, "user-1", now, now, nil).
		AddRow(int64(2), "$2a$10$hash-b", now.Add(2*time.Hour), nil, nil, "user-2", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE revoked_at IS NULL AND expires_at > $1")).
		WithArgs(now).
		WillReturnRows(rows)

	sessions, err := repo.FindActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.True(t, sessions[0].IsActive(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRevokeByUserCountsRows(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	revokedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked_at = $2")).
		WithArgs("user-1", revokedAt).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.RevokeByUser(context.Background(), "user-1", revokedAt)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteExpiredCountsRows(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 5))

	removed, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 5, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
