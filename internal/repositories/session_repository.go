package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidfriends/clips/internal/auth"
	"github.com/vidfriends/clips/internal/db"
)

// Saving a session also drops the creator's expired sessions.
const upsertSessionSQL = `
        WITH pruned AS (
            DELETE FROM sessions WHERE user_id = $2 AND expires_at < NOW()
        )
        INSERT INTO sessions (refresh_token, user_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (refresh_token)
        DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
    `

// PostgresSessionStore keeps dev API refresh sessions in PostgreSQL.
type PostgresSessionStore struct {
	pool db.DBTX
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.DBTX) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save implements auth.SessionStore.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	if _, err := s.pool.Exec(ctx, upsertSessionSQL, session.RefreshToken, session.UserID, session.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("save session for %s: %w", session.UserID, err)
	}
	return nil
}

// Find implements auth.SessionStore. Expiry is left to the caller.
func (s *PostgresSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	var session auth.Session
	err := s.pool.QueryRow(ctx, `
        SELECT refresh_token, user_id, expires_at
        FROM sessions
        WHERE refresh_token = $1
    `, refreshToken).Scan(&session.RefreshToken, &session.UserID, &session.ExpiresAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return auth.Session{}, auth.ErrSessionNotFound
	case err != nil:
		return auth.Session{}, fmt.Errorf("find session: %w", err)
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

// Delete implements auth.SessionStore.
func (s *PostgresSessionStore) Delete(ctx context.Context, refreshToken string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
