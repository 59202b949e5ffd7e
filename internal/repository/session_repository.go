package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nvrgate/internal/models"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			session_hash, user_id, permissions, flags, domain, creation_time, creation_user_agent, creation_addr
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.Hash,
		session.UserID,
		int32(session.Permissions),
		int32(session.Flags),
		session.Domain,
		session.CreationTime,
		session.CreationUserAgent,
		session.CreationAddr,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, hash []byte) (models.Session, error) {
	const query = `
		SELECT session_hash, user_id, permissions, flags, domain, creation_time,
		       creation_user_agent, creation_addr, last_use_time, use_count
		FROM user_sessions
		WHERE session_hash = $1
	`

	var (
		session models.Session
		perms   int32
		flags   int32
	)
	if err := r.pool.QueryRow(ctx, query, hash).Scan(
		&session.Hash,
		&session.UserID,
		&perms,
		&flags,
		&session.Domain,
		&session.CreationTime,
		&session.CreationUserAgent,
		&session.CreationAddr,
		&session.LastUseTime,
		&session.UseCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.Permissions = models.Permissions(perms)
	session.Flags = models.SessionFlags(flags)
	return session, nil
}

// RecordSessionUse folds buffered use counts into the stored session. Sessions that
// disappeared in the meantime are skipped.
func (r *SessionRepository) RecordSessionUse(ctx context.Context, hash []byte, count int64, lastUse time.Time) error {
	const query = `
		UPDATE user_sessions
		SET use_count = use_count + $2,
		    last_use_time = GREATEST(COALESCE(last_use_time, $3), $3)
		WHERE session_hash = $1
	`
	_, err := r.pool.Exec(ctx, query, hash, count, lastUse)
	if err != nil {
		return fmt.Errorf("record session use: %w", err)
	}
	return nil
}
