package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nvrgate/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrSessionNotFound = errors.New("session not found")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const userColumns = `id, username, password_hash, permissions, preferences, disabled, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetUser(ctx context.Context, id int32) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepository) AddUser(ctx context.Context, change models.UserChange) (models.User, error) {
	if !change.IsAdd() {
		return models.User{}, fmt.Errorf("add user: change targets existing user %d", change.UserID)
	}

	const query = `
		INSERT INTO users (username, password_hash, permissions, preferences, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		change.Username,
		nullableBytes(change.PasswordHash),
		int32(change.Permissions),
		preferencesOrEmpty(change.Preferences),
		change.Disabled,
	)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, translateWriteErr(err)
	}
	return u, nil
}

// UpdateUser locks the row, hands the current state to fn and writes the change fn
// returns, all inside one transaction. fn returning a nil change commits nothing;
// fn returning an error rolls back.
func (r *UserRepository) UpdateUser(ctx context.Context, id int32, fn func(models.User) (*models.UserChange, error)) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		change, err := fn(current)
		if err != nil {
			return err
		}
		if change == nil {
			return nil
		}

		const query = `
			UPDATE users
			SET username = $2,
			    password_hash = $3,
			    permissions = $4,
			    preferences = $5,
			    disabled = $6
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, query,
			id,
			change.Username,
			nullableBytes(change.PasswordHash),
			int32(change.Permissions),
			preferencesOrEmpty(change.Preferences),
			change.Disabled,
		)
		return translateWriteErr(err)
	})
}

// DeleteUser removes the user; its sessions go with it through the foreign key.
func (r *UserRepository) DeleteUser(ctx context.Context, id int32) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u           models.User
		perms       int32
		preferences map[string]any
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&perms,
		&preferences,
		&u.Disabled,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Permissions = models.Permissions(perms)
	u.Preferences = models.Preferences(preferences)
	return u, nil
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrUsernameTaken
	}
	return err
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func preferencesOrEmpty(p models.Preferences) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
