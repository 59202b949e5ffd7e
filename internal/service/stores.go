package service

import (
	"context"
	"errors"
	"time"

	"nvrgate/internal/errs"
	"nvrgate/internal/models"
	"nvrgate/internal/repository"
)

// UserStore is the account store. UpdateUser must run fn and the write it returns as one
// atomic step with respect to every other writer of the same user.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int32) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	AddUser(ctx context.Context, change models.UserChange) (models.User, error)
	UpdateUser(ctx context.Context, id int32, fn func(models.User) (*models.UserChange, error)) error
	DeleteUser(ctx context.Context, id int32) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, hash []byte) (models.Session, error)
	RecordSessionUse(ctx context.Context, hash []byte, count int64, lastUse time.Time) error
}

// SessionCache fronts SessionStore lookups.
type SessionCache interface {
	Get(ctx context.Context, hash []byte) (models.Session, bool, error)
	Put(ctx context.Context, session models.Session) error
}

type UsageRecorder interface {
	Record(ctx context.Context, hash []byte, at time.Time) error
}

type TaskPublisher interface {
	Enqueue(ctx context.Context, task models.Task) (string, error)
}

var (
	_ UserStore    = (*repository.UserRepository)(nil)
	_ UserStore    = (*repository.MemoryStore)(nil)
	_ SessionStore = (*repository.SessionRepository)(nil)
	_ SessionStore = (*repository.MemoryStore)(nil)
)

// userNotFound maps the store sentinel onto the API taxonomy and wraps anything else.
func userNotFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return errs.New(errs.NotFound, format, args...)
	}
	return err
}
