package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nvrgate/internal/cache"
	"nvrgate/internal/models"
	"nvrgate/internal/queue"
	"nvrgate/internal/service"
	"nvrgate/internal/storage"
)

type SessionPurger interface {
	PurgeUser(ctx context.Context, userID int32) (int, error)
}

type UsageDrainer interface {
	Drain(ctx context.Context) ([]cache.SessionUse, error)
}

type SnapshotWriter interface {
	PutJSON(ctx context.Context, key string, v any) (minio.UploadInfo, error)
}

type Deps struct {
	Users    service.UserStore
	Sessions service.SessionStore
	Cache    SessionPurger
	Usage    UsageDrainer
	// Snapshots may be nil when no object storage is configured.
	Snapshots SnapshotWriter
}

type Processor struct {
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

func NewProcessor(deps Deps, logger zerolog.Logger) *Processor {
	return &Processor{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

type Snapshot struct {
	ExportedAt time.Time            `json:"exportedAt"`
	Users      []service.UserWithID `json:"users"`
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeTask(msg.Values)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.Run(ctx, task)
}

func (p *Processor) Run(ctx context.Context, task models.Task) error {
	switch task.Type {
	case models.TaskUserUpdated, models.TaskUserDeleted:
		return p.purgeSessions(ctx, task)
	case models.TaskUserCreated:
		p.logger.Debug().Int32("user_id", task.UserID).Msg("user created")
		return nil
	case models.TaskFlushSessions:
		return p.flushSessionUse(ctx)
	case models.TaskExportUsers:
		return p.exportUsers(ctx)
	default:
		p.logger.Warn().Str("type", string(task.Type)).Msg("unknown task type")
		return nil
	}
}

// purgeSessions drops cached sessions so the next request re-reads them from the store.
func (p *Processor) purgeSessions(ctx context.Context, task models.Task) error {
	n, err := p.deps.Cache.PurgeUser(ctx, task.UserID)
	if err != nil {
		return err
	}
	p.logger.Info().
		Str("type", string(task.Type)).
		Int32("user_id", task.UserID).
		Int("purged", n).
		Msg("session cache purged")
	return nil
}

func (p *Processor) flushSessionUse(ctx context.Context) error {
	uses, err := p.deps.Usage.Drain(ctx)
	if err != nil {
		return err
	}
	for _, use := range uses {
		if err := p.deps.Sessions.RecordSessionUse(ctx, use.Hash, use.Count, use.LastUse); err != nil {
			p.logger.Error().Err(err).Msg("record session use failed")
		}
	}
	p.logger.Debug().Int("sessions", len(uses)).Msg("session use flushed")
	return nil
}

func (p *Processor) exportUsers(ctx context.Context) error {
	if p.deps.Snapshots == nil {
		p.logger.Debug().Msg("no snapshot storage configured, skipping export")
		return nil
	}
	users, err := p.deps.Users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	now := p.now()
	snapshot := Snapshot{ExportedAt: now.UTC(), Users: make([]service.UserWithID, 0, len(users))}
	for _, u := range users {
		snapshot.Users = append(snapshot.Users, service.UserWithID{ID: u.ID, User: service.NewUserView(u)})
	}

	key := storage.SnapshotKey(now)
	info, err := p.deps.Snapshots.PutJSON(ctx, key, snapshot)
	if err != nil {
		return err
	}
	p.logger.Info().Str("key", key).Int64("size", info.Size).Int("users", len(users)).Msg("users exported")
	return nil
}
