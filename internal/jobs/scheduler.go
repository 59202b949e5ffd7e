package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"nvrgate/internal/config"
	"nvrgate/internal/models"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, task models.Task) (string, error)
}

type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
	cfg   config.JobsConfig
	log   zerolog.Logger
}

func NewScheduler(queue Enqueuer, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

// Start registers the periodic tasks. An empty schedule disables its task.
func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	schedules := []struct {
		spec string
		typ  models.TaskType
	}{
		{s.cfg.FlushUsage, models.TaskFlushSessions},
		{s.cfg.ExportUsers, models.TaskExportUsers},
	}
	for _, sched := range schedules {
		if sched.spec == "" {
			continue
		}
		typ := sched.typ
		if _, err := s.cron.AddFunc(sched.spec, func() { s.enqueue(typ) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to the returned context's deadline.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	timeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return timeout
}

func (s *Scheduler) enqueue(typ models.TaskType) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.queue.Enqueue(ctx, models.Task{Type: typ}); err != nil {
		s.log.Error().Err(err).Str("type", string(typ)).Msg("enqueue task failed")
	}
}
