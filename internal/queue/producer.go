package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nvrgate/internal/ids"
	"nvrgate/internal/models"
)

const (
	fieldID        = "id"
	fieldType      = "type"
	fieldUserID    = "userId"
	fieldCreatedAt = "createdAt"
)

// Producer appends tasks to the account event stream.
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream, maxLen: 10000}
}

// Enqueue adds the task and returns the stream entry id. A task without an id gets one.
func (p *Producer) Enqueue(ctx context.Context, task models.Task) (string, error) {
	if task.ID == "" {
		task.ID = ids.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: EncodeTask(task),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type, err)
	}
	return id, nil
}

func EncodeTask(task models.Task) map[string]any {
	return map[string]any{
		fieldID:        task.ID,
		fieldType:      string(task.Type),
		fieldUserID:    strconv.FormatInt(int64(task.UserID), 10),
		fieldCreatedAt: task.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeTask reads a task back from a stream entry.
func DecodeTask(values map[string]any) (models.Task, error) {
	var task models.Task
	typ, _ := values[fieldType].(string)
	if typ == "" {
		return task, fmt.Errorf("task has no type")
	}
	task.Type = models.TaskType(typ)
	task.ID, _ = values[fieldID].(string)

	if raw, _ := values[fieldUserID].(string); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return task, fmt.Errorf("task user id %q: %w", raw, err)
		}
		task.UserID = int32(id)
	}
	if raw, _ := values[fieldCreatedAt].(string); raw != "" {
		created, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return task, fmt.Errorf("task created at %q: %w", raw, err)
		}
		task.CreatedAt = created
	}
	return task, nil
}
