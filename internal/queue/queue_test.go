package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvrgate/internal/models"
)

type collectingHandler struct {
	mu    sync.Mutex
	tasks []models.Task
	fail  bool
}

func (h *collectingHandler) Handle(ctx context.Context, msg redis.XMessage) error {
	if h.fail {
		return errors.New("handler failed")
	}
	task, err := DecodeTask(msg.Values)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, task)
	return nil
}

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEncodeDecodeTask(t *testing.T) {
	task := models.Task{
		ID:        "2fWjg3sQ0cYzVBhMXvS3vEEmKxV",
		Type:      models.TaskUserUpdated,
		UserID:    42,
		CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 123, time.UTC),
	}
	got, err := DecodeTask(EncodeTask(task))
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecodeTaskRejects(t *testing.T) {
	_, err := DecodeTask(map[string]any{"id": "x"})
	assert.Error(t, err)

	_, err = DecodeTask(map[string]any{"type": "user.updated", "userId": "abc"})
	assert.Error(t, err)

	_, err = DecodeTask(map[string]any{"type": "user.updated", "createdAt": "yesterday"})
	assert.Error(t, err)
}

func TestProducerConsumer(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	cfg := ConsumerConfig{Stream: "accounts", Group: "workers", Consumer: "w1", Block: 10 * time.Millisecond}
	handler := &collectingHandler{}
	consumer := NewConsumer(client, cfg, zerolog.Nop(), handler)
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx))

	producer := NewProducer(client, "accounts")
	_, err := producer.Enqueue(ctx, models.Task{Type: models.TaskUserCreated, UserID: 3})
	require.NoError(t, err)
	_, err = producer.Enqueue(ctx, models.Task{Type: models.TaskUserDeleted, UserID: 3})
	require.NoError(t, err)

	n, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, handler.tasks, 2)
	assert.Equal(t, models.TaskUserCreated, handler.tasks[0].Type)
	assert.Equal(t, models.TaskUserDeleted, handler.tasks[1].Type)
	for _, task := range handler.tasks {
		assert.NotEmpty(t, task.ID)
		assert.False(t, task.CreatedAt.IsZero())
		assert.Equal(t, int32(3), task.UserID)
	}

	n, err = consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsumerLeavesFailedMessagesPending(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	cfg := ConsumerConfig{Stream: "accounts", Group: "workers", Consumer: "w1", Block: 10 * time.Millisecond}
	consumer := NewConsumer(client, cfg, zerolog.Nop(), &collectingHandler{fail: true})
	require.NoError(t, consumer.EnsureGroup(ctx))

	_, err := NewProducer(client, "accounts").Enqueue(ctx, models.Task{Type: models.TaskUserUpdated, UserID: 1})
	require.NoError(t, err)

	n, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := client.XPending(ctx, "accounts", "workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}
