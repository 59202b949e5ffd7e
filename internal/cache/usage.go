package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	usageCountKey = "session-use:count"
	usageLastKey  = "session-use:last"
)

// SessionUse is the use accumulated for one session since the last drain.
type SessionUse struct {
	Hash    []byte
	Count   int64
	LastUse time.Time
}

// UsageTracker buffers session use in Redis so request handling never writes to the
// account store. The worker drains it periodically.
type UsageTracker struct {
	client *redis.Client
}

func NewUsageTracker(client *redis.Client) *UsageTracker {
	return &UsageTracker{client: client}
}

func (t *UsageTracker) Record(ctx context.Context, hash []byte, at time.Time) error {
	field := hashKey(hash)
	pipe := t.client.Pipeline()
	pipe.HIncrBy(ctx, usageCountKey, field, 1)
	pipe.HSet(ctx, usageLastKey, field, at.UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record session use: %w", err)
	}
	return nil
}

// Drain atomically takes everything recorded so far, ordered by hash.
func (t *UsageTracker) Drain(ctx context.Context) ([]SessionUse, error) {
	var countsCmd, lastCmd *redis.MapStringStringCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		countsCmd = pipe.HGetAll(ctx, usageCountKey)
		lastCmd = pipe.HGetAll(ctx, usageLastKey)
		pipe.Del(ctx, usageCountKey, usageLastKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain session use: %w", err)
	}

	counts := countsCmd.Val()
	last := lastCmd.Val()
	uses := make([]SessionUse, 0, len(counts))
	for field, rawCount := range counts {
		hash, err := hex.DecodeString(field)
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(rawCount, 10, 64)
		if err != nil {
			continue
		}
		use := SessionUse{Hash: hash, Count: count}
		if nanos, err := strconv.ParseInt(last[field], 10, 64); err == nil {
			use.LastUse = time.Unix(0, nanos).UTC()
		}
		uses = append(uses, use)
	}
	sort.Slice(uses, func(i, j int) bool { return hex.EncodeToString(uses[i].Hash) < hex.EncodeToString(uses[j].Hash) })
	return uses, nil
}
