package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nvrgate/internal/models"
)

const (
	sessionKeyPrefix      = "session:"
	userSessionsKeyPrefix = "user-sessions:"
)

// SessionCache is a read-through cache of stored sessions. Each user has an index set of
// cached session keys so every entry for the user can be dropped at once.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

type cachedSession struct {
	Hash              []byte     `json:"hash"`
	UserID            int32      `json:"userId"`
	Permissions       uint32     `json:"permissions"`
	Flags             int32      `json:"flags"`
	Domain            []byte     `json:"domain,omitempty"`
	CreationTime      time.Time  `json:"creationTime"`
	CreationUserAgent *string    `json:"creationUserAgent,omitempty"`
	CreationAddr      *string    `json:"creationAddr,omitempty"`
	LastUseTime       *time.Time `json:"lastUseTime,omitempty"`
	UseCount          int64      `json:"useCount"`
}

func (c *SessionCache) Get(ctx context.Context, hash []byte) (models.Session, bool, error) {
	raw, err := c.client.Get(ctx, sessionKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, fmt.Errorf("get cached session: %w", err)
	}

	var cs cachedSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return models.Session{}, false, fmt.Errorf("decode cached session: %w", err)
	}
	return models.Session{
		Hash:              cs.Hash,
		UserID:            cs.UserID,
		Permissions:       models.Permissions(cs.Permissions),
		Flags:             models.SessionFlags(cs.Flags),
		Domain:            cs.Domain,
		CreationTime:      cs.CreationTime,
		CreationUserAgent: cs.CreationUserAgent,
		CreationAddr:      cs.CreationAddr,
		LastUseTime:       cs.LastUseTime,
		UseCount:          cs.UseCount,
	}, true, nil
}

func (c *SessionCache) Put(ctx context.Context, session models.Session) error {
	raw, err := json.Marshal(cachedSession{
		Hash:              session.Hash,
		UserID:            session.UserID,
		Permissions:       uint32(session.Permissions),
		Flags:             int32(session.Flags),
		Domain:            session.Domain,
		CreationTime:      session.CreationTime,
		CreationUserAgent: session.CreationUserAgent,
		CreationAddr:      session.CreationAddr,
		LastUseTime:       session.LastUseTime,
		UseCount:          session.UseCount,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	key := sessionKey(session.Hash)
	index := userSessionsKey(session.UserID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	return nil
}

// PurgeUser drops every cached session of the user.
func (c *SessionCache) PurgeUser(ctx context.Context, userID int32) (int, error) {
	index := userSessionsKey(userID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("list cached sessions: %w", err)
	}
	if err := c.client.Del(ctx, append(keys, index)...).Err(); err != nil {
		return 0, fmt.Errorf("purge cached sessions: %w", err)
	}
	return len(keys), nil
}

func sessionKey(hash []byte) string {
	return sessionKeyPrefix + hashKey(hash)
}

func userSessionsKey(userID int32) string {
	return fmt.Sprintf("%s%d", userSessionsKeyPrefix, userID)
}
