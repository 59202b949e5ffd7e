package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvrgate/internal/models"
)

func TestMemoryStoreAddAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	alice, err := s.AddUser(ctx, models.AddUser("alice"))
	require.NoError(t, err)
	bob, err := s.AddUser(ctx, models.AddUser("bob"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), alice.ID)
	assert.Equal(t, int32(2), bob.ID)

	_, err = s.AddUser(ctx, models.AddUser("alice"))
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := s.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = s.GetUser(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestMemoryStoreUpdateCallbackErrorLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u, err := s.AddUser(ctx, models.AddUser("alice"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.UpdateUser(ctx, u.ID, func(cur models.User) (*models.UserChange, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestMemoryStoreUpdateRename(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice, err := s.AddUser(ctx, models.AddUser("alice"))
	require.NoError(t, err)
	_, err = s.AddUser(ctx, models.AddUser("bob"))
	require.NoError(t, err)

	rename := func(to string) func(models.User) (*models.UserChange, error) {
		return func(cur models.User) (*models.UserChange, error) {
			c := cur.Change()
			c.Username = to
			return &c, nil
		}
	}

	assert.ErrorIs(t, s.UpdateUser(ctx, alice.ID, rename("bob")), ErrUsernameTaken)
	require.NoError(t, s.UpdateUser(ctx, alice.ID, rename("alicia")))

	_, err = s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrUserNotFound)
	got, err := s.GetUserByUsername(ctx, "alicia")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	assert.ErrorIs(t, s.UpdateUser(ctx, 42, rename("x")), ErrUserNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	change := models.AddUser("alice")
	change.Preferences = models.Preferences{"theme": "dark"}
	u, err := s.AddUser(ctx, change)
	require.NoError(t, err)

	u.Preferences["theme"] = "light"
	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Preferences["theme"])
}

// Concurrent read-modify-write cycles must not lose increments.
func TestMemoryStoreSerializesUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u, err := s.AddUser(ctx, models.AddUser("alice"))
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateUser(ctx, u.ID, func(cur models.User) (*models.UserChange, error) {
				c := cur.Change()
				n, _ := cur.Preferences["n"].(int)
				c.Preferences = models.Preferences{"n": n + 1}
				return &c, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.Preferences["n"])
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u, err := s.AddUser(ctx, models.AddUser("alice"))
	require.NoError(t, err)

	session := models.Session{Hash: []byte("hash-1"), UserID: u.ID, Flags: models.DefaultSessionFlags}
	require.NoError(t, s.CreateSession(ctx, session))
	assert.ErrorIs(t, s.CreateSession(ctx, models.Session{Hash: []byte("x"), UserID: 99}), ErrUserNotFound)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordSessionUse(ctx, session.Hash, 3, first))
	require.NoError(t, s.RecordSessionUse(ctx, session.Hash, 2, first.Add(-time.Hour)))

	got, err := s.GetSession(ctx, session.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.UseCount)
	require.NotNil(t, got.LastUseTime)
	assert.Equal(t, first, *got.LastUseTime)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetSession(ctx, session.Hash)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrUserNotFound)
}
