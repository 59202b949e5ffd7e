package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"nvrgate/internal/models"
)

// MemoryStore keeps users and sessions in process memory. A single RWMutex serializes
// every read-modify-write, so an UpdateUser callback observes and commits atomically
// with respect to all other writers.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int32
	users    map[int32]models.User
	byName   map[string]int32
	sessions map[string]models.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		users:    make(map[int32]models.User),
		byName:   make(map[string]int32),
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int32) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *MemoryStore) AddUser(ctx context.Context, change models.UserChange) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[change.Username]; taken {
		return models.User{}, ErrUsernameTaken
	}
	u := change.Apply(models.User{ID: s.nextID, CreatedAt: s.now()})
	s.nextID++
	s.users[u.ID] = cloneUser(u)
	s.byName[u.Username] = u.ID
	return cloneUser(u), nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id int32, fn func(models.User) (*models.UserChange, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	change, err := fn(cloneUser(current))
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}
	if change.Username != current.Username {
		if _, taken := s.byName[change.Username]; taken {
			return ErrUsernameTaken
		}
	}

	updated := change.Apply(current)
	delete(s.byName, current.Username)
	s.byName[updated.Username] = id
	s.users[id] = cloneUser(updated)
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byName, u.Username)
	for k, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, k)
		}
	}
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[session.UserID]; !ok {
		return ErrUserNotFound
	}
	s.sessions[string(session.Hash)] = session
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, hash []byte) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[string(hash)]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) RecordSessionUse(ctx context.Context, hash []byte, count int64, lastUse time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[string(hash)]
	if !ok {
		return nil
	}
	sess.UseCount += count
	if sess.LastUseTime == nil || lastUse.After(*sess.LastUseTime) {
		t := lastUse
		sess.LastUseTime = &t
	}
	s.sessions[string(hash)] = sess
	return nil
}

func cloneUser(u models.User) models.User {
	if u.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	if u.Preferences != nil {
		u.Preferences = maps.Clone(u.Preferences)
	}
	return u
}
