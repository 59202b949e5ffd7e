package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"nvrgate/internal/models"
	"nvrgate/internal/repository"
	"nvrgate/internal/security"
)

var fastParams = security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func fastHash(password string) ([]byte, error) {
	return security.HashPasswordWithParams(password, fastParams)
}

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []models.Task
	err   error
}

func (p *recordingPublisher) Enqueue(ctx context.Context, task models.Task) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.tasks = append(p.tasks, task)
	return "1-0", nil
}

func (p *recordingPublisher) types() []models.TaskType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.TaskType, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t.Type)
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	users     *UserService
	publisher *recordingPublisher
	admin     models.User
	alice     models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	adminChange := models.AddUser("admin")
	adminChange.Permissions = models.PermAdminUsers | models.PermViewVideo
	admin, err := store.AddUser(ctx, adminChange)
	require.NoError(t, err)

	aliceChange := models.AddUser("alice")
	aliceChange.Permissions = models.PermViewVideo
	aliceChange.Preferences = models.Preferences{"theme": "dark"}
	hash, err := fastHash("alice-pass")
	require.NoError(t, err)
	aliceChange.SetPasswordHash(hash)
	alice, err := store.AddUser(ctx, aliceChange)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	users := NewUserService(store, publisher, zerolog.Nop()).WithPasswordFuncs(fastHash, security.VerifyPassword)

	return &fixture{store: store, users: users, publisher: publisher, admin: admin, alice: alice}
}

const testCSRF = "csrf-token"

// sessionCaller is a caller authenticated by session cookie, so mutations need testCSRF.
func sessionCaller(u models.User) models.Caller {
	return models.Caller{User: &u, Permissions: u.Permissions, ViaSession: true, CSRF: testCSRF}
}

// bearerCaller is authenticated by a non-ambient credential and needs no CSRF token.
func bearerCaller(u models.User) models.Caller {
	return models.Caller{User: &u, Permissions: u.Permissions}
}

func csrf() *string {
	s := testCSRF
	return &s
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) reload(t *testing.T, id int32) models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}
