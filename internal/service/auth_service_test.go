package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvrgate/internal/errs"
	"nvrgate/internal/models"
	"nvrgate/internal/security"
)

func newAuth(f *fixture, cfg AuthConfig) *AuthService {
	return NewAuthService(f.store, newIssuer(f, time.Now()), cfg, zerolog.Nop())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := newAuth(f, AuthConfig{Flags: models.DefaultSessionFlags}).Login(ctx, LoginInput{
		Username:  "alice",
		Password:  "alice-pass",
		UserAgent: ptr("curl/8.0"),
		Addr:      ptr("192.0.2.1"),
	})
	require.NoError(t, err)

	assert.Equal(t, f.alice.ID, issued.User.ID)
	assert.Equal(t, models.DefaultSessionFlags, issued.Session.Flags)
	stored, err := f.store.GetSession(ctx, issued.ID.Hash())
	require.NoError(t, err)
	require.NotNil(t, stored.CreationUserAgent)
	assert.Equal(t, "curl/8.0", *stored.CreationUserAgent)
	require.NotNil(t, stored.CreationAddr)
	assert.Equal(t, "192.0.2.1", *stored.CreationAddr)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := newAuth(f, AuthConfig{})

	_, err := auth.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, LoginInput{Username: "nobody", Password: "alice-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// admin has no password at all.
	_, err = auth.Login(ctx, LoginInput{Username: "admin", Password: ""})
	requireKind(t, err, errs.Unauthenticated, "")

	require.NoError(t, f.users.Patch(ctx, bearerCaller(f.admin), f.alice.ID, PatchUserRequest{
		Update: subset(t, `{"disabled": true}`),
	}))
	_, err = auth.Login(ctx, LoginInput{Username: "alice", Password: "alice-pass"})
	requireKind(t, err, errs.Unauthenticated, "disabled")
}

func TestBearerToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := newAuth(f, AuthConfig{BearerSecret: testBearerSecret, BearerTTL: time.Hour})

	issued, err := auth.Login(ctx, LoginInput{Username: "alice", Password: "alice-pass"})
	require.NoError(t, err)

	token, err := auth.BearerToken(issued)
	require.NoError(t, err)
	claims, err := security.ParseBearerToken(token, testBearerSecret)
	require.NoError(t, err)
	assert.Equal(t, issued.Encoded(), claims.SessionID)
	assert.Equal(t, "alice", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)

	_, err = newAuth(f, AuthConfig{}).BearerToken(issued)
	requireKind(t, err, errs.FailedPrecondition, "")
}
