package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"nvrgate/internal/errs"
	"nvrgate/internal/models"
	"nvrgate/internal/repository"
	"nvrgate/internal/security"
)

var ErrInvalidCredentials = errs.New(errs.Unauthenticated, "incorrect username or password")

type AuthConfig struct {
	// Flags are applied to every session created by a password login.
	Flags        models.SessionFlags
	BearerSecret string
	BearerTTL    time.Duration
}

// AuthService handles password logins. Sessions themselves come from the SessionIssuer so
// a login and an administrative issuance produce the same record.
type AuthService struct {
	users  UserStore
	issuer *SessionIssuer
	verify PasswordVerifier
	cfg    AuthConfig
	log    zerolog.Logger
}

func NewAuthService(users UserStore, issuer *SessionIssuer, cfg AuthConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		issuer: issuer,
		verify: security.VerifyPassword,
		cfg:    cfg,
		log:    log,
	}
}

func (s *AuthService) WithVerifier(verify PasswordVerifier) *AuthService {
	s.verify = verify
	return s
}

type LoginInput struct {
	Username  string
	Password  string
	Domain    *string
	UserAgent *string
	Addr      *string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (IssuedSession, error) {
	user, err := s.users.GetUserByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return IssuedSession{}, ErrInvalidCredentials
		}
		return IssuedSession{}, errs.Wrap(err, errs.Internal, "load user")
	}
	if user.Disabled {
		return IssuedSession{}, errs.New(errs.Unauthenticated, "user %q is disabled", user.Username)
	}

	ok, err := s.verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Int32("user_id", user.ID).Msg("password verification failed")
		return IssuedSession{}, ErrInvalidCredentials
	}
	if !ok {
		return IssuedSession{}, ErrInvalidCredentials
	}

	return s.issuer.Issue(ctx, IssueRequest{
		Username:  user.Username,
		Domain:    input.Domain,
		Flags:     s.cfg.Flags,
		UserAgent: input.UserAgent,
		Addr:      input.Addr,
	})
}

// BearerToken wraps an issued session for clients that cannot hold cookies.
func (s *AuthService) BearerToken(issued IssuedSession) (string, error) {
	return IssueBearerToken(issued, s.cfg.BearerSecret, s.cfg.BearerTTL)
}

func IssueBearerToken(issued IssuedSession, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errs.New(errs.FailedPrecondition, "bearer tokens are not configured")
	}
	token, err := security.GenerateBearerToken(secret, issued.Encoded(), issued.User.Username, ttl)
	if err != nil {
		return "", errs.Wrap(err, errs.Internal, "sign bearer token")
	}
	return token, nil
}
