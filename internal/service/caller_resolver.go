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

// Credentials are the raw authentication inputs of one request.
type Credentials struct {
	// SessionCookie is the value of the "s" cookie.
	SessionCookie string
	// BearerToken is the token from an "Authorization: Bearer" header.
	BearerToken string
}

type ResolverConfig struct {
	CSRFSecret   string
	BearerSecret string
	// Anonymous is granted to requests that present no credential at all.
	Anonymous models.Permissions
}

// CallerResolver turns request credentials into a Caller. Once a credential is presented
// it either resolves to an enabled user or fails; it never degrades to anonymous.
type CallerResolver struct {
	users    UserStore
	sessions SessionStore
	cache    SessionCache
	usage    UsageRecorder
	cfg      ResolverConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewCallerResolver builds a resolver. cache and usage may be nil.
func NewCallerResolver(
	users UserStore,
	sessions SessionStore,
	cache SessionCache,
	usage UsageRecorder,
	cfg ResolverConfig,
	log zerolog.Logger,
) *CallerResolver {
	return &CallerResolver{
		users:    users,
		sessions: sessions,
		cache:    cache,
		usage:    usage,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (r *CallerResolver) Resolve(ctx context.Context, creds Credentials) (models.Caller, error) {
	var (
		encoded    string
		viaSession bool
	)
	switch {
	case creds.SessionCookie != "":
		encoded = creds.SessionCookie
		viaSession = true
	case creds.BearerToken != "":
		if r.cfg.BearerSecret == "" {
			return models.Caller{}, errs.New(errs.Unauthenticated, "bearer tokens are not accepted")
		}
		claims, err := security.ParseBearerToken(creds.BearerToken, r.cfg.BearerSecret)
		if err != nil {
			return models.Caller{}, errs.Wrap(err, errs.Unauthenticated, "invalid bearer token")
		}
		encoded = claims.SessionID
	default:
		return models.Caller{Permissions: r.cfg.Anonymous}, nil
	}

	sid, err := security.ParseSessionID(encoded)
	if err != nil {
		return models.Caller{}, errs.Wrap(err, errs.Unauthenticated, "malformed session credential")
	}
	hash := sid.Hash()

	session, err := r.lookupSession(ctx, hash)
	if err != nil {
		return models.Caller{}, err
	}

	user, err := r.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Caller{}, errs.New(errs.Unauthenticated, "session user no longer exists")
		}
		return models.Caller{}, errs.Wrap(err, errs.Internal, "load session user")
	}
	if user.Disabled {
		return models.Caller{}, errs.New(errs.Unauthenticated, "user %q is disabled", user.Username)
	}

	if r.usage != nil {
		if err := r.usage.Record(ctx, hash, r.now()); err != nil {
			r.log.Warn().Err(err).Int32("user_id", user.ID).Msg("record session use failed")
		}
	}

	return models.Caller{
		User:        &user,
		Permissions: session.Permissions,
		ViaSession:  viaSession,
		CSRF:        security.CSRFToken(r.cfg.CSRFSecret, hash),
	}, nil
}

func (r *CallerResolver) lookupSession(ctx context.Context, hash []byte) (models.Session, error) {
	if r.cache != nil {
		session, ok, err := r.cache.Get(ctx, hash)
		if err != nil {
			r.log.Warn().Err(err).Msg("session cache read failed")
		} else if ok {
			return session, nil
		}
	}

	session, err := r.sessions.GetSession(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Session{}, errs.New(errs.Unauthenticated, "unknown session")
		}
		return models.Session{}, errs.Wrap(err, errs.Internal, "load session")
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, session); err != nil {
			r.log.Warn().Err(err).Msg("session cache write failed")
		}
	}
	return session, nil
}
