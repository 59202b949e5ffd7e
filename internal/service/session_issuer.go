package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nvrgate/internal/errs"
	"nvrgate/internal/models"
	"nvrgate/internal/security"
)

// SessionCookieName is the cookie that carries the encoded session credential.
const SessionCookieName = "s"

// cookieJarExpires is curl's CURL_OFF_T_MAX; the cookie never expires client-side.
const cookieJarExpires = "9223372036854775807"

const cookieJarHeader = "# Netscape HTTP Cookie File\n" +
	"# https://curl.haxx.se/docs/http-cookies.html\n" +
	"# This file was generated by nvrgate login! Edit at your own risk.\n\n"

type SessionIssuer struct {
	users    UserStore
	sessions SessionStore
	log      zerolog.Logger
	now      func() time.Time
}

func NewSessionIssuer(users UserStore, sessions SessionStore, log zerolog.Logger) *SessionIssuer {
	return &SessionIssuer{
		users:    users,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for creation timestamps.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

type IssueRequest struct {
	Username string
	// Permissions overrides the user's current permissions when set.
	Permissions *models.Permissions
	Domain      *string
	Flags       models.SessionFlags
	UserAgent   *string
	Addr        *string
}

// IssuedSession is a freshly created session together with its raw credential. The raw
// credential exists only here; the store keeps its hash.
type IssuedSession struct {
	ID      security.RawSessionID
	Session models.Session
	User    models.User
}

func (s *SessionIssuer) Issue(ctx context.Context, req IssueRequest) (IssuedSession, error) {
	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return IssuedSession{}, userNotFound(err, "no such user %q", req.Username)
	}

	permissions := user.Permissions
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	sid, err := security.NewSessionID()
	if err != nil {
		return IssuedSession{}, errs.Wrap(err, errs.Internal, "create session")
	}

	session := models.Session{
		Hash:              sid.Hash(),
		UserID:            user.ID,
		Permissions:       permissions,
		Flags:             req.Flags,
		CreationTime:      s.now(),
		CreationUserAgent: req.UserAgent,
		CreationAddr:      req.Addr,
	}
	if req.Domain != nil {
		session.Domain = []byte(*req.Domain)
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return IssuedSession{}, userNotFound(err, "no such user %q", req.Username)
	}

	s.log.Info().
		Int32("user_id", user.ID).
		Str("permissions", permissions.String()).
		Str("flags", req.Flags.String()).
		Msg("session issued")

	return IssuedSession{ID: sid, Session: session, User: user}, nil
}

// Encoded is the 64-character external form of the credential.
func (i IssuedSession) Encoded() string {
	return i.ID.Encode()
}

func (i IssuedSession) CookieValue() string {
	return SessionCookieName + "=" + i.Encoded()
}

func (i IssuedSession) CookieJarLine(domain string) string {
	return CookieJarLine(i.Encoded(), i.Session.Flags, domain)
}

// WriteCookieJar writes a new curl-compatible cookie file holding the session. The file
// must not exist yet.
func (i IssuedSession) WriteCookieJar(path string, domain string) error {
	if domain == "" {
		return errs.New(errs.InvalidArgument, "cookie jar requires a domain")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(cookieJarHeader + i.CookieJarLine(domain) + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return nil
}

// HTTPCookie renders the session for a Set-Cookie header.
func (i IssuedSession) HTTPCookie() *http.Cookie {
	flags := i.Session.Flags
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    i.Encoded(),
		Path:     "/",
		Domain:   string(i.Session.Domain),
		HttpOnly: flags.Has(models.SessionHTTPOnly),
		Secure:   flags.Has(models.SessionSecure),
	}
	switch {
	case flags.Has(models.SessionSameSiteStrict):
		cookie.SameSite = http.SameSiteStrictMode
	case flags.Has(models.SessionSameSite):
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}

// CookieJarLine formats one Netscape cookie-file line. SameSite has no column in this
// format and is dropped.
func CookieJarLine(encoded string, flags models.SessionFlags, domain string) string {
	var b strings.Builder
	if flags.Has(models.SessionHTTPOnly) {
		b.WriteString("#HttpOnly_")
	}
	secure := "FALSE"
	if flags.Has(models.SessionSecure) {
		secure = "TRUE"
	}
	fmt.Fprintf(&b, "%s\tFALSE\t/\t%s\t%s\t%s\t%s", domain, secure, cookieJarExpires, SessionCookieName, encoded)
	return b.String()
}
