package models

import "time"

// Session is a stored session credential. Only the hash of the raw credential is kept;
// the permission set is a snapshot taken at creation and never re-derived from the user.
type Session struct {
	Hash              []byte
	UserID            int32
	Permissions       Permissions
	Flags             SessionFlags
	Domain            []byte
	CreationTime      time.Time
	CreationUserAgent *string
	CreationAddr      *string
	LastUseTime       *time.Time
	UseCount          int64
}

// Caller is the principal a request was resolved to. It lives for one request.
type Caller struct {
	User        *User
	Permissions Permissions
	// ViaSession is true when the request carried an ambient session cookie and so
	// must prove intent with the session's CSRF token on every mutation.
	ViaSession bool
	CSRF       string
}

func (c Caller) UserID() (int32, bool) {
	if c.User == nil {
		return 0, false
	}
	return c.User.ID, true
}
