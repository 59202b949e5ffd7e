package models

import (
	"reflect"
	"time"
)

// Preferences is an opaque, client-defined JSON object owned by the user record.
type Preferences map[string]any

// Equal compares two preference objects structurally; nil and empty are equal.
func (p Preferences) Equal(other Preferences) bool {
	if len(p) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(p), map[string]any(other))
}

type User struct {
	ID           int32
	Username     string
	PasswordHash []byte
	Permissions  Permissions
	Preferences  Preferences
	Disabled     bool
	CreatedAt    time.Time
}

func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// Change starts a change against the user's current state.
func (u User) Change() UserChange {
	return UserChange{
		UserID:       u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Permissions:  u.Permissions,
		Preferences:  u.Preferences,
		Disabled:     u.Disabled,
	}
}

// UserChange is the full desired state of one user record, applied as a single
// atomic write. A zero UserID means the change adds a new user.
type UserChange struct {
	UserID       int32
	Username     string
	PasswordHash []byte
	Permissions  Permissions
	Preferences  Preferences
	Disabled     bool
}

func AddUser(username string) UserChange {
	return UserChange{Username: username}
}

func (c UserChange) IsAdd() bool {
	return c.UserID == 0
}

// SetPasswordHash stores an already-hashed password.
func (c *UserChange) SetPasswordHash(hash []byte) {
	c.PasswordHash = hash
}

func (c *UserChange) ClearPassword() {
	c.PasswordHash = nil
}

// Apply returns the user as it looks after the change.
func (c UserChange) Apply(u User) User {
	u.Username = c.Username
	u.PasswordHash = c.PasswordHash
	u.Permissions = c.Permissions
	u.Preferences = c.Preferences
	u.Disabled = c.Disabled
	return u
}
