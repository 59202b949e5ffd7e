package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PasswordValue is the tri-state password member: a nil *PasswordValue means the member
// was absent, a nil Value means an explicit null (clear the password).
type PasswordValue struct {
	Value *string
}

func NewPassword(p string) *PasswordValue {
	return &PasswordValue{Value: &p}
}

func ClearedPassword() *PasswordValue {
	return &PasswordValue{}
}

// UserSubset is a partial user record as carried by create, update and precondition
// payloads. Members the server does not recognize are kept in Unknown instead of being
// dropped, so handlers can refuse them once every known member has been consumed.
type UserSubset struct {
	Username    *string
	Password    *PasswordValue
	Preferences *Preferences
	Permissions *Permissions
	Disabled    *bool

	Unknown map[string]json.RawMessage
}

const (
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldPreferences = "preferences"
	fieldPermissions = "permissions"
	fieldDisabled    = "disabled"
)

// IsEmpty reports whether every member has been consumed.
func (u *UserSubset) IsEmpty() bool {
	return u == nil || len(u.Remaining()) == 0
}

// Remaining lists the members still present, known ones first.
func (u *UserSubset) Remaining() []string {
	if u == nil {
		return nil
	}
	var out []string
	if u.Username != nil {
		out = append(out, fieldUsername)
	}
	if u.Password != nil {
		out = append(out, fieldPassword)
	}
	if u.Preferences != nil {
		out = append(out, fieldPreferences)
	}
	if u.Permissions != nil {
		out = append(out, fieldPermissions)
	}
	if u.Disabled != nil {
		out = append(out, fieldDisabled)
	}
	unknown := make([]string, 0, len(u.Unknown))
	for k := range u.Unknown {
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	return append(out, unknown...)
}

func (u *UserSubset) UnmarshalJSON(b []byte) error {
	*u = UserSubset{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(val), []byte("null"))
		switch key {
		case fieldUsername:
			if isNull {
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			u.Username = &s
		case fieldPassword:
			if isNull {
				u.Password = ClearedPassword()
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			u.Password = NewPassword(s)
		case fieldPreferences:
			if isNull {
				continue
			}
			var p Preferences
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if p == nil {
				p = Preferences{}
			}
			u.Preferences = &p
		case fieldPermissions:
			if isNull {
				continue
			}
			var p Permissions
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			u.Permissions = &p
		case fieldDisabled:
			if isNull {
				continue
			}
			var d bool
			if err := json.Unmarshal(val, &d); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			u.Disabled = &d
		default:
			if u.Unknown == nil {
				u.Unknown = make(map[string]json.RawMessage)
			}
			u.Unknown[key] = val
		}
	}
	return nil
}

func (u UserSubset) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(u.Unknown))
	for k, v := range u.Unknown {
		out[k] = v
	}
	if u.Username != nil {
		out[fieldUsername] = *u.Username
	}
	if u.Password != nil {
		out[fieldPassword] = u.Password.Value
	}
	if u.Preferences != nil {
		out[fieldPreferences] = *u.Preferences
	}
	if u.Permissions != nil {
		out[fieldPermissions] = *u.Permissions
	}
	if u.Disabled != nil {
		out[fieldDisabled] = *u.Disabled
	}
	return json.Marshal(out)
}
