package models

import (
	"fmt"
	"strings"
)

// SessionFlags controls how a session credential is transmitted and stored by the client.
// The values are persisted with the session and must stay stable.
type SessionFlags int32

const (
	SessionHTTPOnly       SessionFlags = 1
	SessionSecure         SessionFlags = 2
	SessionSameSite       SessionFlags = 4
	SessionSameSiteStrict SessionFlags = 8
)

const DefaultSessionFlags = SessionHTTPOnly | SessionSecure | SessionSameSite | SessionSameSiteStrict

var sessionFlagNames = []struct {
	flag SessionFlags
	name string
}{
	{SessionHTTPOnly, "http-only"},
	{SessionSecure, "secure"},
	{SessionSameSite, "same-site"},
	{SessionSameSiteStrict, "same-site-strict"},
}

func (f SessionFlags) Has(flag SessionFlags) bool {
	return f&flag == flag
}

// String renders the flags as the comma-separated list ParseSessionFlags accepts.
func (f SessionFlags) String() string {
	names := make([]string, 0, len(sessionFlagNames))
	for _, fn := range sessionFlagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseSessionFlag parses a single flag name such as "http-only".
func ParseSessionFlag(name string) (SessionFlags, error) {
	for _, fn := range sessionFlagNames {
		if fn.name == name {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown session flag %q", name)
}

// ParseSessionFlags parses a comma-separated list. Whitespace around names is ignored
// and an empty list yields no flags.
func ParseSessionFlags(list string) (SessionFlags, error) {
	var flags SessionFlags
	if strings.TrimSpace(list) == "" {
		return 0, nil
	}
	for _, part := range strings.Split(list, ",") {
		f, err := ParseSessionFlag(strings.TrimSpace(part))
		if err != nil {
			return 0, err
		}
		flags |= f
	}
	return flags, nil
}
