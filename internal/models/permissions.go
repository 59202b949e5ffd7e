package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Permissions is a capability bitmask attached to a user or frozen into a session.
// Bit positions are persisted and must never be renumbered.
type Permissions uint32

const (
	PermViewVideo Permissions = 1 << iota
	PermReadCameraConfigs
	PermUpdateSignals
	PermAdminUsers
)

var permissionNames = []struct {
	bit  Permissions
	name string
}{
	{PermViewVideo, "viewVideo"},
	{PermReadCameraConfigs, "readCameraConfigs"},
	{PermUpdateSignals, "updateSignals"},
	{PermAdminUsers, "adminUsers"},
}

const allPermissions = PermViewVideo | PermReadCameraConfigs | PermUpdateSignals | PermAdminUsers

func (p Permissions) Has(bit Permissions) bool {
	return p&bit == bit
}

func (p Permissions) With(bits Permissions) Permissions {
	return p | bits
}

func (p Permissions) Without(bits Permissions) Permissions {
	return p &^ bits
}

func (p Permissions) AdminUsers() bool {
	return p.Has(PermAdminUsers)
}

// Valid reports whether only known bits are set.
func (p Permissions) Valid() bool {
	return p&^allPermissions == 0
}

func (p Permissions) String() string {
	var names []string
	for _, pn := range permissionNames {
		if p.Has(pn.bit) {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// MarshalJSON renders every known permission as a boolean member.
func (p Permissions) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(permissionNames))
	for _, pn := range permissionNames {
		m[pn.name] = p.Has(pn.bit)
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts an object of booleans. Unknown names are rejected so a client
// never believes it granted a capability the server does not know about.
func (p *Permissions) UnmarshalJSON(b []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	var out Permissions
	var unknown []string
	for name, set := range m {
		bit, ok := permissionByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if set {
			out |= bit
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("permissions: unknown permission(s) %s", strings.Join(unknown, ", "))
	}
	*p = out
	return nil
}

func permissionByName(name string) (Permissions, bool) {
	for _, pn := range permissionNames {
		if pn.name == name {
			return pn.bit, true
		}
	}
	return 0, false
}

// ParsePermissionNames builds a set from names like "viewVideo".
func ParsePermissionNames(names []string) (Permissions, error) {
	var out Permissions
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		bit, ok := permissionByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", name)
		}
		out |= bit
	}
	return out, nil
}
