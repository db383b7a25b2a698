package core

import "strings"

// RoleName is a named capability group. The built-in names are listed below;
// admins may define additional custom roles on the backend.
type RoleName string

const (
	RoleVolunteer    RoleName = "volunteer"
	RoleOrganization RoleName = "organization"
	RoleAdmin        RoleName = "admin"
)

// NormalizeRole trims and lower-cases a raw role name.
func NormalizeRole(raw string) RoleName {
	return RoleName(strings.ToLower(strings.TrimSpace(raw)))
}

// RoleSet is an ordered, duplicate-free set of roles.
// The first element is the primary role used for routing.
type RoleSet []RoleName

// ParseRoles builds a RoleSet from the raw names found on an identity payload.
// Empty entries are dropped and the first occurrence of each name wins. When
// no usable name is left the singular fallback is used instead.
func ParseRoles(fallback string, names ...string) RoleSet {
	set := make(RoleSet, 0, len(names))
	for _, n := range names {
		role := NormalizeRole(n)
		if role == "" || set.Has(role) {
			continue
		}
		set = append(set, role)
	}
	if len(set) == 0 {
		if role := NormalizeRole(fallback); role != "" {
			set = append(set, role)
		}
	}
	return set
}

// Roles is a convenience constructor for literal role sets.
func Roles(names ...RoleName) RoleSet {
	raw := make([]string, len(names))
	for i, n := range names {
		raw[i] = string(n)
	}
	return ParseRoles("", raw...)
}

func (s RoleSet) Has(role RoleName) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Intersects reports whether s and other share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	for _, r := range other {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Primary returns the routing role, or "" for an empty set.
func (s RoleSet) Primary() RoleName {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}
