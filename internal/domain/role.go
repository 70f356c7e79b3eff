package domain

import "strings"

// Role is the closed set of roles a caller can hold.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleResearcher Role = "RESEARCHER"
	// RoleUnknown marks a role claim that matched none of the known roles.
	RoleUnknown Role = "UNKNOWN"
)

// ParseRole maps a claim value onto a known role. Matching is case-insensitive;
// anything else yields RoleUnknown.
func ParseRole(value string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleResearcher:
		return RoleResearcher
	default:
		return RoleUnknown
	}
}

// Known reports whether r is one of the issuable roles.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleResearcher:
		return true
	default:
		return false
	}
}

// Satisfies reports whether r is allowed where required is demanded.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleAdmin:
		return r == RoleAdmin
	case RoleResearcher:
		return r == RoleResearcher
	default:
		return false
	}
}
