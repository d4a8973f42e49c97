package domain

import (
	"errors"
	"strings"
)

// Role is the authorization role carried in a session's signed claims.
type Role string

const (
	RoleVolunteer  Role = "volunteer"
	RoleGuard      Role = "guard"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Spanish names used by the first mobile release. Sessions minted before
// the rename still carry them.
var roleAliases = map[string]Role{
	"voluntario": RoleVolunteer,
	"guardia":    RoleGuard,
}

// ParseRole accepts a canonical role name or a legacy alias.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch r := Role(s); r {
	case RoleVolunteer, RoleGuard, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	if r, ok := roleAliases[s]; ok {
		return r, nil
	}
	return "", ErrUnknownRole
}

// IsAdmin reports whether the role may manage roles and read all history.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) String() string { return string(r) }

// RoleNames lists the canonical names, for flags and error messages.
func RoleNames() []string {
	return []string{string(RoleVolunteer), string(RoleGuard), string(RoleAdmin), string(RoleSuperAdmin)}
}
