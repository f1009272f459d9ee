package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubAdmin Role = "subadmin"
	RoleUser     Role = "user"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleSubAdmin, RoleUser}

func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "admin":
		return RoleAdmin, nil
	case "subadmin", "sub-admin", "sub_admin":
		return RoleSubAdmin, nil
	case "user", "worker":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("%w %q (expected admin, subadmin or user)", ErrUnknownRole, raw)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSubAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// LoginPath is the login entry point of the role's view tree.
func (r Role) LoginPath() string {
	return "/" + string(r) + "/login"
}

// HomePath is the root of the role's protected view tree.
func (r Role) HomePath() string {
	return "/" + string(r) + "/"
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSubAdmin:
		return "Sub-Admin"
	case RoleUser:
		return "User"
	default:
		return string(r)
	}
}
