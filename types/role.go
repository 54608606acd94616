package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the authorization level carried by a user and its tokens.
type Role int

// Supported roles. The zero value is RoleUser so an unset role never
// grants admin access.
const (
	RoleUser Role = iota
	RoleAdmin
)

// ParseRole converts a stored or decoded role name into a Role.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, nil
	case "user", "":
		return RoleUser, nil
	default:
		return RoleUser, fmt.Errorf("unknown role %q", value)
	}
}

// String returns the role name used in storage, tokens and responses.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// IsAdmin reports whether the role may access admin-only routes.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
