package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a member's rank inside an organization.
type Role int

const (
	RoleViewer Role = iota + 1
	RoleEditor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleViewer: "VIEWER",
	RoleEditor: "EDITOR",
	RoleAdmin:  "ADMIN",
}

// Rank is the ordinal used for authorization comparisons.
func (r Role) Rank() int { return int(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == up {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
