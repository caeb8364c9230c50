package domain

import (
	"encoding/json"
	"strings"
)

// Role is the portal role carried by the first entry of the credential's
// roles claim.
type Role string

const (
	RoleNone       Role = ""
	RoleApplicant  Role = "APPLICANT"
	RoleHR         Role = "HR"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// rolePrefix is how the upstream API spells roles inside the token.
const rolePrefix = "ROLE_"

// ParseRole accepts both the wire form ("ROLE_HR") and the bare form ("HR").
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), rolePrefix))
	switch r {
	case RoleApplicant, RoleHR, RoleSuperAdmin:
		return r, true
	}
	return RoleNone, false
}

// Claim returns the role as the upstream API encodes it.
func (r Role) Claim() string {
	if r == RoleNone {
		return ""
	}
	return rolePrefix + string(r)
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// MarshalJSON renders RoleNone as null.
func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, _ := ParseRole(s)
	*r = parsed
	return nil
}
