package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles known to the platform.
// The zero value is not a valid role.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
	RoleDoctor
	RoleHealthAuthorization
	RoleHospital
	RoleBloodBank
	RolePharmacy
	RoleAmbulance
)

var roleNames = [...]string{
	RoleUser:                "USER",
	RoleAdmin:               "ADMIN",
	RoleDoctor:              "DOCTOR",
	RoleHealthAuthorization: "HEALTH_AUTHORIZATION",
	RoleHospital:            "HOSPITAL",
	RoleBloodBank:           "BLOOD_BANK",
	RolePharmacy:            "PHARMACY",
	RoleAmbulance:           "AMBULANCE",
}

// Roles lists every known role in declaration order.
func Roles() []Role {
	return []Role{
		RoleUser,
		RoleAdmin,
		RoleDoctor,
		RoleHealthAuthorization,
		RoleHospital,
		RoleBloodBank,
		RolePharmacy,
		RoleAmbulance,
	}
}

// ProviderRoles lists the roles that own a role-specific profile.
func ProviderRoles() []Role {
	return []Role{
		RoleDoctor,
		RoleHealthAuthorization,
		RoleHospital,
		RoleBloodBank,
		RolePharmacy,
		RoleAmbulance,
	}
}

func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAmbulance
}

// IsProvider reports whether accounts with this role maintain a profile.
func (r Role) IsProvider() bool {
	return r.Valid() && r != RoleUser && r != RoleAdmin
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole converts a role name (case-insensitive) to a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Roles() {
		if roleNames[r] == name {
			return r, nil
		}
	}
	return 0, NewError(ErrCodeInvalid, fmt.Sprintf("unknown role %q", s))
}

// RoleSet is a bitmask over Role values.
type RoleSet uint16

// NewRoleSet builds a set from the given roles, ignoring invalid values.
func NewRoleSet(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		if r.Valid() {
			set |= 1 << r
		}
	}
	return set
}

// AllRoles is the set of every known role.
func AllRoles() RoleSet {
	return NewRoleSet(Roles()...)
}

func (s RoleSet) Has(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

func (s RoleSet) Empty() bool {
	return s&AllRoles() == 0
}

// Members returns the roles in the set in declaration order.
func (s RoleSet) Members() []Role {
	var out []Role
	for _, r := range Roles() {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	members := s.Members()
	names := make([]string, 0, len(members))
	for _, r := range members {
		names = append(names, r.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
