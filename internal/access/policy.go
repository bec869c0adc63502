package access

import (
	"fmt"

	"github.com/carelink/backend/domain"
)

// Policy is the access declaration attached to a protected operation.
// An empty role set admits every known role.
type Policy struct {
	Roles              domain.RoleSet
	CheckAccountStatus bool
}

// DefaultPolicy admits every known role and skips the account status check.
func DefaultPolicy() Policy {
	return Policy{Roles: domain.AllRoles()}
}

// Allow declares a policy restricted to roles. With no roles it is the default policy.
func Allow(roles ...domain.Role) Policy {
	return Policy{Roles: domain.NewRoleSet(roles...)}
}

// Active returns a copy of p that also requires an ACTIVE account.
func (p Policy) Active() Policy {
	p.CheckAccountStatus = true
	return p
}

// EffectiveRoles resolves the empty set to every known role.
func (p Policy) EffectiveRoles() domain.RoleSet {
	if p.Roles.Empty() {
		return domain.AllRoles()
	}
	return p.Roles
}

func (p Policy) Permits(r domain.Role) bool {
	return p.EffectiveRoles().Has(r)
}

func (p Policy) String() string {
	return fmt.Sprintf("roles=%s check_status=%t", p.EffectiveRoles(), p.CheckAccountStatus)
}
