package access

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
)

func principal(role domain.Role, status domain.AccountStatus) *domain.Principal {
	return &domain.Principal{ID: "u-1", Role: role, Status: status}
}

// every subset of the eight roles, including the empty (default) set
func allPolicies() []Policy {
	roles := domain.Roles()
	var out []Policy
	for mask := 0; mask < 1<<len(roles); mask++ {
		var members []domain.Role
		for i, r := range roles {
			if mask&(1<<i) != 0 {
				members = append(members, r)
			}
		}
		out = append(out, Allow(members...), Allow(members...).Active())
	}
	return out
}

func TestAuthorizeActivePrincipalAllowedIffRolePermitted(t *testing.T) {
	for _, p := range allPolicies() {
		for _, r := range domain.Roles() {
			d := Authorize(principal(r, domain.StatusActive), p)
			assert.Equal(t, p.EffectiveRoles().Has(r), d.Allowed, "role=%s policy=%s", r, p)
			if !d.Allowed {
				assert.Equal(t, ReasonForbiddenRole, d.Reason)
			}
		}
	}
}

func TestAuthorizeInactiveAccount(t *testing.T) {
	for _, status := range []domain.AccountStatus{domain.StatusSuspended, domain.StatusPending, domain.AccountStatus(0)} {
		for _, r := range domain.Roles() {
			d := Authorize(principal(r, status), Allow(r).Active())
			assert.False(t, d.Allowed)
			assert.Equal(t, ReasonAccountNotActive, d.Reason, "role=%s status=%s", r, status)

			d = Authorize(principal(r, status), Allow(r))
			assert.True(t, d.Allowed, "status check disabled")
		}
	}
}

func TestAuthorizeWithoutPrincipal(t *testing.T) {
	for _, p := range allPolicies() {
		d := Authorize(nil, p)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonUnauthenticated, d.Reason)
	}
}

func TestDefaultPolicy(t *testing.T) {
	def := DefaultPolicy()
	assert.False(t, def.CheckAccountStatus)
	assert.Equal(t, domain.AllRoles(), def.EffectiveRoles())
	assert.Equal(t, def.EffectiveRoles(), Policy{}.EffectiveRoles())
	assert.Equal(t, def.EffectiveRoles(), Allow().EffectiveRoles())

	// bits outside the enumeration do not narrow the default
	assert.Equal(t, domain.AllRoles(), Policy{Roles: domain.RoleSet(1)}.EffectiveRoles())

	for _, r := range domain.Roles() {
		for _, st := range []domain.AccountStatus{domain.StatusActive, domain.StatusSuspended, domain.StatusPending} {
			assert.True(t, Authorize(principal(r, st), Policy{}).Allowed)
		}
	}
	assert.False(t, Authorize(principal(domain.Role(0), domain.StatusActive), Policy{}).Allowed)
}

func TestAuthorizeScenarios(t *testing.T) {
	cases := []struct {
		name      string
		principal *domain.Principal
		policy    Policy
		want      Decision
	}{
		{
			name:      "suspended pharmacy",
			principal: principal(domain.RolePharmacy, domain.StatusSuspended),
			policy:    Allow(domain.RolePharmacy).Active(),
			want:      Decision{Reason: ReasonAccountNotActive},
		},
		{
			name:      "user on admin operation",
			principal: principal(domain.RoleUser, domain.StatusActive),
			policy:    Allow(domain.RoleAdmin),
			want:      Decision{Reason: ReasonForbiddenRole},
		},
		{
			name:   "no principal",
			policy: Allow(domain.RoleAdmin),
			want:   Decision{Reason: ReasonUnauthenticated},
		},
		{
			name:      "active doctor",
			principal: principal(domain.RoleDoctor, domain.StatusActive),
			policy:    Allow(domain.RoleDoctor, domain.RoleAdmin).Active(),
			want:      Decision{Allowed: true},
		},
		{
			name:      "role checked before status",
			principal: principal(domain.RoleUser, domain.StatusSuspended),
			policy:    Allow(domain.RoleAdmin).Active(),
			want:      Decision{Reason: ReasonForbiddenRole},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.principal, tc.policy))
		})
	}
}

func TestAuthorizeIsPure(t *testing.T) {
	p := principal(domain.RoleHospital, domain.StatusPending)
	policy := Allow(domain.RoleHospital, domain.RoleBloodBank).Active()
	first := Authorize(p, policy)

	var wg sync.WaitGroup
	results := make([]Decision, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Authorize(p, policy)
		}(i)
	}
	wg.Wait()

	for _, d := range results {
		assert.Equal(t, first, d)
	}
	assert.Equal(t, domain.StatusPending, p.Status, "principal must not be mutated")
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())
	assert.True(t, domain.IsDomainError(Decision{Reason: ReasonUnauthenticated}.Err(), domain.ErrCodeUnauthorized))
	assert.True(t, domain.IsDomainError(Decision{Reason: ReasonForbiddenRole}.Err(), domain.ErrCodeForbidden))
	assert.True(t, domain.IsDomainError(Decision{Reason: ReasonAccountNotActive}.Err(), domain.ErrCodeForbidden))
	assert.Equal(t, "ACCOUNT_NOT_ACTIVE", ReasonAccountNotActive.String())
}

func TestTable(t *testing.T) {
	table := NewTable()
	table.Declare("posts.create", Allow(domain.RoleDoctor).Active())
	table.Declare("account.get", DefaultPolicy())

	p, ok := table.Lookup("posts.create")
	require.True(t, ok)
	assert.True(t, p.CheckAccountStatus)
	assert.Equal(t, domain.NewRoleSet(domain.RoleDoctor), p.EffectiveRoles())

	_, ok = table.Lookup("unknown")
	assert.False(t, ok)
	assert.Equal(t, DefaultPolicy(), table.PolicyFor("unknown"))
	assert.Equal(t, []string{"account.get", "posts.create"}, table.Operations())

	assert.Panics(t, func() { table.Declare("account.get", DefaultPolicy()) })
	assert.Panics(t, func() { table.Declare("", DefaultPolicy()) })

	var nilTable *Table
	assert.Equal(t, DefaultPolicy(), nilTable.PolicyFor("x"))
}
