package access

import (
	"fmt"
	"sort"
)

// Table maps operation names to their declared policies. It is populated
// while routes are registered at startup and only read afterwards.
type Table struct {
	policies map[string]Policy
}

func NewTable() *Table {
	return &Table{policies: make(map[string]Policy)}
}

// Declare attaches policy to operation. Declaring the same operation twice is
// a wiring bug and panics, mirroring duplicate route registration.
func (t *Table) Declare(operation string, policy Policy) {
	if operation == "" {
		panic("access: empty operation name")
	}
	if _, exists := t.policies[operation]; exists {
		panic(fmt.Sprintf("access: operation %q declared twice", operation))
	}
	t.policies[operation] = policy
}

// Lookup returns the declared policy and whether one was declared.
func (t *Table) Lookup(operation string) (Policy, bool) {
	if t == nil {
		return Policy{}, false
	}
	p, ok := t.policies[operation]
	return p, ok
}

// PolicyFor returns the declared policy, falling back to DefaultPolicy for
// undeclared operations.
func (t *Table) PolicyFor(operation string) Policy {
	if p, ok := t.Lookup(operation); ok {
		return p
	}
	return DefaultPolicy()
}

// Operations lists declared operation names in sorted order.
func (t *Table) Operations() []string {
	if t == nil {
		return nil
	}
	ops := make([]string, 0, len(t.policies))
	for op := range t.policies {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
