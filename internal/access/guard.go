// Package access decides whether an authenticated caller may invoke a
// protected operation.
package access

import (
	"github.com/carelink/backend/domain"
)

// Reason explains a denied Decision.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonForbiddenRole
	ReasonAccountNotActive
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUnauthenticated:
		return "UNAUTHENTICATED"
	case ReasonForbiddenRole:
		return "FORBIDDEN_ROLE"
	case ReasonAccountNotActive:
		return "ACCOUNT_NOT_ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Decision is the outcome of a single authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Err converts a denial into the domain error the transport layer renders.
// It returns nil for an allowed decision.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return domain.NewError(domain.ErrCodeUnauthorized, "authentication required")
	case d.Reason == ReasonAccountNotActive:
		return domain.NewError(domain.ErrCodeForbidden, "account is not active")
	default:
		return domain.NewError(domain.ErrCodeForbidden, "role not permitted")
	}
}

// Authorize evaluates policy for principal. A nil principal means no
// authenticated session could be resolved. The checks run in a fixed order
// and the first failure determines the reason.
func Authorize(principal *domain.Principal, policy Policy) Decision {
	if principal == nil {
		return deny(ReasonUnauthenticated)
	}
	if !policy.Permits(principal.Role) {
		return deny(ReasonForbiddenRole)
	}
	if policy.CheckAccountStatus && principal.Status != domain.StatusActive {
		return deny(ReasonAccountNotActive)
	}
	return allow()
}
