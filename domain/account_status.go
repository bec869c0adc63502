package domain

import (
	"fmt"
	"strings"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus uint8

const (
	StatusActive AccountStatus = iota + 1
	StatusSuspended
	StatusPending
)

var statusNames = [...]string{
	StatusActive:    "ACTIVE",
	StatusSuspended: "SUSPENDED",
	StatusPending:   "PENDING",
}

func (s AccountStatus) Valid() bool {
	return s >= StatusActive && s <= StatusPending
}

func (s AccountStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("AccountStatus(%d)", uint8(s))
	}
	return statusNames[s]
}

func (s AccountStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid account status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *AccountStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseAccountStatus converts a status name (case-insensitive) to an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for st := StatusActive; st <= StatusPending; st++ {
		if statusNames[st] == name {
			return st, nil
		}
	}
	return 0, NewError(ErrCodeInvalid, fmt.Sprintf("unknown account status %q", s))
}

// InitialStatus is the status a freshly registered account starts in.
// Provider accounts wait for an administrator to activate them.
func InitialStatus(r Role) AccountStatus {
	if r.IsProvider() {
		return StatusPending
	}
	return StatusActive
}
