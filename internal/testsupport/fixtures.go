package testsupport

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/backend/domain"
)

// NewUser builds an account fixture with a fresh id.
func NewUser(role domain.Role, status domain.AccountStatus) domain.User {
	id := uuid.NewString()
	now := time.Now()
	return domain.User{
		ID:        id,
		Email:     id[:8] + "@example.org",
		FullName:  role.String() + " " + id[:4],
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PrincipalOf is a shorthand for user.Principal().
func PrincipalOf(user domain.User) *domain.Principal {
	return user.Principal()
}
