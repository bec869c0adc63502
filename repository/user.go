package repository

import (
	"context"

	"github.com/carelink/backend/domain"
)

type UserFilter struct {
	Role   domain.Role
	Status domain.AccountStatus
	Limit  int
	Offset int
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	SetStatus(ctx context.Context, id string, status domain.AccountStatus) error
}
