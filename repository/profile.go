package repository

import (
	"context"

	"github.com/carelink/backend/domain"
)

// ProfileFilter selects directory entries. Only ACTIVE accounts are listed.
type ProfileFilter struct {
	Role   domain.Role
	City   string
	Limit  int
	Offset int
}

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
	ListActive(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error)
}
