package repository

import (
	"context"

	"github.com/carelink/backend/domain"
)

type PostFilter struct {
	AuthorID string
	Tag      string
	Limit    int
	Offset   int
}

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, filter PostFilter) ([]domain.Post, error)
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
}
