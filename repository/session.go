package repository

import (
	"context"
	"time"

	"github.com/carelink/backend/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttl time.Duration) error
	// DeleteByUser revokes every session belonging to userID.
	DeleteByUser(ctx context.Context, userID string) error
}
