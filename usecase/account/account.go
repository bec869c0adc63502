package account

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

const defaultListLimit = 50

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// UpdateInput carries the fields a caller may change on their own account.
type UpdateInput struct {
	FullName string
	Phone    string
}

func (uc *UseCase) Get(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) Update(ctx context.Context, userID string, in UpdateInput) (*domain.User, error) {
	user, err := uc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "full name is required")
	}
	user.FullName = name
	user.Phone = strings.TrimSpace(in.Phone)
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns accounts for administrators. Limit is clamped to a sane page.
func (uc *UseCase) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	filter.Limit = repository.ClampLimit(filter.Limit, defaultListLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.users.List(ctx, filter)
}

// SetStatus changes the status of another account. Suspending an account
// revokes its sessions.
func (uc *UseCase) SetStatus(ctx context.Context, actor *domain.Principal, targetID string, status domain.AccountStatus) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown account status")
	}
	if actor.ID == targetID {
		return nil, domain.NewError(domain.ErrCodeForbidden, "administrators cannot change their own status")
	}

	user, err := uc.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return user, nil
	}
	if err := uc.users.SetStatus(ctx, targetID, status); err != nil {
		return nil, err
	}
	previous := user.Status
	user.Status = status

	if status == domain.StatusSuspended && uc.sessions != nil {
		if err := uc.sessions.DeleteByUser(ctx, targetID); err != nil {
			uc.logger.Warn("failed to revoke sessions of suspended account",
				zap.String("user_id", targetID),
				zap.Error(err))
		}
	}
	uc.logger.Info("account status changed",
		zap.String("user_id", targetID),
		zap.String("actor_id", actor.ID),
		zap.Stringer("from", previous),
		zap.Stringer("to", status))
	return user, nil
}
