package profile

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
	"github.com/carelink/backend/usecase"
)

const defaultDirectoryLimit = 20

type UseCase struct {
	profiles repository.ProfileRepository
	buffer   usecase.OperationBuffer
	validate *validator.Validate
	logger   *zap.Logger
}

func New(profiles repository.ProfileRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		profiles: profiles,
		buffer:   buffer,
		validate: validator.New(),
		logger:   logger,
	}
}

// UpdateInput is the editable part of a profile. Details must match the
// caller's role.
type UpdateInput struct {
	DisplayName string
	Phone       string
	Address     string
	City        string
	Details     json.RawMessage
}

func (uc *UseCase) GetProfile(ctx context.Context, principal *domain.Principal) (*domain.Profile, error) {
	if err := requireProvider(principal); err != nil {
		return nil, err
	}
	return uc.profiles.Get(ctx, principal.ID)
}

// UpdateProfile validates and stores the caller's profile. When the store is
// unreachable the write is parked in the offline buffer and the accepted
// profile is returned.
func (uc *UseCase) UpdateProfile(ctx context.Context, principal *domain.Principal, in UpdateInput) (*domain.Profile, error) {
	if err := requireProvider(principal); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "display name is required")
	}

	details, err := domain.DecodeDetails(principal.Role, in.Details)
	if err != nil {
		return nil, err
	}
	if err := uc.validate.Struct(details); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid profile details", err)
	}
	normalized, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		UserID:      principal.ID,
		Role:        principal.Role,
		DisplayName: name,
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		Details:     normalized,
	}

	if err := uc.profiles.Upsert(ctx, profile); err != nil {
		if uc.buffer != nil && usecase.Retryable(err) {
			if bufErr := uc.buffer.BufferProfile(ctx, profile); bufErr != nil {
				uc.logger.Error("failed to buffer profile update", zap.Error(bufErr))
				return nil, err
			}
			uc.logger.Warn("profile update buffered due to repository error",
				zap.String("user_id", profile.UserID),
				zap.Error(err))
			return profile, nil
		}
		return nil, err
	}
	return profile, nil
}

// Directory lists the profiles of ACTIVE accounts holding role.
func (uc *UseCase) Directory(ctx context.Context, role domain.Role, city string, limit, offset int) ([]domain.Profile, error) {
	if !role.IsProvider() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "directory is available for provider roles only")
	}
	limit = repository.ClampLimit(limit, defaultDirectoryLimit)
	return uc.profiles.ListActive(ctx, repository.ProfileFilter{
		Role:   role,
		City:   strings.TrimSpace(city),
		Limit:  limit,
		Offset: max(offset, 0),
	})
}

func requireProvider(principal *domain.Principal) error {
	if principal == nil {
		return domain.ErrUnauthorized
	}
	if !principal.Role.IsProvider() {
		return domain.NewError(domain.ErrCodeForbidden, "only provider accounts have a profile")
	}
	return nil
}
