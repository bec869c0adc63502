package donation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
	"github.com/carelink/backend/usecase"
)

const (
	maxNotesLength   = 1000
	defaultPageLimit = 50
)

type UseCase struct {
	donations repository.DonationRepository
	users     repository.UserRepository
	buffer    usecase.OperationBuffer
	logger    *zap.Logger
	now       func() time.Time
}

func New(donations repository.DonationRepository, users repository.UserRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		donations: donations,
		users:     users,
		buffer:    buffer,
		logger:    logger,
		now:       time.Now,
	}
}

type RecordInput struct {
	DonorID    string
	BloodGroup domain.BloodGroup
	Units      int
	DonatedAt  time.Time
	Notes      string
}

// ListInput filters recorded history. Blood banks and hospitals only ever
// see what they recorded themselves.
type ListInput struct {
	RecordedBy string
	BloodGroup domain.BloodGroup
	Limit      int
	Offset     int
}

// Record stores a donation on behalf of a blood bank or hospital. The donor
// must be a USER account outside the deferral window of their last donation.
func (uc *UseCase) Record(ctx context.Context, recorder *domain.Principal, in RecordInput) (*domain.Donation, error) {
	if recorder == nil {
		return nil, domain.ErrUnauthorized
	}
	now := uc.now()
	if in.DonatedAt.IsZero() {
		in.DonatedAt = now
	}
	if err := validateRecord(in, now); err != nil {
		return nil, err
	}

	donor, err := uc.users.GetByID(ctx, in.DonorID)
	if err != nil {
		return nil, err
	}
	if donor.Role != domain.RoleUser {
		return nil, domain.NewError(domain.ErrCodeInvalid, "donor must be an individual user account")
	}

	latest, err := uc.donations.LatestForDonor(ctx, donor.ID)
	switch {
	case err == nil:
		if withinDeferral(latest.DonatedAt, in.DonatedAt) {
			return nil, domain.WrapError(domain.ErrCodeConflict, "donor is not yet eligible, next eligible "+latest.NextEligible().Format(time.DateOnly), domain.ErrDonationTooSoon)
		}
	case !errors.Is(err, domain.ErrDonationNotFound):
		return nil, err
	}

	donation := &domain.Donation{
		ID:         uuid.NewString(),
		DonorID:    donor.ID,
		RecordedBy: recorder.ID,
		BloodGroup: in.BloodGroup,
		Units:      in.Units,
		DonatedAt:  in.DonatedAt.UTC(),
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
	}
	if err := uc.donations.Create(ctx, donation); err != nil {
		if uc.buffer == nil || !usecase.Retryable(err) {
			return nil, err
		}
		if bufErr := uc.buffer.BufferDonation(ctx, donation); bufErr != nil {
			uc.logger.Error("failed to buffer donation", zap.Error(bufErr))
			return nil, err
		}
		uc.logger.Warn("donation buffered due to repository error",
			zap.String("donation_id", donation.ID),
			zap.Error(err))
		return donation, nil
	}
	uc.logger.Info("donation recorded",
		zap.String("donation_id", donation.ID),
		zap.String("donor_id", donation.DonorID),
		zap.String("recorded_by", donation.RecordedBy))
	return donation, nil
}

// Mine returns the caller's own donation history, newest first.
func (uc *UseCase) Mine(ctx context.Context, donor *domain.Principal, limit, offset int) ([]domain.Donation, error) {
	if donor == nil {
		return nil, domain.ErrUnauthorized
	}
	return uc.donations.List(ctx, repository.DonationFilter{
		DonorID: donor.ID,
		Limit:   clampLimit(limit),
		Offset:  max(offset, 0),
	})
}

func (uc *UseCase) List(ctx context.Context, viewer *domain.Principal, in ListInput) ([]domain.Donation, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}
	if in.BloodGroup != "" && !in.BloodGroup.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown blood group")
	}
	filter := repository.DonationFilter{
		RecordedBy: strings.TrimSpace(in.RecordedBy),
		BloodGroup: in.BloodGroup,
		Limit:      clampLimit(in.Limit),
		Offset:     max(in.Offset, 0),
	}
	if viewer.Role == domain.RoleBloodBank || viewer.Role == domain.RoleHospital {
		filter.RecordedBy = viewer.ID
	}
	return uc.donations.List(ctx, filter)
}

func validateRecord(in RecordInput, now time.Time) error {
	if strings.TrimSpace(in.DonorID) == "" {
		return domain.NewError(domain.ErrCodeInvalid, "donor is required")
	}
	if !in.BloodGroup.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown blood group")
	}
	if in.Units < domain.MinDonationUnits || in.Units > domain.MaxDonationUnits {
		return domain.NewError(domain.ErrCodeInvalid, "units must be between 1 and 4")
	}
	if in.DonatedAt.After(now) {
		return domain.NewError(domain.ErrCodeInvalid, "donation date cannot be in the future")
	}
	if len(in.Notes) > maxNotesLength {
		return domain.NewError(domain.ErrCodeInvalid, "notes are too long")
	}
	return nil
}

// withinDeferral reports whether two donation dates are closer than the
// deferral period, in either order.
func withinDeferral(previous, next time.Time) bool {
	gap := next.Sub(previous)
	if gap < 0 {
		gap = -gap
	}
	return gap < domain.DonationDeferral
}

func clampLimit(limit int) int {
	return repository.ClampLimit(limit, defaultPageLimit)
}
