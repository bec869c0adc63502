package repository

import (
	"context"

	"github.com/carelink/backend/domain"
)

type DonationFilter struct {
	DonorID    string
	RecordedBy string
	BloodGroup domain.BloodGroup
	Limit      int
	Offset     int
}

type DonationRepository interface {
	Create(ctx context.Context, donation *domain.Donation) error
	List(ctx context.Context, filter DonationFilter) ([]domain.Donation, error)
	// LatestForDonor returns domain.ErrDonationNotFound when the donor has no history.
	LatestForDonor(ctx context.Context, donorID string) (*domain.Donation, error)
}
