package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

const donationColumns = `id, donor_id, recorded_by, blood_group, units, donated_at, notes, created_at`

type donationRepository struct {
	pool *pgxpool.Pool
}

// NewDonationRepository returns a Postgres-backed DonationRepository.
func NewDonationRepository(pool *pgxpool.Pool) repository.DonationRepository {
	return &donationRepository{pool: pool}
}

func (r *donationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	if donation == nil {
		return domain.ErrInvalidPayload
	}
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO donations (id, donor_id, recorded_by, blood_group, units, donated_at, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
	RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		donation.ID,
		donation.DonorID,
		donation.RecordedBy,
		string(donation.BloodGroup),
		donation.Units,
		donation.DonatedAt,
		donation.Notes,
	).Scan(&donation.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

func (r *donationRepository) List(ctx context.Context, filter repository.DonationFilter) ([]domain.Donation, error) {
	const query = `
	SELECT ` + donationColumns + `
	FROM donations
	WHERE ($1::uuid IS NULL OR donor_id = $1::uuid)
	  AND ($2::uuid IS NULL OR recorded_by = $2::uuid)
	  AND ($3 = '' OR blood_group = $3)
	ORDER BY donated_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.DonorID),
		nullString(filter.RecordedBy),
		string(filter.BloodGroup),
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *donation)
	}
	return donations, rows.Err()
}

func (r *donationRepository) LatestForDonor(ctx context.Context, donorID string) (*domain.Donation, error) {
	const query = `
	SELECT ` + donationColumns + `
	FROM donations
	WHERE donor_id = $1
	ORDER BY donated_at DESC
	LIMIT 1
	`
	return scanDonation(r.pool.QueryRow(ctx, query, donorID))
}

func scanDonation(row scanner) (*domain.Donation, error) {
	var (
		donation domain.Donation
		group    string
	)
	if err := row.Scan(
		&donation.ID,
		&donation.DonorID,
		&donation.RecordedBy,
		&group,
		&donation.Units,
		&donation.DonatedAt,
		&donation.Notes,
		&donation.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDonationNotFound
		}
		return nil, err
	}
	donation.BloodGroup = domain.BloodGroup(group)
	return &donation, nil
}
