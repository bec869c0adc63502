package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) repository.ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
	SELECT user_id, role, display_name, phone, address, city, details, created_at, updated_at
	FROM profiles
	WHERE user_id = $1
	`
	return scanProfile(r.pool.QueryRow(ctx, query, userID))
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.UserID == "" || !profile.Role.IsProvider() {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO profiles (user_id, role, display_name, phone, address, city, details, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	ON CONFLICT (user_id) DO UPDATE
	SET display_name = EXCLUDED.display_name,
		phone = EXCLUDED.phone,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		details = EXCLUDED.details,
		updated_at = NOW()
	RETURNING created_at, updated_at
	`

	var details []byte
	if len(profile.Details) > 0 {
		details = profile.Details
	}

	if err := r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.Role.String(),
		profile.DisplayName,
		profile.Phone,
		profile.Address,
		profile.City,
		details,
		nullTime(profile.CreatedAt),
	).Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) ListActive(ctx context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	const query = `
	SELECT p.user_id, p.role, p.display_name, p.phone, p.address, p.city, p.details, p.created_at, p.updated_at
	FROM profiles p
	JOIN users u ON u.id = p.user_id
	WHERE u.status = 'ACTIVE'
	  AND ($1 = '' OR p.role = $1)
	  AND ($2 = '' OR lower(p.city) = lower($2))
	ORDER BY p.display_name
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, roleColumn(filter.Role), filter.City, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

func scanProfile(row scanner) (*domain.Profile, error) {
	var (
		profile domain.Profile
		role    string
		details []byte
	)
	if err := row.Scan(
		&profile.UserID,
		&role,
		&profile.DisplayName,
		&profile.Phone,
		&profile.Address,
		&profile.City,
		&details,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	var err error
	if profile.Role, err = parseRoleColumn(role); err != nil {
		return nil, fmt.Errorf("profile %s: %w", profile.UserID, err)
	}
	if len(details) > 0 {
		profile.Details = append([]byte(nil), details...)
	}
	return &profile, nil
}
