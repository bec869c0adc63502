package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

const uniqueViolation = "23505"

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func clampLimit(limit int) int {
	return repository.ClampLimit(limit, repository.MaxPageSize)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func roleColumn(r domain.Role) string {
	if !r.Valid() {
		return ""
	}
	return r.String()
}

func statusColumn(s domain.AccountStatus) string {
	if !s.Valid() {
		return ""
	}
	return s.String()
}

func parseRoleColumn(raw string) (domain.Role, error) {
	if raw == "" {
		return 0, nil
	}
	return domain.ParseRole(raw)
}
