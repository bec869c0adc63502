package repository

// MaxPageSize caps every list query, from the HTTP layer down to SQL.
const MaxPageSize = 100

// ClampLimit substitutes fallback for non-positive limits and caps the result
// at MaxPageSize.
func ClampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
