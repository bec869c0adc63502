package usecase

import (
	"context"
	"errors"

	"github.com/carelink/backend/domain"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// OperationBuffer parks writes that failed against the primary store so they
// can be replayed later. Use cases stay unaware of the buffer's storage.
type OperationBuffer interface {
	BufferProfile(ctx context.Context, profile *domain.Profile) error
	BufferPost(ctx context.Context, operation string, post *domain.Post) error
	BufferDonation(ctx context.Context, donation *domain.Donation) error
}

// Retryable reports whether err is an infrastructure failure worth buffering,
// as opposed to a domain rule violation the caller must see.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var dErr *domain.Error
	return !errors.As(err, &dErr)
}
