package services

import (
	"context"
	"encoding/json"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/infrastructure/buffer"
	"github.com/carelink/backend/usecase"
)

// BufferBridge adapts the processor to the use case OperationBuffer port.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferProfile(ctx context.Context, profile *domain.Profile) error {
	if profile == nil {
		return domain.ErrInvalidPayload
	}
	return b.enqueue(ctx, buffer.Item{
		UserID:    profile.UserID,
		Entity:    buffer.EntityProfile,
		Operation: buffer.OperationUpdate,
		Subject:   profile.UserID,
		Priority:  3,
	}, profile)
}

func (b *BufferBridge) BufferPost(ctx context.Context, operation string, post *domain.Post) error {
	if post == nil {
		return domain.ErrInvalidPayload
	}
	return b.enqueue(ctx, buffer.Item{
		UserID:    post.AuthorID,
		Entity:    buffer.EntityPost,
		Operation: operation,
		Subject:   post.ID,
		Priority:  4,
	}, post)
}

func (b *BufferBridge) BufferDonation(ctx context.Context, donation *domain.Donation) error {
	if donation == nil {
		return domain.ErrInvalidPayload
	}
	return b.enqueue(ctx, buffer.Item{
		ID:        donation.ID,
		UserID:    donation.DonorID,
		Entity:    buffer.EntityDonation,
		Operation: buffer.OperationCreate,
		Subject:   donation.ID,
		Priority:  1,
	}, donation)
}

func (b *BufferBridge) enqueue(ctx context.Context, item buffer.Item, payload any) error {
	if b == nil || b.processor == nil {
		return domain.ErrInvalidPayload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	item.Data = data
	return b.processor.BufferOperation(ctx, item)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
