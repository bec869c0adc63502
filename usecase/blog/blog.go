package blog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
	"github.com/carelink/backend/usecase"
)

const (
	maxTitleLength   = 200
	maxTags          = 10
	defaultPageLimit = 20
)

type UseCase struct {
	posts  repository.PostRepository
	buffer usecase.OperationBuffer
	logger *zap.Logger
	now    func() time.Time
}

func New(posts repository.PostRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		posts:  posts,
		buffer: buffer,
		logger: logger,
		now:    time.Now,
	}
}

type PostInput struct {
	Title string
	Body  string
	Tags  []string
}

type ListInput struct {
	AuthorID string
	Tag      string
	Limit    int
	Offset   int
}

func (uc *UseCase) List(ctx context.Context, in ListInput) ([]domain.Post, error) {
	in.Limit = repository.ClampLimit(in.Limit, defaultPageLimit)
	return uc.posts.List(ctx, repository.PostFilter{
		AuthorID: strings.TrimSpace(in.AuthorID),
		Tag:      normalizeTag(in.Tag),
		Limit:    in.Limit,
		Offset:   max(in.Offset, 0),
	})
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Post, error) {
	return uc.posts.GetByID(ctx, id)
}

func (uc *UseCase) Create(ctx context.Context, author *domain.Principal, in PostInput) (*domain.Post, error) {
	if author == nil {
		return nil, domain.ErrUnauthorized
	}
	title, body, tags, err := sanitize(in)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	post := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  author.ID,
		Title:     title,
		Body:      body,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.write(ctx, usecase.OperationCreate, post, uc.posts.Create); err != nil {
		return nil, err
	}
	uc.logger.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", post.AuthorID))
	return post, nil
}

// Update replaces title, body and tags. Only the author may edit a post.
func (uc *UseCase) Update(ctx context.Context, editor *domain.Principal, id string, in PostInput) (*domain.Post, error) {
	if editor == nil {
		return nil, domain.ErrUnauthorized
	}
	post, err := uc.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(editor.ID) {
		return nil, domain.NewError(domain.ErrCodeForbidden, "only the author may edit this post")
	}
	title, body, tags, err := sanitize(in)
	if err != nil {
		return nil, err
	}
	post.Title, post.Body, post.Tags = title, body, tags
	post.UpdatedAt = uc.now()
	if err := uc.write(ctx, usecase.OperationUpdate, post, uc.posts.Update); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post. The author or an administrator may delete it.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	post, err := uc.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !post.IsAuthoredBy(actor.ID) && actor.Role != domain.RoleAdmin {
		return domain.NewError(domain.ErrCodeForbidden, "only the author or an administrator may delete this post")
	}
	remove := func(ctx context.Context, p *domain.Post) error { return uc.posts.Delete(ctx, p.ID) }
	if err := uc.write(ctx, usecase.OperationDelete, post, remove); err != nil {
		return err
	}
	uc.logger.Info("post deleted", zap.String("post_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (uc *UseCase) write(ctx context.Context, operation string, post *domain.Post, fn func(context.Context, *domain.Post) error) error {
	err := fn(ctx, post)
	if err == nil {
		return nil
	}
	if uc.buffer == nil || !usecase.Retryable(err) {
		return err
	}
	if bufErr := uc.buffer.BufferPost(ctx, operation, post); bufErr != nil {
		uc.logger.Error("failed to buffer post write", zap.String("operation", operation), zap.Error(bufErr))
		return err
	}
	uc.logger.Warn("post write buffered due to repository error",
		zap.String("operation", operation),
		zap.String("post_id", post.ID),
		zap.Error(err))
	return nil
}

func sanitize(in PostInput) (string, string, []string, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" || body == "" {
		return "", "", nil, domain.NewError(domain.ErrCodeInvalid, "title and body are required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", "", nil, domain.NewError(domain.ErrCodeInvalid, "title is too long")
	}

	seen := make(map[string]struct{}, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, raw := range in.Tags {
		tag := normalizeTag(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return "", "", nil, domain.NewError(domain.ErrCodeInvalid, "too many tags")
	}
	return title, body, tags, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
