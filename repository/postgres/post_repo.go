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

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository returns a Postgres-backed implementation of PostRepository.
func NewPostRepository(pool *pgxpool.Pool) repository.PostRepository {
	return &postRepository{pool: pool}
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPostNotFound
	}
	const query = `
	SELECT id, author_id, title, body, tags, created_at, updated_at
	FROM posts
	WHERE id = $1
	`
	return scanPost(r.pool.QueryRow(ctx, query, id))
}

func (r *postRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	const query = `
	SELECT id, author_id, title, body, tags, created_at, updated_at
	FROM posts
	WHERE ($1::uuid IS NULL OR author_id = $1::uuid)
	  AND ($2 = '' OR $2 = ANY(tags))
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, nullString(filter.AuthorID), filter.Tag, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	if post == nil {
		return domain.ErrInvalidPayload
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO posts (id, author_id, title, body, tags, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	ON CONFLICT (id) DO NOTHING
	RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Body,
		tagsColumn(post.Tags),
		nullTime(post.CreatedAt),
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		// a replayed create that already landed
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	if post == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE posts
	SET title = $2,
		body = $3,
		tags = $4,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query, post.ID, post.Title, post.Body, tagsColumn(post.Tags)).Scan(&post.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPostNotFound
		}
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func scanPost(row scanner) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Body,
		&post.Tags,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func tagsColumn(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
