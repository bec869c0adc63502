package blog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/testsupport"
)

type postBuffer struct {
	ops []string
}

func (b *postBuffer) BufferProfile(context.Context, *domain.Profile) error { return nil }

func (b *postBuffer) BufferPost(_ context.Context, operation string, _ *domain.Post) error {
	b.ops = append(b.ops, operation)
	return nil
}

func (b *postBuffer) BufferDonation(context.Context, *domain.Donation) error { return nil }

func TestCreateAndList(t *testing.T) {
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	uc := New(testsupport.NewPosts(), nil, nil)
	ctx := context.Background()

	first, err := uc.Create(ctx, doctor.Principal(), PostInput{
		Title: " Hydration in summer ",
		Body:  "Drink water.",
		Tags:  []string{"Health", "health", " ", "summer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hydration in summer", first.Title)
	assert.Equal(t, []string{"health", "summer"}, first.Tags)
	assert.Equal(t, doctor.ID, first.AuthorID)

	uc.now = func() time.Time { return first.CreatedAt.Add(time.Minute) }
	second, err := uc.Create(ctx, doctor.Principal(), PostInput{Title: "Blood drives", Body: "Donate."})
	require.NoError(t, err)

	all, err := uc.List(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	tagged, err := uc.List(ctx, ListInput{Tag: "SUMMER"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, first.ID, tagged[0].ID)

	got, err := uc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, got.Title)
}

func TestCreateValidation(t *testing.T) {
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	uc := New(testsupport.NewPosts(), nil, nil)
	ctx := context.Background()

	_, err := uc.Create(ctx, doctor.Principal(), PostInput{Title: "", Body: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Create(ctx, doctor.Principal(), PostInput{Title: strings.Repeat("t", 201), Body: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	tags := make([]string, 11)
	for i := range tags {
		tags[i] = strings.Repeat("a", i+1)
	}
	_, err = uc.Create(ctx, doctor.Principal(), PostInput{Title: "t", Body: "b", Tags: tags})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Create(ctx, nil, PostInput{Title: "t", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateOnlyByAuthor(t *testing.T) {
	author := testsupport.NewUser(domain.RoleHospital, domain.StatusActive)
	admin := testsupport.NewUser(domain.RoleAdmin, domain.StatusActive)
	uc := New(testsupport.NewPosts(), nil, nil)
	ctx := context.Background()

	post, err := uc.Create(ctx, author.Principal(), PostInput{Title: "Open beds", Body: "12 beds."})
	require.NoError(t, err)

	_, err = uc.Update(ctx, admin.Principal(), post.ID, PostInput{Title: "x", Body: "y"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	updated, err := uc.Update(ctx, author.Principal(), post.ID, PostInput{Title: "Open beds", Body: "8 beds."})
	require.NoError(t, err)
	assert.Equal(t, "8 beds.", updated.Body)

	_, err = uc.Update(ctx, author.Principal(), "missing", PostInput{Title: "x", Body: "y"})
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestDeleteByAuthorOrAdmin(t *testing.T) {
	author := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	other := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	admin := testsupport.NewUser(domain.RoleAdmin, domain.StatusActive)
	uc := New(testsupport.NewPosts(), nil, nil)
	ctx := context.Background()

	first, err := uc.Create(ctx, author.Principal(), PostInput{Title: "a", Body: "b"})
	require.NoError(t, err)
	second, err := uc.Create(ctx, author.Principal(), PostInput{Title: "c", Body: "d"})
	require.NoError(t, err)

	err = uc.Delete(ctx, other.Principal(), first.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	require.NoError(t, uc.Delete(ctx, author.Principal(), first.ID))
	require.NoError(t, uc.Delete(ctx, admin.Principal(), second.ID))

	_, err = uc.Get(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestWritesBufferOnStoreFailure(t *testing.T) {
	author := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	existing := domain.Post{ID: "p-1", AuthorID: author.ID, Title: "t", Body: "b"}
	posts := testsupport.NewPosts(existing)
	buf := &postBuffer{}
	uc := New(posts, buf, nil)
	ctx := context.Background()

	posts.Err = errors.New("connection reset")
	_, err := uc.Create(ctx, author.Principal(), PostInput{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"create"}, buf.ops)

	// Reads fail too, so update and delete surface the error unbuffered.
	_, err = uc.Update(ctx, author.Principal(), "p-1", PostInput{Title: "t", Body: "b"})
	assert.EqualError(t, err, "connection reset")
	assert.Len(t, buf.ops, 1)
}
