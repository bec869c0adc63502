// Package testsupport provides in-memory repositories and fixtures for tests.
package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
	redisRepo "github.com/carelink/backend/repository/redis"
)

// Sessions returns a Redis session repository backed by miniredis.
func Sessions(t *testing.T) (repository.SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisRepo.NewSessionRepository(client, time.Hour), mr
}

// Users is an in-memory UserRepository. Set Err to make every call fail.
type Users struct {
	mu   sync.Mutex
	byID map[string]domain.User
	Err  error
}

func NewUsers(users ...domain.User) *Users {
	u := &Users{byID: make(map[string]domain.User)}
	for _, user := range users {
		u.byID[user.ID] = user
	}
	return u
}

func (u *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	for _, user := range u.byID {
		if user.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (u *Users) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	var out []domain.User
	for _, user := range u.byID {
		if filter.Role.Valid() && user.Role != filter.Role {
			continue
		}
		if filter.Status.Valid() && user.Status != filter.Status {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, filter.Limit, filter.Offset), nil
}

func (u *Users) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	for _, existing := range u.byID {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	u.byID[user.ID] = *user
	return nil
}

func (u *Users) Update(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	existing, ok := u.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	existing.FullName = user.FullName
	existing.Phone = user.Phone
	existing.UpdatedAt = time.Now()
	user.UpdatedAt = existing.UpdatedAt
	u.byID[user.ID] = existing
	return nil
}

func (u *Users) SetStatus(_ context.Context, id string, status domain.AccountStatus) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	existing, ok := u.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	existing.Status = status
	u.byID[id] = existing
	return nil
}

// Profiles is an in-memory ProfileRepository. Users is consulted by
// ListActive to honour account status.
type Profiles struct {
	mu     sync.Mutex
	byUser map[string]domain.Profile
	Users  *Users
	Err    error
}

func NewProfiles(users *Users) *Profiles {
	return &Profiles{byUser: make(map[string]domain.Profile), Users: users}
}

func (p *Profiles) Get(_ context.Context, userID string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	profile, ok := p.byUser[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}

func (p *Profiles) Upsert(_ context.Context, profile *domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	now := time.Now()
	if existing, ok := p.byUser[profile.UserID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	p.byUser[profile.UserID] = *profile
	return nil
}

func (p *Profiles) ListActive(ctx context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	var out []domain.Profile
	for _, profile := range p.byUser {
		if filter.Role.Valid() && profile.Role != filter.Role {
			continue
		}
		if filter.City != "" && !strings.EqualFold(profile.City, filter.City) {
			continue
		}
		if p.Users != nil {
			user, err := p.Users.GetByID(ctx, profile.UserID)
			if err != nil || !user.IsActive() {
				continue
			}
		}
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return page(out, filter.Limit, filter.Offset), nil
}

// Posts is an in-memory PostRepository.
type Posts struct {
	mu   sync.Mutex
	byID map[string]domain.Post
	Err  error
}

func NewPosts(posts ...domain.Post) *Posts {
	p := &Posts{byID: make(map[string]domain.Post)}
	for _, post := range posts {
		p.byID[post.ID] = post
	}
	return p
}

func (p *Posts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	post, ok := p.byID[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return &post, nil
}

func (p *Posts) List(_ context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	var out []domain.Post
	for _, post := range p.byID {
		if filter.AuthorID != "" && post.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Tag != "" && !contains(post.Tags, filter.Tag) {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (p *Posts) Create(_ context.Context, post *domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt
	p.byID[post.ID] = *post
	return nil
}

func (p *Posts) Update(_ context.Context, post *domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	existing, ok := p.byID[post.ID]
	if !ok {
		return domain.ErrPostNotFound
	}
	existing.Title, existing.Body, existing.Tags = post.Title, post.Body, post.Tags
	existing.UpdatedAt = time.Now()
	post.UpdatedAt = existing.UpdatedAt
	p.byID[post.ID] = existing
	return nil
}

func (p *Posts) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	if _, ok := p.byID[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(p.byID, id)
	return nil
}

// Donations is an in-memory DonationRepository.
type Donations struct {
	mu    sync.Mutex
	items []domain.Donation
	Err   error
}

func NewDonations(donations ...domain.Donation) *Donations {
	return &Donations{items: donations}
}

func (d *Donations) Create(_ context.Context, donation *domain.Donation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	donation.CreatedAt = time.Now()
	d.items = append(d.items, *donation)
	return nil
}

func (d *Donations) List(_ context.Context, filter repository.DonationFilter) ([]domain.Donation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []domain.Donation
	for _, donation := range d.items {
		if filter.DonorID != "" && donation.DonorID != filter.DonorID {
			continue
		}
		if filter.RecordedBy != "" && donation.RecordedBy != filter.RecordedBy {
			continue
		}
		if filter.BloodGroup != "" && donation.BloodGroup != filter.BloodGroup {
			continue
		}
		out = append(out, donation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DonatedAt.After(out[j].DonatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (d *Donations) LatestForDonor(ctx context.Context, donorID string) (*domain.Donation, error) {
	list, err := d.List(ctx, repository.DonationFilter{DonorID: donorID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrDonationNotFound
	}
	return &list[0], nil
}

func page[T any](items []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
