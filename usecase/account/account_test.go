package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/testsupport"
	"github.com/carelink/backend/repository"
)

func TestUpdateOwnAccount(t *testing.T) {
	user := testsupport.NewUser(domain.RoleUser, domain.StatusActive)
	users := testsupport.NewUsers(user)
	uc := New(users, nil, nil)

	updated, err := uc.Update(context.Background(), user.ID, UpdateInput{FullName: "  Jane Roe ", Phone: "+8801700000000"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", updated.FullName)

	stored, err := uc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "+8801700000000", stored.Phone)

	_, err = uc.Update(context.Background(), user.ID, UpdateInput{FullName: "   "})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestListClampsPaging(t *testing.T) {
	var users []domain.User
	for i := 0; i < 3; i++ {
		users = append(users, testsupport.NewUser(domain.RoleDoctor, domain.StatusPending))
	}
	users = append(users, testsupport.NewUser(domain.RoleUser, domain.StatusActive))
	uc := New(testsupport.NewUsers(users...), nil, nil)

	pending, err := uc.List(context.Background(), repository.UserFilter{Status: domain.StatusPending, Limit: -1, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	page, err := uc.List(context.Background(), repository.UserFilter{Role: domain.RoleDoctor, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestSetStatus(t *testing.T) {
	admin := testsupport.NewUser(domain.RoleAdmin, domain.StatusActive)
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusPending)
	users := testsupport.NewUsers(admin, doctor)
	sessions, _ := testsupport.Sessions(t)
	uc := New(users, sessions, nil)
	ctx := context.Background()

	updated, err := uc.SetStatus(ctx, admin.Principal(), doctor.ID, domain.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, updated.Status)

	stored, err := users.GetByID(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)

	_, err = uc.SetStatus(ctx, admin.Principal(), admin.ID, domain.StatusSuspended)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	_, err = uc.SetStatus(ctx, admin.Principal(), doctor.ID, 0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.SetStatus(ctx, admin.Principal(), "missing", domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = uc.SetStatus(ctx, nil, doctor.ID, domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSuspendRevokesSessions(t *testing.T) {
	admin := testsupport.NewUser(domain.RoleAdmin, domain.StatusActive)
	patient := testsupport.NewUser(domain.RoleUser, domain.StatusActive)
	sessions, _ := testsupport.Sessions(t)
	uc := New(testsupport.NewUsers(admin, patient), sessions, nil)
	ctx := context.Background()

	session := &domain.Session{ID: "s-1", UserID: patient.ID, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Save(ctx, session))

	_, err := uc.SetStatus(ctx, admin.Principal(), patient.ID, domain.StatusSuspended)
	require.NoError(t, err)

	_, err = sessions.Get(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
