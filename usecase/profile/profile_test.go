package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/testsupport"
)

type recordingBuffer struct {
	profiles []*domain.Profile
	err      error
}

func (b *recordingBuffer) BufferProfile(_ context.Context, profile *domain.Profile) error {
	if b.err != nil {
		return b.err
	}
	b.profiles = append(b.profiles, profile)
	return nil
}

func (b *recordingBuffer) BufferPost(context.Context, string, *domain.Post) error { return nil }

func (b *recordingBuffer) BufferDonation(context.Context, *domain.Donation) error { return nil }

func doctorInput() UpdateInput {
	return UpdateInput{
		DisplayName: "Dr. Rahman",
		City:        "Dhaka",
		Details:     json.RawMessage(`{"specialization":"cardiology","license_number":"BMDC-1","experience_years":12}`),
	}
}

func TestUpdateAndGetProfile(t *testing.T) {
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	users := testsupport.NewUsers(doctor)
	uc := New(testsupport.NewProfiles(users), nil, nil)
	ctx := context.Background()

	saved, err := uc.UpdateProfile(ctx, doctor.Principal(), doctorInput())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, saved.Role)

	got, err := uc.GetProfile(ctx, doctor.Principal())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rahman", got.DisplayName)

	var details domain.DoctorDetails
	require.NoError(t, json.Unmarshal(got.Details, &details))
	assert.Equal(t, "cardiology", details.Specialization)
	assert.Equal(t, 12, details.ExperienceYears)
}

func TestUpdateProfileValidation(t *testing.T) {
	pharmacy := testsupport.NewUser(domain.RolePharmacy, domain.StatusPending)
	uc := New(testsupport.NewProfiles(nil), nil, nil)
	ctx := context.Background()

	cases := map[string]UpdateInput{
		"missing name":     {Details: json.RawMessage(`{"license_number":"P-1"}`)},
		"missing license":  {DisplayName: "Corner Pharmacy", Details: json.RawMessage(`{"home_delivery":true}`)},
		"foreign field":    {DisplayName: "Corner Pharmacy", Details: json.RawMessage(`{"license_number":"P-1","beds":3}`)},
		"malformed detail": {DisplayName: "Corner Pharmacy", Details: json.RawMessage(`[1,2]`)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.UpdateProfile(ctx, pharmacy.Principal(), in)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "got %v", err)
		})
	}
}

func TestProfileRequiresProvider(t *testing.T) {
	patient := testsupport.NewUser(domain.RoleUser, domain.StatusActive)
	uc := New(testsupport.NewProfiles(nil), nil, nil)

	_, err := uc.GetProfile(context.Background(), patient.Principal())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	_, err = uc.UpdateProfile(context.Background(), nil, doctorInput())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateProfileBuffersOnStoreFailure(t *testing.T) {
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	profiles := testsupport.NewProfiles(nil)
	profiles.Err = errors.New("connection refused")
	buf := &recordingBuffer{}
	uc := New(profiles, buf, nil)

	saved, err := uc.UpdateProfile(context.Background(), doctor.Principal(), doctorInput())
	require.NoError(t, err)
	require.Len(t, buf.profiles, 1)
	assert.Equal(t, saved, buf.profiles[0])

	buf.err = errors.New("disk full")
	_, err = uc.UpdateProfile(context.Background(), doctor.Principal(), doctorInput())
	assert.EqualError(t, err, "connection refused")
}

func TestUpdateProfileDoesNotBufferDomainErrors(t *testing.T) {
	doctor := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	profiles := testsupport.NewProfiles(nil)
	profiles.Err = domain.ErrUserNotFound
	buf := &recordingBuffer{}
	uc := New(profiles, buf, nil)

	_, err := uc.UpdateProfile(context.Background(), doctor.Principal(), doctorInput())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, buf.profiles)
}

func TestDirectoryListsActiveProviders(t *testing.T) {
	active := testsupport.NewUser(domain.RoleDoctor, domain.StatusActive)
	pending := testsupport.NewUser(domain.RoleDoctor, domain.StatusPending)
	users := testsupport.NewUsers(active, pending)
	uc := New(testsupport.NewProfiles(users), nil, nil)
	ctx := context.Background()

	for _, u := range []domain.User{active, pending} {
		_, err := uc.UpdateProfile(ctx, u.Principal(), doctorInput())
		require.NoError(t, err)
	}

	list, err := uc.Directory(ctx, domain.RoleDoctor, "dhaka", 0, -1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].UserID)

	list, err = uc.Directory(ctx, domain.RoleDoctor, "Chattogram", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = uc.Directory(ctx, domain.RoleUser, "", 0, 0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
