package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/infrastructure/buffer"
	"github.com/carelink/backend/internal/testsupport"
	"github.com/carelink/backend/pkg/metrics"
	"github.com/carelink/backend/repository"
)

type switchableHealth struct{ online atomic.Bool }

func (h *switchableHealth) IsOnline() bool { return h.online.Load() }

type processorFixture struct {
	store     *buffer.Store
	health    *switchableHealth
	profiles  *testsupport.Profiles
	posts     *testsupport.Posts
	donations *testsupport.Donations
	metrics   *metrics.Metrics
	proc      *BufferProcessor
	bridge    *BufferBridge
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &processorFixture{
		store:     store,
		health:    &switchableHealth{},
		profiles:  testsupport.NewProfiles(nil),
		posts:     testsupport.NewPosts(),
		donations: testsupport.NewDonations(),
		metrics:   metrics.New("test"),
	}
	f.health.online.Store(true)

	f.proc, err = NewBufferProcessor(store, f.health, Repositories{
		Profiles:  f.profiles,
		Posts:     f.posts,
		Donations: f.donations,
	}, f.metrics, nil, ProcessorConfig{Interval: time.Minute, BatchSize: 10, MaxRetries: 2})
	require.NoError(t, err)
	f.bridge = NewBufferBridge(f.proc)
	return f
}

func (f *processorFixture) drained(result string) float64 {
	return testutil.ToFloat64(f.metrics.BufferDrainItems.WithLabelValues(result))
}

func TestBufferOperationAppliesImmediatelyWhenOnline(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bridge.BufferProfile(ctx, &domain.Profile{UserID: "u1", Role: domain.RoleDoctor, DisplayName: "Dr. Rahman"}))

	stored, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rahman", stored.DisplayName)
	assert.Zero(t, f.proc.Size())
}

func TestOfflineWritesAreReplayedOnceOnline(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	f.health.online.Store(false)

	donation := &domain.Donation{ID: "d1", DonorID: "donor", RecordedBy: "bank", BloodGroup: domain.BloodOPos, Units: 1, DonatedAt: time.Now()}
	require.NoError(t, f.bridge.BufferDonation(ctx, donation))
	require.NoError(t, f.bridge.BufferPost(ctx, buffer.OperationCreate, &domain.Post{ID: "p1", AuthorID: "doc", Title: "Hydration", Body: "Drink water."}))
	assert.Equal(t, 2, f.proc.Size())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BufferedWrites.WithLabelValues(buffer.EntityDonation)))

	require.NoError(t, f.proc.Drain(ctx))
	assert.Equal(t, 2, f.proc.Size(), "drain is skipped while offline")

	f.health.online.Store(true)
	require.NoError(t, f.proc.Drain(ctx))
	assert.Zero(t, f.proc.Size())
	assert.Equal(t, float64(2), f.drained("ok"))

	donations, err := f.donations.List(ctx, repository.DonationFilter{DonorID: "donor"})
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.Equal(t, "d1", donations[0].ID)

	post, err := f.posts.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hydration", post.Title)
}

func TestTransientFailuresRetryThenDeadLetter(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	f.posts.Err = errors.New("connection reset")

	require.NoError(t, f.bridge.BufferPost(ctx, buffer.OperationCreate, &domain.Post{ID: "p1", AuthorID: "doc", Title: "t", Body: "b"}))
	assert.Equal(t, 1, f.proc.Size(), "failed immediate write is parked")

	require.NoError(t, f.proc.Drain(ctx))
	assert.Equal(t, 1, f.proc.Size())
	assert.Equal(t, float64(1), f.drained("retry"))

	require.NoError(t, f.proc.Drain(ctx))
	assert.Zero(t, f.proc.Size())
	assert.Equal(t, float64(1), f.drained("dead"))

	dead, err := f.store.DeadLetters(10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "connection reset", dead[0].LastError)
}

func TestDomainErrorsAreNotBuffered(t *testing.T) {
	f := newProcessorFixture(t)

	err := f.bridge.BufferPost(context.Background(), buffer.OperationUpdate, &domain.Post{ID: "missing", AuthorID: "doc"})
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	assert.Zero(t, f.proc.Size())
}

func TestMalformedItemIsDeadLetteredImmediately(t *testing.T) {
	f := newProcessorFixture(t)
	require.NoError(t, f.store.Enqueue(buffer.Item{ID: "bad", Entity: buffer.EntityDonation, Operation: buffer.OperationCreate, Data: []byte(`"nope"`)}))
	require.NoError(t, f.store.Enqueue(buffer.Item{ID: "odd", Entity: "invoice", Operation: buffer.OperationCreate, Data: []byte(`{}`)}))

	require.NoError(t, f.proc.Drain(context.Background()))
	assert.Zero(t, f.proc.Size())
	assert.Equal(t, float64(2), f.drained("dead"))
}

func TestReplayedDeleteOfMissingPostSucceeds(t *testing.T) {
	f := newProcessorFixture(t)
	require.NoError(t, f.bridge.BufferPost(context.Background(), buffer.OperationDelete, &domain.Post{ID: "gone", AuthorID: "doc"}))
	assert.Zero(t, f.proc.Size())
}

func TestBridgeRejectsNilPayloads(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	assert.ErrorIs(t, f.bridge.BufferProfile(ctx, nil), domain.ErrInvalidPayload)
	assert.ErrorIs(t, f.bridge.BufferPost(ctx, buffer.OperationCreate, nil), domain.ErrInvalidPayload)
	assert.ErrorIs(t, f.bridge.BufferDonation(ctx, nil), domain.ErrInvalidPayload)
	assert.ErrorIs(t, (*BufferBridge)(nil).BufferProfile(ctx, &domain.Profile{}), domain.ErrInvalidPayload)
}

type flakyProfiles struct {
	*testsupport.Profiles
	failures int
}

func (p *flakyProfiles) Upsert(ctx context.Context, profile *domain.Profile) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("connection reset")
	}
	return p.Profiles.Upsert(ctx, profile)
}

func TestFailedReplayKeepsLaterWritesToSameSubjectBehindIt(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	flaky := &flakyProfiles{Profiles: f.profiles, failures: 1}
	proc, err := NewBufferProcessor(f.store, f.health, Repositories{
		Profiles:  flaky,
		Posts:     f.posts,
		Donations: f.donations,
	}, f.metrics, nil, ProcessorConfig{Interval: time.Minute, BatchSize: 10, MaxRetries: 3})
	require.NoError(t, err)
	bridge := NewBufferBridge(proc)

	f.health.online.Store(false)
	require.NoError(t, bridge.BufferProfile(ctx, &domain.Profile{UserID: "u1", Role: domain.RoleDoctor, DisplayName: "old"}))
	require.NoError(t, bridge.BufferProfile(ctx, &domain.Profile{UserID: "u1", Role: domain.RoleDoctor, DisplayName: "new"}))
	f.health.online.Store(true)

	require.NoError(t, proc.Drain(ctx))
	assert.Equal(t, 2, proc.Size(), "later write waits behind the failed one")
	_, err = f.profiles.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	require.NoError(t, proc.Drain(ctx))
	assert.Zero(t, proc.Size())
	stored, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.DisplayName)
}

func TestOnlineWriteQueuesBehindPendingWriteToSameSubject(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	f.health.online.Store(false)
	require.NoError(t, f.bridge.BufferProfile(ctx, &domain.Profile{UserID: "u1", Role: domain.RoleDoctor, DisplayName: "old"}))
	f.health.online.Store(true)

	require.NoError(t, f.bridge.BufferProfile(ctx, &domain.Profile{UserID: "u1", Role: domain.RoleDoctor, DisplayName: "new"}))
	assert.Equal(t, 2, f.proc.Size())

	require.NoError(t, f.bridge.BufferProfile(ctx, &domain.Profile{UserID: "u2", Role: domain.RoleDoctor, DisplayName: "other"}))
	assert.Equal(t, 2, f.proc.Size(), "unrelated subjects still apply immediately")

	require.NoError(t, f.proc.Drain(ctx))
	assert.Zero(t, f.proc.Size())
	stored, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.DisplayName)
}
