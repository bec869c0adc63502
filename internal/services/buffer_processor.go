package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/infrastructure/buffer"
	"github.com/carelink/backend/pkg/metrics"
	"github.com/carelink/backend/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// Repositories groups the stores buffered items are replayed into.
type Repositories struct {
	Profiles  repository.ProfileRepository
	Posts     repository.PostRepository
	Donations repository.DonationRepository
}

// BufferProcessor replays buffered writes into Postgres on a cron schedule.
type BufferProcessor struct {
	store   *buffer.Store
	monitor ConnectionHealth
	repos   Repositories
	metrics *metrics.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	repos Repositories,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ProcessorConfig,
) (*BufferProcessor, error) {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:   store,
		monitor: monitor,
		repos:   repos,
		metrics: m,
		logger:  logger.Named("buffer"),
		cfg:     cfg,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}

	drainSpec := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := bp.cron.AddFunc(drainSpec, bp.drainJob); err != nil {
		return nil, fmt.Errorf("schedule buffer drain: %w", err)
	}
	if _, err := bp.cron.AddFunc("0 15 3 * * *", bp.cleanupJob); err != nil {
		return nil, fmt.Errorf("schedule buffer cleanup: %w", err)
	}
	return bp, nil
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running job to finish or ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

func (bp *BufferProcessor) drainJob() {
	ctx, cancel := context.WithTimeout(context.Background(), bp.cfg.Interval)
	defer cancel()
	if err := bp.Drain(ctx); err != nil {
		bp.logger.Error("buffer drain failed", zap.Error(err))
	}
}

func (bp *BufferProcessor) cleanupJob() {
	removed, err := bp.store.Cleanup(time.Now().Add(-bp.cfg.Retention))
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		bp.logger.Info("expired dead letters removed", zap.Int("count", removed))
	}
}

// Drain replays one batch of buffered items. Once a write to a subject fails,
// later writes to that subject wait for the next drain so they cannot be
// overtaken by the older one.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.Peek(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	blocked := make(map[string]bool)
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		subject := item.SubjectKey()
		if subject != "" && blocked[subject] {
			continue
		}
		if err := bp.apply(ctx, item); err != nil {
			if subject != "" {
				blocked[subject] = true
			}
			limit := bp.cfg.MaxRetries
			if isPermanent(err) {
				limit = item.Retries + 1
			}
			dead, retryErr := bp.store.Retry(item, err, limit)
			if retryErr != nil {
				bp.logger.Error("failed to reschedule buffer item", zap.String("item_id", item.ID), zap.Error(retryErr))
				continue
			}
			if dead {
				delete(blocked, subject)
				bp.metrics.ObserveDrain("dead")
				bp.logger.Warn("buffer item dead-lettered",
					zap.String("item_id", item.ID),
					zap.String("entity", item.Entity),
					zap.Error(err))
				continue
			}
			bp.metrics.ObserveDrain("retry")
			bp.logger.Warn("buffer item replay failed",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Int("retries", item.Retries+1),
				zap.Error(err))
			continue
		}

		if err := bp.store.Ack(item); err != nil {
			bp.logger.Warn("failed to ack buffer item", zap.String("item_id", item.ID), zap.Error(err))
			if subject != "" {
				blocked[subject] = true
			}
			continue
		}
		bp.metrics.ObserveDrain("ok")
	}
	return nil
}

// BufferOperation tries item immediately while the database looks healthy and
// no older write to the same subject is queued. Otherwise it parks item in
// the store behind them.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errors.New("buffer processor not configured")
	}

	if (bp.monitor == nil || bp.monitor.IsOnline()) && !bp.queuedBefore(item) {
		err := bp.apply(ctx, item)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		bp.logger.Warn("immediate replay failed, buffering", zap.String("entity", item.Entity), zap.Error(err))
	}
	if err := bp.store.Enqueue(item); err != nil {
		return err
	}
	bp.metrics.ObserveBuffered(item.Entity)
	return nil
}

func (bp *BufferProcessor) queuedBefore(item buffer.Item) bool {
	queued, err := bp.store.Pending(item.SubjectKey())
	if err != nil {
		bp.logger.Warn("buffer lookup failed, queueing write", zap.String("entity", item.Entity), zap.Error(err))
		return true
	}
	return queued
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) apply(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityProfile:
		var profile domain.Profile
		if err := json.Unmarshal(item.Data, &profile); err != nil {
			return permanent(err)
		}
		return bp.repos.Profiles.Upsert(ctx, &profile)

	case buffer.EntityPost:
		var post domain.Post
		if err := json.Unmarshal(item.Data, &post); err != nil {
			return permanent(err)
		}
		switch item.Operation {
		case buffer.OperationCreate:
			return bp.repos.Posts.Create(ctx, &post)
		case buffer.OperationUpdate:
			return bp.repos.Posts.Update(ctx, &post)
		case buffer.OperationDelete:
			err := bp.repos.Posts.Delete(ctx, post.ID)
			if errors.Is(err, domain.ErrPostNotFound) {
				return nil
			}
			return err
		}

	case buffer.EntityDonation:
		var donation domain.Donation
		if err := json.Unmarshal(item.Data, &donation); err != nil {
			return permanent(err)
		}
		if item.Operation == buffer.OperationCreate {
			return bp.repos.Donations.Create(ctx, &donation)
		}

	default:
		return permanent(fmt.Errorf("unsupported entity %s", item.Entity))
	}
	return permanent(fmt.Errorf("unsupported operation %s on %s", item.Operation, item.Entity))
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

// isPermanent reports errors that replaying cannot fix: malformed items and
// domain rule violations.
func isPermanent(err error) bool {
	var pe permanentError
	if errors.As(err, &pe) {
		return true
	}
	var de *domain.Error
	return errors.As(err, &de)
}
