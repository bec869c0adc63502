package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependency is a named health check. Critical dependencies decide IsOnline.
type Dependency struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Check    func(ctx context.Context) error
}

// PostgresDependency pings the pool.
func PostgresDependency(pool *pgxpool.Pool) Dependency {
	return Dependency{
		Name:     "postgresql",
		Critical: true,
		Timeout:  3 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	}
}

// RedisDependency pings the client.
func RedisDependency(client *redislib.Client) Dependency {
	return Dependency{
		Name:     "redis",
		Critical: true,
		Timeout:  2 * time.Second,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// BufferSizer reports the number of pending offline writes.
type BufferSizer interface {
	Size() (int, error)
}

type Monitor struct {
	deps   []Dependency
	buffer BufferSizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(buf BufferSizer, interval time.Duration, logger *zap.Logger, deps ...Dependency) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		deps:     deps,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every critical dependency passed on the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh checks every dependency once and stores the result.
func (m *Monitor) Refresh(ctx context.Context) {
	status := Status{
		Services:  make(map[string]ServiceStatus, len(m.deps)),
		LastCheck: time.Now(),
	}
	for _, dep := range m.deps {
		status.Services[dep.Name] = m.run(ctx, dep)
	}
	status.Buffer, status.BufferSize = m.checkBuffer()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Info("dependency health changed", zap.Bool("online", status.Healthy()))
	}
}

func (m *Monitor) run(ctx context.Context, dep Dependency) ServiceStatus {
	timeout := dep.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := ServiceStatus{Critical: dep.Critical}
	if dep.Check == nil {
		result.Error = "no check configured"
		return result
	}
	if err := dep.Check(checkCtx); err != nil {
		m.logger.Debug("dependency check failed", zap.String("dependency", dep.Name), zap.Error(err))
		result.Error = err.Error()
		return result
	}
	result.Online = true
	return result
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
