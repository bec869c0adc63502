package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedSize int

func (f fixedSize) Size() (int, error) { return int(f), nil }

func dep(name string, critical bool, err error) Dependency {
	return Dependency{Name: name, Critical: critical, Check: func(context.Context) error { return err }}
}

func TestRefreshAggregatesDependencies(t *testing.T) {
	m := New(fixedSize(3), 0, nil,
		dep("postgresql", true, nil),
		dep("redis", true, nil),
		dep("search", false, errors.New("down")),
	)
	assert.False(t, m.IsOnline(), "offline before the first check")

	m.Refresh(context.Background())
	status := m.GetStatus()
	assert.True(t, m.IsOnline())
	assert.True(t, status.Buffer)
	assert.Equal(t, 3, status.BufferSize)
	assert.Equal(t, "down", status.Services["search"].Error)
}

func TestCriticalFailureTakesServiceOffline(t *testing.T) {
	m := New(nil, 0, nil, dep("postgresql", true, errors.New("refused")), Dependency{Name: "redis", Critical: true})
	m.Refresh(context.Background())

	status := m.GetStatus()
	assert.False(t, m.IsOnline())
	assert.False(t, status.Buffer)
	assert.Equal(t, "no check configured", status.Services["redis"].Error)

	status.Services["postgresql"] = ServiceStatus{Online: true}
	assert.False(t, m.GetStatus().Services["postgresql"].Online, "status is returned as a copy")
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(nil, 0, nil)
	m.Start()
	m.Stop()
	m.Stop()
}
