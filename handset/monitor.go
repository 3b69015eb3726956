package handset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type monitorImpl struct {
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	changed chan struct{}
}

type Config struct {
	Logger *slog.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	return &monitorImpl{
		logger:  cfg.Logger,
		state:   Idle,
		changed: make(chan struct{}),
	}, nil
}

func (m *monitorImpl) Lift() {
	m.set(Active)
}

func (m *monitorImpl) PutDown() {
	m.set(Idle)
}

// set switches state and wakes every waiter by closing the current change
// channel. Repeated edges into the same state do nothing.
func (m *monitorImpl) set(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == state {
		return
	}

	m.state = state
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *monitorImpl) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *monitorImpl) WaitActive(ctx context.Context) error {
	return m.waitFor(ctx, Active)
}

func (m *monitorImpl) WaitIdle(ctx context.Context) error {
	return m.waitFor(ctx, Idle)
}

func (m *monitorImpl) waitFor(ctx context.Context, state State) error {
	for {
		m.mu.Lock()
		if m.state == state {
			m.mu.Unlock()
			return nil
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			m.logger.Debug("handset state changed", "want", state.String())
		}
	}
}
