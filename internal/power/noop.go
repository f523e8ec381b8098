package power

import (
	"context"
	"sync"

	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/zap"
)

// NoopMonitor is used where the platform has no sleep notification hook. It never emits.
type NoopMonitor struct {
	logger *zap.Logger
	events chan domain.PowerEvent
	once   sync.Once
}

// NewNoopMonitor creates a silent monitor
func NewNoopMonitor(logger *zap.Logger) *NoopMonitor {
	return &NoopMonitor{
		logger: logger,
		events: make(chan domain.PowerEvent),
	}
}

// Start is a no-op
func (m *NoopMonitor) Start(ctx context.Context) error {
	m.logger.Debug("Sleep events are not supported on this platform")
	return nil
}

// Events returns a channel that is only ever closed
func (m *NoopMonitor) Events() <-chan domain.PowerEvent {
	return m.events
}

// Stop closes the events channel
func (m *NoopMonitor) Stop(ctx context.Context) error {
	m.once.Do(func() { close(m.events) })
	return nil
}
