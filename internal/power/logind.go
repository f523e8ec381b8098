// Package power reports system sleep and wake-up to the player.
package power

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/mediashell/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	logindPath      = "/org/freedesktop/login1"
	logindInterface = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

// LogindMonitor listens for systemd-logind PrepareForSleep signals on the system bus
type LogindMonitor struct {
	logger          *zap.Logger
	resumeDelay     time.Duration
	dial            func() (DBusClient, error)
	events          chan domain.PowerEvent
	mu              sync.Mutex
	running         bool
	stopped         bool
	cancel          context.CancelFunc
	conn            DBusClient
	lastDropWarning time.Time
	wg              sync.WaitGroup
}

// NewLogindMonitor creates a monitor that reports wake-up resumeDelay after logind announces it
func NewLogindMonitor(logger *zap.Logger, resumeDelay time.Duration) *LogindMonitor {
	return &LogindMonitor{
		logger:      logger,
		resumeDelay: resumeDelay,
		dial:        func() (DBusClient, error) { return NewStdDBusClient() },
		events:      make(chan domain.PowerEvent, 4),
	}
}

// Start subscribes to logind. Without a reachable system bus the monitor
// stays silent rather than failing startup.
func (m *LogindMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.stopped {
		return nil
	}

	conn, err := m.dial()
	if err != nil {
		m.logger.Warn("System bus unavailable, sleep events disabled", zap.Error(err))
		return nil
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		m.logger.Warn("Failed to subscribe to logind", zap.Error(err))
		return nil
	}

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	watchCtx, cancel := context.WithCancel(context.Background())
	m.conn = conn
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.watch(watchCtx, signals)

	m.logger.Info("Logind sleep monitor started", zap.Duration("resumeDelay", m.resumeDelay))
	return nil
}

// watch turns PrepareForSleep signals into power events
func (m *LogindMonitor) watch(ctx context.Context, signals <-chan *dbus.Signal) {
	defer m.wg.Done()

	var resume *time.Timer
	var resumeC <-chan time.Time
	stopResume := func() {
		if resume != nil {
			resume.Stop()
			resume, resumeC = nil, nil
		}
	}
	defer stopResume()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			sleeping, valid := parsePrepareForSleep(sig)
			if !valid {
				continue
			}
			stopResume()
			if sleeping {
				m.emit(domain.PowerSuspending)
				continue
			}
			resume = time.NewTimer(m.resumeDelay)
			resumeC = resume.C
		case <-resumeC:
			resume, resumeC = nil, nil
			m.emit(domain.PowerResumed)
		}
	}
}

// parsePrepareForSleep returns the signal argument: true before sleep, false after wake-up
func parsePrepareForSleep(sig *dbus.Signal) (sleeping bool, ok bool) {
	if sig == nil || sig.Name != logindInterface+"."+prepareForSleep {
		return false, false
	}
	if len(sig.Body) < 1 {
		return false, false
	}
	sleeping, ok = sig.Body[0].(bool)
	return sleeping, ok
}

func (m *LogindMonitor) emit(ev domain.PowerEvent) {
	m.logger.Info("Power event", zap.String("event", string(ev)))
	select {
	case m.events <- ev:
	default:
		m.logDropWarning()
	}
}

// logDropWarning is rate limited to one warning every 5 seconds
func (m *LogindMonitor) logDropWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Power events channel full, dropping event")
		m.lastDropWarning = now
	}
}

// Events returns a read-only channel of sleep transitions, closed by Stop
func (m *LogindMonitor) Events() <-chan domain.PowerEvent {
	return m.events
}

// Stop ends the subscription and closes the events channel
func (m *LogindMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.running = false
	if m.cancel != nil {
		m.cancel()
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	// the watcher is the only sender
	m.wg.Wait()
	close(m.events)

	if conn != nil {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close D-Bus connection: %w", err)
		}
	}

	m.logger.Info("Logind sleep monitor stopped")
	return nil
}
