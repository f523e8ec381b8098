// Package instance keeps a single primary process per user session and lets
// later launches forward their file argument to it over a unix socket.
package instance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrLocked means another primary currently holds the instance lock
var ErrLocked = errors.New("instance lock held by another process")

const receivedBuffer = 16

// ChannelName derives the socket name shared by every process of appID
func ChannelName(appID string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, appID)
	return name + "_SingleInstance"
}

// SocketDir returns dir, or the user runtime directory when dir is empty
func SocketDir(dir string) string {
	if dir != "" {
		return dir
	}
	if xdg.RuntimeDir != "" {
		return xdg.RuntimeDir
	}
	return os.TempDir()
}

// Coordinator is both the handoff client and the primary instance server
type Coordinator struct {
	logger         *zap.Logger
	socketPath     string
	handoffTimeout time.Duration
	readTimeout    time.Duration
	received       chan string

	mu              sync.Mutex
	listener        net.Listener
	lock            *fileLock
	serving         bool
	closed          bool
	lastDropWarning time.Time
	wg              sync.WaitGroup
}

// NewCoordinator creates a coordinator for the configured application id
func NewCoordinator(logger *zap.Logger, cfg domain.Config) *Coordinator {
	socketPath := filepath.Join(SocketDir(cfg.GetSocketDir()), ChannelName(cfg.GetAppID())+".sock")
	return &Coordinator{
		logger:         logger.With(zap.String("socket", socketPath)),
		socketPath:     socketPath,
		handoffTimeout: cfg.GetHandoffTimeout(),
		readTimeout:    cfg.GetReadTimeout(),
		received:       make(chan string, receivedBuffer),
	}
}

// SocketPath returns the path of the well-known socket
func (c *Coordinator) SocketPath() string {
	return c.socketPath
}

// TryHandoff forwards path to a running primary.
// It returns true only if both the connection and the write completed in time.
func (c *Coordinator) TryHandoff(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	dialer := net.Dialer{Timeout: c.handoffTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		c.logger.Debug("No running instance", zap.Error(err))
		return false
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.handoffTimeout)); err != nil {
		c.logger.Debug("Failed to set write deadline", zap.Error(err))
		return false
	}
	if err := writeFrame(conn, path); err != nil {
		c.logger.Warn("Handoff failed", zap.String("path", path), zap.Error(err))
		return false
	}

	c.logger.Info("Forwarded file to running instance", zap.String("path", path))
	return true
}

// StartServing takes the instance lock, clears any stale socket and listens.
// It returns false when another primary is alive or the socket cannot be bound.
func (c *Coordinator) StartServing(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.serving {
		return true
	}
	if c.closed {
		return false
	}

	if err := os.MkdirAll(filepath.Dir(c.socketPath), 0o700); err != nil {
		c.logger.Warn("Failed to create socket directory", zap.Error(err))
		return false
	}

	lock, err := acquireLock(c.socketPath + ".lock")
	if err != nil {
		if errors.Is(err, ErrLocked) {
			c.logger.Info("Another instance is already serving")
		} else {
			c.logger.Warn("Failed to acquire instance lock", zap.Error(err))
		}
		return false
	}

	// holding the lock means whoever created the socket is gone
	if err := os.RemoveAll(c.socketPath); err != nil {
		c.logger.Warn("Failed to remove stale socket", zap.Error(err))
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "unix", c.socketPath)
	if err != nil {
		c.logger.Warn("Failed to listen", zap.Error(err))
		if rerr := lock.release(); rerr != nil {
			c.logger.Warn("Failed to release instance lock", zap.Error(rerr))
		}
		return false
	}
	if err := os.Chmod(c.socketPath, 0o600); err != nil {
		c.logger.Debug("Failed to restrict socket permissions", zap.Error(err))
	}

	c.listener = listener
	c.lock = lock
	c.serving = true

	c.wg.Add(1)
	go c.acceptLoop(listener)

	c.logger.Info("Serving as primary instance")
	return true
}

func (c *Coordinator) acceptLoop(listener net.Listener) {
	defer c.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Debug("Accept failed", zap.Error(err))
			continue
		}

		c.wg.Add(1)
		go c.handleConn(conn)
	}
}

func (c *Coordinator) handleConn(conn net.Conn) {
	defer c.wg.Done()
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		c.logger.Debug("Failed to set read deadline", zap.Error(err))
		return
	}

	path, err := readFrame(conn)
	if err != nil {
		c.logger.Debug("Discarding handoff message", zap.Error(err))
		return
	}

	c.logger.Info("Received file from another instance", zap.String("path", path))
	select {
	case c.received <- path:
	default:
		c.logDropWarning()
	}
}

// logDropWarning is rate limited to one warning every 5 seconds
func (c *Coordinator) logDropWarning() {
	c.mu.Lock()
	defer c.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(c.lastDropWarning) >= warningInterval {
		c.logger.Warn("Received channel full, dropping forwarded file")
		c.lastDropWarning = now
	}
}

// Received delivers paths forwarded by other instances.
// The channel is closed by Stop.
func (c *Coordinator) Received() <-chan string {
	return c.received
}

// Serving reports whether this process is the primary instance
func (c *Coordinator) Serving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serving
}

// Stop closes the listener, waits for open connections, removes the socket and releases the lock
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	listener, lock, serving := c.listener, c.lock, c.serving
	c.serving = false
	c.mu.Unlock()

	var errs error
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, fmt.Errorf("failed to close listener: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return multierr.Append(errs, ctx.Err())
	}
	close(c.received)

	if serving {
		if err := os.Remove(c.socketPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, fmt.Errorf("failed to remove socket: %w", err))
		}
	}
	if lock != nil {
		if err := lock.release(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	c.logger.Info("Instance coordinator stopped")
	return errs
}
