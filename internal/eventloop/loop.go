// Package eventloop provides the single control goroutine that owns all player state.
// Producers running on other goroutines hand work to it with Post or Do.
package eventloop

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 64

// ErrStopped is returned when work is submitted to a loop that is not running
var ErrStopped = errors.New("event loop stopped")

// Loop runs submitted functions one at a time, in submission order
type Loop struct {
	logger  *zap.Logger
	tasks   chan func()
	done    chan struct{}
	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// New creates a loop. It does nothing until Start is called.
func New(logger *zap.Logger) *Loop {
	return &Loop{
		logger: logger,
		tasks:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. It returns immediately.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStopped
	}
	if l.running {
		return nil
	}
	l.running = true

	l.wg.Add(1)
	go l.run()
	l.logger.Debug("Event loop started")
	return nil
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			l.invoke(fn)
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered panic in event loop task", zap.Any("panic", r))
		}
	}()
	fn()
}

// Post queues fn for execution on the loop. It blocks while the queue is full
// and returns false once the loop is stopped. Never call it from inside a task
// with a full queue.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
// It must not be called from a loop task.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the loop. Tasks still queued are dropped.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.running = false
	close(l.done)
	l.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		l.logger.Debug("Event loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
