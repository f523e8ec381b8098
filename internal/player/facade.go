// Package player exposes the playlist and metadata state to the presentation layer.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/mediashell/internal/domain"
	"github.com/genricoloni/mediashell/internal/eventloop"
	"github.com/genricoloni/mediashell/internal/format"
	"github.com/genricoloni/mediashell/internal/metadata"
	"github.com/genricoloni/mediashell/internal/playlist"
	"go.uber.org/zap"
)

const eventBuffer = 32

// Seed is the file given on the command line, empty when none
type Seed string

// State is a consistent copy of the player state
type State struct {
	Playlist      []string
	Index         int
	Metadata      domain.MetadataRecord
	MetadataState domain.MetadataState
}

var _ domain.Presenter = (*Facade)(nil)

// Facade owns the playlist engine and metadata pipeline and serializes every
// operation on them through the event loop.
type Facade struct {
	logger   *zap.Logger
	loop     *eventloop.Loop
	engine   *playlist.Engine
	pipeline *metadata.Pipeline
	images   domain.ImageProvider
	handoffs domain.HandoffReceiver
	power    domain.PowerMonitor
	seed     string
	events   chan domain.Event

	mu              sync.Mutex
	closed          bool
	lastDropWarning time.Time
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

// NewFacade wires the engine and pipeline change notifications to the event stream
func NewFacade(
	logger *zap.Logger,
	loop *eventloop.Loop,
	engine *playlist.Engine,
	pipeline *metadata.Pipeline,
	images domain.ImageProvider,
	handoffs domain.HandoffReceiver,
	power domain.PowerMonitor,
	seed Seed,
) *Facade {
	f := &Facade{
		logger:   logger,
		loop:     loop,
		engine:   engine,
		pipeline: pipeline,
		images:   images,
		handoffs: handoffs,
		power:    power,
		seed:     string(seed),
		events:   make(chan domain.Event, eventBuffer),
	}
	engine.OnChange(func() { f.publish(domain.Event{Kind: domain.EventPlaylistChanged}) })
	pipeline.OnChange(func() { f.publish(domain.Event{Kind: domain.EventMetadataChanged}) })
	return f
}

// Start forwards handoffs and power events to the loop and opens the seed.
// The event loop must already be running.
func (f *Facade) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return nil
	}
	forwardCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.mu.Unlock()

	f.wg.Add(1)
	go f.forward(forwardCtx)

	seed := f.seed
	if !f.loop.Post(func() { f.openFile(seed) }) {
		return eventloop.ErrStopped
	}

	f.logger.Info("Player started", zap.String("seed", seed))
	return nil
}

// forward moves external events onto the loop until both sources are closed
func (f *Facade) forward(ctx context.Context) {
	defer f.wg.Done()

	var received <-chan string
	if f.handoffs != nil {
		received = f.handoffs.Received()
	}
	var power <-chan domain.PowerEvent
	if f.power != nil {
		power = f.power.Events()
	}

	for received != nil || power != nil {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-received:
			if !ok {
				received = nil
				continue
			}
			f.loop.Post(func() {
				f.publish(domain.Event{Kind: domain.EventFileReceived, Path: path})
				f.openFile(path)
			})
		case ev, ok := <-power:
			if !ok {
				power = nil
				continue
			}
			kind := domain.EventSystemResumed
			if ev == domain.PowerSuspending {
				kind = domain.EventSystemSuspending
			}
			f.loop.Post(func() { f.publish(domain.Event{Kind: kind}) })
		}
	}
}

// openFile rebuilds the playlist around path and starts metadata extraction.
// Files that exist but are not supported still get their metadata read.
func (f *Facade) openFile(path string) {
	path = format.LocalPath(path)
	f.engine.BuildFrom(path)

	abs, ok := playlist.ResolveFile(path)
	if !ok {
		f.pipeline.LoadMetadata("")
		return
	}
	f.pipeline.LoadMetadata(abs)
}

func (f *Facade) step(query func() (string, bool)) bool {
	path, ok := query()
	if !ok {
		return false
	}
	f.engine.SetCurrent(path)
	f.pipeline.LoadMetadata(path)
	return true
}

// OpenFile makes path the current file. path may be a filesystem path or a file URL.
func (f *Facade) OpenFile(ctx context.Context, path string) error {
	return f.loop.Do(ctx, func() { f.openFile(path) })
}

// Next moves to the following playlist entry, reporting whether there was one
func (f *Facade) Next(ctx context.Context) bool {
	moved := false
	if err := f.loop.Do(ctx, func() { moved = f.step(f.engine.Next) }); err != nil {
		f.logger.Debug("Next not executed", zap.Error(err))
		return false
	}
	return moved
}

// Previous moves to the preceding playlist entry, reporting whether there was one
func (f *Facade) Previous(ctx context.Context) bool {
	moved := false
	if err := f.loop.Do(ctx, func() { moved = f.step(f.engine.Previous) }); err != nil {
		f.logger.Debug("Previous not executed", zap.Error(err))
		return false
	}
	return moved
}

// SetCurrent moves the cursor to path if it is in the playlist and loads its metadata
func (f *Facade) SetCurrent(ctx context.Context, path string) error {
	return f.loop.Do(ctx, func() {
		f.engine.SetCurrent(format.LocalPath(path))
		current, ok := f.engine.Current()
		if ok && current != f.pipeline.RequestedPath() {
			f.pipeline.LoadMetadata(current)
		}
	})
}

// Snapshot returns a copy of the current state
func (f *Facade) Snapshot(ctx context.Context) (State, error) {
	var s State
	err := f.loop.Do(ctx, func() {
		s = State{
			Playlist:      f.engine.Paths(),
			Index:         f.engine.CurrentIndex(),
			Metadata:      f.pipeline.Record(),
			MetadataState: f.pipeline.State(),
		}
	})
	return s, err
}

// InitialMediaPath returns the seed as a file URL, or "" without a seed
func (f *Facade) InitialMediaPath() string {
	if f.seed == "" {
		return ""
	}
	return format.FileURL(f.seed)
}

// Events returns the state-change notifications, closed by Stop
func (f *Facade) Events() <-chan domain.Event {
	return f.events
}

// Images returns the cover lookup for the presentation layer
func (f *Facade) Images() domain.ImageProvider {
	return f.images
}

func (f *Facade) publish(ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	select {
	case f.events <- ev:
	default:
		const warningInterval = 5 * time.Second
		now := time.Now()
		if now.Sub(f.lastDropWarning) >= warningInterval {
			f.logger.Warn("Events channel full, dropping event", zap.String("kind", string(ev.Kind)))
			f.lastDropWarning = now
		}
	}
}

// Stop ends forwarding and closes the events channel
func (f *Facade) Stop(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	f.closed = true
	close(f.events)
	f.mu.Unlock()

	f.logger.Info("Player stopped")
	return nil
}
