package domain

import (
	"context"
	"time"
)

// MediaProbe extracts tags and embedded cover art from a media file.
// Extraction runs asynchronously; status changes are reported to the handler
// registered with OnStatus, on the control loop.
//
//go:generate mockgen -destination=mocks/media_probe_mock.go -package=mocks github.com/genricoloni/mediashell/internal/domain MediaProbe
type MediaProbe interface {
	// SetSource starts loading path, superseding any previous source
	SetSource(path string)

	// OnStatus registers the status handler. Only one handler is kept.
	OnStatus(handler func(ProbeStatusEvent))

	// Tags returns the tag fields of the last loaded source
	Tags() ProbeTags

	// Cover returns the embedded cover image of the last loaded source, or nil
	Cover() []byte
}

// CoverStore is the write side of the cover art cache
type CoverStore interface {
	Store(key string, data []byte)
}

// ImageProvider is the cover lookup capability registered with the presentation layer
type ImageProvider interface {
	// Image returns the image for key. When key is unknown it returns the
	// placeholder image and false.
	Image(key string) ([]byte, bool)
}

// PowerMonitor reports system sleep transitions.
// Implementations exist per platform; a no-op one is used where no native hook exists.
type PowerMonitor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Events() <-chan PowerEvent
}

// HandoffReceiver delivers file paths forwarded by later launches
type HandoffReceiver interface {
	Received() <-chan string
}

// Presenter is what the presentation layer consumes
type Presenter interface {
	Events() <-chan Event
	Images() ImageProvider
}

// Config defines the interface for application configuration
type Config interface {
	// GetAppID returns the fixed application identifier the handoff channel is named after
	GetAppID() string

	// GetSocketDir returns the directory holding the handoff socket
	GetSocketDir() string

	// GetHandoffTimeout bounds the client connect and write
	GetHandoffTimeout() time.Duration

	// GetReadTimeout bounds how long the server waits for a complete frame
	GetReadTimeout() time.Duration

	// GetResumeDelay is how long to wait after wake-up before reporting it
	GetResumeDelay() time.Duration

	// GetCoverMaxSize is the longest cover edge kept in the cache, 0 disables resizing
	GetCoverMaxSize() int

	// GetCoverCacheEntries bounds the cover cache, 0 means unbounded
	GetCoverCacheEntries() int

	// GetLogLevel returns the zap level name
	GetLogLevel() string

	// SingleInstance reports whether instance coordination is enabled
	SingleInstance() bool
}

// ImageProcessor defines the interface for in-memory image processing
// This is OS-agnostic and works purely with byte streams
type ImageProcessor interface {
	// Process transforms image data (e.g., resize, re-encode)
	// Returns the processed image bytes or an error
	Process(ctx context.Context, imageData []byte) ([]byte, error)
}
