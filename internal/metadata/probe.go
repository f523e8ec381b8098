package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dhowden/tag"
	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/zap"
)

// Dispatcher hands a function to the control loop
type Dispatcher func(func()) bool

// TagProbe reads tags and embedded covers with dhowden/tag on a background goroutine.
// SetSource and the accessors belong to the control loop; results are delivered
// back through the dispatcher.
type TagProbe struct {
	logger    *zap.Logger
	dispatch  Dispatcher
	processor domain.ImageProcessor
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	gen     uint64
	source  string
	tags    domain.ProbeTags
	cover   []byte
	handler func(domain.ProbeStatusEvent)
}

// NewTagProbe creates a probe. processor may be nil; when set, embedded covers
// go through it before being exposed.
func NewTagProbe(logger *zap.Logger, dispatch Dispatcher, processor domain.ImageProcessor) *TagProbe {
	ctx, cancel := context.WithCancel(context.Background())
	return &TagProbe{
		logger:    logger,
		dispatch:  dispatch,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnStatus registers the status handler
func (p *TagProbe) OnStatus(handler func(domain.ProbeStatusEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

// SetSource supersedes the current source and starts loading path.
// Loading and NoMedia are reported synchronously, the outcome is dispatched later.
func (p *TagProbe) SetSource(path string) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.source = path
	p.tags = domain.ProbeTags{}
	p.cover = nil
	handler := p.handler
	p.mu.Unlock()

	if path == "" {
		p.report(handler, domain.ProbeStatusEvent{Status: domain.ProbeNoMedia})
		return
	}
	p.report(handler, domain.ProbeStatusEvent{Source: path, Status: domain.ProbeLoading})

	p.wg.Add(1)
	go p.load(gen, path)
}

func (p *TagProbe) load(gen uint64, path string) {
	defer p.wg.Done()

	tags, cover, err := readTags(path)
	status := domain.ProbeLoaded
	if err != nil {
		p.logger.Debug("Tag read failed", zap.String("path", path), zap.Error(err))
		status = domain.ProbeInvalid
	}

	if len(cover) > 0 && p.processor != nil {
		processed, perr := p.processor.Process(p.ctx, cover)
		if perr != nil {
			p.logger.Debug("Keeping original cover", zap.String("path", path), zap.Error(perr))
		} else {
			cover = processed
		}
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	if status == domain.ProbeLoaded {
		p.tags = tags
		p.cover = cover
	}
	p.mu.Unlock()

	ev := domain.ProbeStatusEvent{Source: path, Status: status}
	p.dispatch(func() {
		// a newer SetSource may have run on the loop since the check above
		p.mu.Lock()
		current := p.gen == gen
		handler := p.handler
		p.mu.Unlock()
		if current {
			p.report(handler, ev)
		}
	})
}

func (p *TagProbe) report(handler func(domain.ProbeStatusEvent), ev domain.ProbeStatusEvent) {
	if handler != nil {
		handler(ev)
	}
}

// Source returns the path being loaded or last loaded
func (p *TagProbe) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Tags returns the tags of the current source once loaded
func (p *TagProbe) Tags() domain.ProbeTags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tags
}

// Cover returns the embedded cover of the current source once loaded
func (p *TagProbe) Cover() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cover
}

// Close waits for in-flight reads to finish
func (p *TagProbe) Close(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readTags extracts the tag fields and embedded picture of a file.
// Files without a recognizable tag block load with empty fields.
func readTags(path string) (domain.ProbeTags, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ProbeTags{}, nil, fmt.Errorf("failed to open media: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.ProbeTags{}, nil, fmt.Errorf("failed to stat media: %w", err)
	}
	if !info.Mode().IsRegular() {
		return domain.ProbeTags{}, nil, fmt.Errorf("not a regular file: %s", path)
	}

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return domain.ProbeTags{}, nil, nil
	}
	if err != nil {
		return domain.ProbeTags{}, nil, fmt.Errorf("failed to read tags: %w", err)
	}

	tags := domain.ProbeTags{
		Title:              m.Title(),
		Album:              m.Album(),
		AlbumArtist:        m.AlbumArtist(),
		ContributingArtist: m.Artist(),
	}

	var cover []byte
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		cover = pic.Data
	}
	return tags, cover, nil
}
