// Package metadata turns media probe lifecycle events into a stable record for the current file.
package metadata

import (
	"path/filepath"
	"strings"

	"github.com/genricoloni/mediashell/internal/coverart"
	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/zap"
)

// Pipeline tracks the metadata of the most recently requested file.
// All methods must run on the control loop.
type Pipeline struct {
	logger    *zap.Logger
	probe     domain.MediaProbe
	store     domain.CoverStore
	state     domain.MetadataState
	record    domain.MetadataRecord
	requested string
	onChange  func()
}

// NewPipeline creates a pipeline and registers it as the probe's status handler
func NewPipeline(logger *zap.Logger, probe domain.MediaProbe, store domain.CoverStore) *Pipeline {
	p := &Pipeline{
		logger: logger,
		probe:  probe,
		store:  store,
		state:  domain.StateIdle,
	}
	probe.OnStatus(p.HandleStatus)
	return p
}

// OnChange registers the callback fired after each committed record change
func (p *Pipeline) OnChange(fn func()) {
	p.onChange = fn
}

// LoadMetadata clears the record and starts extraction for path.
// Results still in flight for an earlier path are discarded when they arrive.
// An empty path returns the pipeline to Idle.
func (p *Pipeline) LoadMetadata(path string) {
	p.requested = path
	p.record = domain.MetadataRecord{}

	if path == "" {
		p.state = domain.StateIdle
		p.notify()
		return
	}

	p.state = domain.StateExtracting
	p.notify()

	p.logger.Debug("Extracting metadata", zap.String("path", path))
	p.probe.SetSource(path)
}

// HandleStatus consumes a probe status event
func (p *Pipeline) HandleStatus(ev domain.ProbeStatusEvent) {
	if p.state != domain.StateExtracting || ev.Source != p.requested {
		p.logger.Debug("Discarding stale probe status",
			zap.String("source", ev.Source),
			zap.String("requested", p.requested),
			zap.String("status", string(ev.Status)))
		return
	}

	switch ev.Status {
	case domain.ProbeLoaded:
		p.complete()
	case domain.ProbeInvalid, domain.ProbeNoMedia:
		// stays Extracting until another file is requested
		p.logger.Warn("Metadata extraction failed",
			zap.String("path", ev.Source),
			zap.String("status", string(ev.Status)))
	default:
		p.logger.Debug("Probe status", zap.String("path", ev.Source), zap.String("status", string(ev.Status)))
	}
}

func (p *Pipeline) complete() {
	tags := p.probe.Tags()

	record := domain.MetadataRecord{
		Title:  tags.Title,
		Album:  tags.Album,
		Artist: tags.AlbumArtist,
	}
	if record.Artist == "" {
		record.Artist = tags.ContributingArtist
	}
	if record.Title == "" {
		record.Title = displayTitle(p.requested)
	}

	if cover := p.probe.Cover(); len(cover) > 0 {
		key := coverart.Key(p.requested)
		p.store.Store(key, cover)
		record.CoverArtKey = key
	}

	p.record = record
	p.state = domain.StateReady

	p.logger.Info("Metadata ready",
		zap.String("title", record.Title),
		zap.String("artist", record.Artist),
		zap.String("album", record.Album),
		zap.Bool("cover", record.CoverArtKey != ""))
	p.notify()
}

// Record returns the current metadata record
func (p *Pipeline) Record() domain.MetadataRecord {
	return p.record
}

// State returns the extraction state
func (p *Pipeline) State() domain.MetadataState {
	return p.state
}

// RequestedPath returns the path of the most recent LoadMetadata call
func (p *Pipeline) RequestedPath() string {
	return p.requested
}

func (p *Pipeline) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}

// displayTitle is the file name without its extension
func displayTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
