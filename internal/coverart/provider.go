package coverart

import (
	"bytes"
	"image/color"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const placeholderSize = 256

var placeholderColor = color.NRGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}

// Provider serves cached covers to the presentation layer.
// Unknown keys get a neutral placeholder PNG.
type Provider struct {
	logger      *zap.Logger
	cache       *Cache
	once        sync.Once
	placeholder []byte
}

// NewProvider creates a provider reading from cache
func NewProvider(logger *zap.Logger, cache *Cache) *Provider {
	return &Provider{
		logger: logger,
		cache:  cache,
	}
}

// Image returns the cover stored under key, or the placeholder and false
func (p *Provider) Image(key string) ([]byte, bool) {
	if data, ok := p.cache.Lookup(key); ok {
		return data, true
	}
	return p.Placeholder(), false
}

// Placeholder returns the image shown for files without a cover
func (p *Provider) Placeholder() []byte {
	p.once.Do(func() {
		img := imaging.New(placeholderSize, placeholderSize, placeholderColor)
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			p.logger.Error("Failed to encode placeholder", zap.Error(err))
			return
		}
		p.placeholder = buf.Bytes()
	})
	return p.placeholder
}
