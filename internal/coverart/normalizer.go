package coverart

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG format support

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const jpegQuality = 90

// Normalizer shrinks oversized embedded covers before they are cached
type Normalizer struct {
	logger  *zap.Logger
	maxEdge int
}

// NewNormalizer creates a normalizer. maxEdge <= 0 disables resizing.
func NewNormalizer(logger *zap.Logger, maxEdge int) *Normalizer {
	return &Normalizer{
		logger:  logger,
		maxEdge: maxEdge,
	}
}

// Process returns imageData unchanged when it already fits, otherwise a JPEG
// scaled down so its longest edge equals maxEdge.
func (n *Normalizer) Process(ctx context.Context, imageData []byte) ([]byte, error) {
	if n.maxEdge <= 0 {
		return imageData, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= n.maxEdge && cfg.Height <= n.maxEdge {
		return imageData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Validate image dimensions to prevent division by zero
	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.logger.Debug("Resizing cover",
		zap.Int("w", bounds.Dx()),
		zap.Int("h", bounds.Dy()),
		zap.Int("maxEdge", n.maxEdge))
	resized := imaging.Fit(img, n.maxEdge, n.maxEdge, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	n.logger.Debug("Cover resized", zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
