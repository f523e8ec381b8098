//go:build !linux

package power

import (
	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/zap"
)

// NewMonitor returns a silent monitor; only logind is supported for now
func NewMonitor(logger *zap.Logger, cfg domain.Config) domain.PowerMonitor {
	return NewNoopMonitor(logger)
}
