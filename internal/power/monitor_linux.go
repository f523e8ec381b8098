//go:build linux

package power

import (
	"github.com/genricoloni/mediashell/internal/domain"
	"go.uber.org/zap"
)

// NewMonitor returns the logind monitor
func NewMonitor(logger *zap.Logger, cfg domain.Config) domain.PowerMonitor {
	return NewLogindMonitor(logger, cfg.GetResumeDelay())
}
