package learning

import (
	"context"
	"log/slog"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/lifecycle"
)

// Schedule runs the pipeline on cfg's interval until lc shuts down.
// Nothing is scheduled when learning is disabled.
func Schedule(lc *lifecycle.Coordinator, p *Pipeline, cfg *Config, logger *slog.Logger) {
	if !cfg.IsEnabled() {
		logger.Info("scheduled learning disabled")
		return
	}

	interval := cfg.IntervalDuration()
	lc.Every(interval, func(ctx context.Context) {
		if _, err := p.Run(ctx, cfg.WindowDays); err != nil {
			logger.Error("scheduled learning run failed", "error", err)
		}
	})
	logger.Info("learning scheduled", "interval", interval, "window_days", cfg.WindowDays)
}
