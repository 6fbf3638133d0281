package scanner

import (
	"context"

	"github.com/vallemsec/spectra-web/internal/config"
	"go.uber.org/zap"
)

// Source supplies scan results for a target. Exactly one implementation is
// selected per process: the live Client or the FixtureSource.
type Source interface {
	DomainScan(ctx context.Context, target string) (ScanResult, error)
	EmailScan(ctx context.Context, target string) (EmailLeakResult, error)
}

// NewSource picks the source for cfg.Mode.
func NewSource(cfg config.Config, logger *zap.Logger, metrics *Metrics) Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Live() {
		logger.Info("scanner_source", zap.String("mode", string(cfg.Mode)), zap.String("endpoint", cfg.ScannerEndpoint))
		return NewClient(cfg.ScannerEndpoint, cfg.RequestTimeout,
			WithLogger(logger),
			WithMetrics(metrics),
		)
	}
	logger.Info("scanner_source", zap.String("mode", string(cfg.Mode)), zap.String("fixture_dir", cfg.FixtureDir))
	return NewFixtureSource(cfg.FixtureDir)
}
