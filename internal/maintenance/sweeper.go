package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/pkg/config"
)

type staleAnalysisStore interface {
	FailStaleAnalyzing(ctx context.Context, olderThan time.Duration, rationale string) (int64, error)
}

type photoPathStore interface {
	AllPaths(ctx context.Context) (map[string]struct{}, error)
}

type uploadStore interface {
	CleanupOlderThan(ttl time.Duration, keep func(rel string) bool) ([]string, error)
}

const staleAnalysisRationale = "analysis timed out; retry when ready"

// Sweeper runs the periodic repair jobs: failing items stuck in analyzing
// and deleting upload files no photo row references anymore.
type Sweeper struct {
	cfg     config.MaintenanceConfig
	items   staleAnalysisStore
	photos  photoPathStore
	uploads uploadStore
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewSweeper constructs the sweeper.
func NewSweeper(cfg config.MaintenanceConfig, items staleAnalysisStore, photos photoPathStore, uploads uploadStore, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cfg:     cfg,
		items:   items,
		photos:  photos,
		uploads: uploads,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the cron entries and begins scheduling.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("maintenance sweeps disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.StaleAnalysisSpec, func() { s.SweepStaleAnalyses(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.OrphanSweepSpec, func() { s.SweepOrphanFiles(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("maintenance sweeps scheduled",
		zap.String("stale_analysis", s.cfg.StaleAnalysisSpec),
		zap.String("orphan_files", s.cfg.OrphanSweepSpec))
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepStaleAnalyses fails items stuck in analyzing beyond the TTL so the
// retry action becomes available again. A crashed worker otherwise leaves
// the item unrecoverable.
func (s *Sweeper) SweepStaleAnalyses(ctx context.Context) {
	swept, err := s.items.FailStaleAnalyzing(ctx, s.cfg.StaleAnalysisTTL, staleAnalysisRationale)
	if err != nil {
		s.logger.Error("stale analysis sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		s.logger.Info("stale analyses failed", zap.Int64("count", swept))
	}
}

// SweepOrphanFiles removes upload files old enough to be settled that no
// photo row references. Files younger than the TTL are skipped so an
// in-flight upload is never raced.
func (s *Sweeper) SweepOrphanFiles(ctx context.Context) {
	keep, err := s.photos.AllPaths(ctx)
	if err != nil {
		s.logger.Error("orphan sweep could not load photo paths", zap.Error(err))
		return
	}
	deleted, err := s.uploads.CleanupOlderThan(s.cfg.OrphanFileTTL, func(rel string) bool {
		_, ok := keep[rel]
		return ok
	})
	if err != nil {
		s.logger.Error("orphan sweep failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("orphaned upload files removed", zap.Int("count", len(deleted)))
	}
}
