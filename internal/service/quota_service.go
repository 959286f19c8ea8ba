package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
)

type analysisCounter interface {
	CountSuccessfulAnalyses(ctx context.Context, userID string) (int, error)
}

type planCounter interface {
	CountPlansGenerated(ctx context.Context, userID string) (int, error)
}

// QuotaService is the ledger gating cost-bearing AI calls. Usage is
// recomputed by counting rows on every check; there is no stored counter
// to drift.
type QuotaService struct {
	items    analysisCounter
	sessions planCounter
	maxFree  int
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewQuotaService constructs the ledger. maxFree is injected so tests and
// deployments can vary the cap.
func NewQuotaService(items analysisCounter, sessions planCounter, maxFree int, metrics *MetricsService, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFree < 0 {
		maxFree = 0
	}
	return &QuotaService{items: items, sessions: sessions, maxFree: maxFree, metrics: metrics, logger: logger}
}

// Check reports the user's consumed free AI actions. It fails closed: any
// read failure yields CanUse=false rather than an error, because this gate
// protects a paid external call.
func (s *QuotaService) Check(ctx context.Context, userID string) models.QuotaStatus {
	status := models.QuotaStatus{MaxFree: s.maxFree}

	analyses, err := s.items.CountSuccessfulAnalyses(ctx, userID)
	if err != nil {
		s.logger.Warn("quota ledger read failed, failing closed", zap.String("user_id", userID), zap.Error(err))
		return status
	}
	plans, err := s.sessions.CountPlansGenerated(ctx, userID)
	if err != nil {
		s.logger.Warn("quota ledger read failed, failing closed", zap.String("user_id", userID), zap.Error(err))
		return status
	}

	status.AnalysesUsed = analyses
	status.PlansUsed = plans
	status.Total = analyses + plans
	status.CanUse = status.Total < s.maxFree
	return status
}

// Gate is Check plus the rejection metric, for callers about to spend an
// AI action.
func (s *QuotaService) Gate(ctx context.Context, userID string) models.QuotaStatus {
	status := s.Check(ctx, userID)
	if !status.CanUse {
		s.metrics.RecordQuotaRejection()
	}
	return status
}
