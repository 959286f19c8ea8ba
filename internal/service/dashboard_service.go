package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type sessionStatusCounter interface {
	CountByStatus(ctx context.Context, userID string) (map[models.SessionStatus]int, error)
}

type decisionCounter interface {
	CountByDecision(ctx context.Context, userID string) (map[models.Decision]int, error)
	ExpectedRevenue(ctx context.Context, userID string) (float64, error)
}

// Dashboard is the per-user home view payload.
type Dashboard struct {
	Sessions        map[models.SessionStatus]int `json:"sessions"`
	Decisions       map[models.Decision]int      `json:"decisions"`
	ExpectedRevenue float64                      `json:"expected_revenue"`
	Quota           models.QuotaStatus           `json:"quota"`
	UpcomingTasks   []models.ChallengeTask       `json:"upcoming_tasks"`
}

// DashboardService assembles cached per-user overview counters.
type DashboardService struct {
	sessions   sessionStatusCounter
	items      decisionCounter
	challenges *ChallengeService
	quota      *QuotaService
	cache      *CacheService
	logger     *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(sessions sessionStatusCounter, items decisionCounter, challenges *ChallengeService, quota *QuotaService, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		sessions:   sessions,
		items:      items,
		challenges: challenges,
		quota:      quota,
		cache:      cache,
		logger:     logger,
	}
}

// Get returns the dashboard, reading through the per-user cache. Any write
// elsewhere invalidates the whole user namespace, so a cached dashboard is
// never staler than the last mutation.
func (s *DashboardService) Get(ctx context.Context, userID string) (*Dashboard, error) {
	key := DashboardKey(userID)
	var cached Dashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	sessions, err := s.sessions.CountByStatus(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	decisions, err := s.items.CountByDecision(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count decisions")
	}
	revenue, err := s.items.ExpectedRevenue(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum expected revenue")
	}
	upcoming, err := s.challenges.Upcoming(ctx, userID, 5)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		Sessions:        sessions,
		Decisions:       decisions,
		ExpectedRevenue: revenue,
		Quota:           s.quota.Check(ctx, userID),
		UpcomingTasks:   upcoming,
	}
	_ = s.cache.Set(ctx, key, dashboard, 0)
	return dashboard, nil
}
