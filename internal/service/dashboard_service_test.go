package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type mockStatusCounter struct {
	counts map[models.SessionStatus]int
	err    error
	calls  int
}

func (m *mockStatusCounter) CountByStatus(ctx context.Context, userID string) (map[models.SessionStatus]int, error) {
	m.calls++
	return m.counts, m.err
}

type mockDecisionCounter struct {
	counts  map[models.Decision]int
	revenue float64
	err     error
}

func (m *mockDecisionCounter) CountByDecision(ctx context.Context, userID string) (map[models.Decision]int, error) {
	return m.counts, m.err
}

func (m *mockDecisionCounter) ExpectedRevenue(ctx context.Context, userID string) (float64, error) {
	return m.revenue, nil
}

// memoryCache is an in-process CacheRepository for exercising the
// read-through path without Redis.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = map[string][]byte{}
	return nil
}

func newDashboardFixture(sessions *mockStatusCounter, items *mockDecisionCounter, cacheRepo CacheRepository) *DashboardService {
	counts := &mockQuotaCounts{analyses: 1}
	quota := NewQuotaService(counts, counts, 5, nil, zap.NewNop())
	challenges := newChallengeService(&mockChallengeRepo{
		listed: []models.ChallengeTask{{ID: "t1", UserID: "u1", Name: "Clear one drawer"}},
	})
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop())
	return NewDashboardService(sessions, items, challenges, quota, cache, zap.NewNop())
}

func TestDashboardAssemblesCounters(t *testing.T) {
	sessions := &mockStatusCounter{counts: map[models.SessionStatus]int{models.SessionStatusActive: 2}}
	items := &mockDecisionCounter{counts: map[models.Decision]int{models.DecisionSell: 3}, revenue: 120.5}
	svc := newDashboardFixture(sessions, items, nil)

	dashboard, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.Sessions[models.SessionStatusActive])
	assert.Equal(t, 3, dashboard.Decisions[models.DecisionSell])
	assert.Equal(t, 120.5, dashboard.ExpectedRevenue)
	assert.Equal(t, 1, dashboard.Quota.Total)
	assert.True(t, dashboard.Quota.CanUse)
	assert.Len(t, dashboard.UpcomingTasks, 1)
}

func TestDashboardServedFromCacheOnSecondRead(t *testing.T) {
	sessions := &mockStatusCounter{counts: map[models.SessionStatus]int{models.SessionStatusActive: 1}}
	items := &mockDecisionCounter{counts: map[models.Decision]int{}}
	svc := newDashboardFixture(sessions, items, newMemoryCache())

	_, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	dashboard, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 1, dashboard.Sessions[models.SessionStatusActive])
}

func TestDashboardCounterFailure(t *testing.T) {
	sessions := &mockStatusCounter{err: fmt.Errorf("db down")}
	items := &mockDecisionCounter{}
	svc := newDashboardFixture(sessions, items, nil)

	_, err := svc.Get(context.Background(), "u1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
