package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *models.Session) error
	findFn           func(ctx context.Context, id, userID string) (*models.Session, error)
	listFn           func(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	updateStatusFn   func(ctx context.Context, id, userID string, status models.SessionStatus) error
	markPlanFn       func(ctx context.Context, id string) error
	aggregatesFn     func(ctx context.Context, sessionID string) (*models.SessionAggregates, error)
	markPlanCalled   bool
	updateStatusArgs models.SessionStatus
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	session.ID = "sess-1"
	return nil
}

func (m *mockSessionRepo) FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id, userID)
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id, userID string, status models.SessionStatus) error {
	m.updateStatusArgs = status
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, userID, status)
	}
	return nil
}

func (m *mockSessionRepo) MarkPlanGenerated(ctx context.Context, id string) error {
	m.markPlanCalled = true
	if m.markPlanFn != nil {
		return m.markPlanFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) Aggregates(ctx context.Context, sessionID string) (*models.SessionAggregates, error) {
	if m.aggregatesFn != nil {
		return m.aggregatesFn(ctx, sessionID)
	}
	return &models.SessionAggregates{}, nil
}

type mockChallengeCreator struct {
	batches [][]models.ChallengeTask
	err     error
}

func (m *mockChallengeCreator) CreateBatch(ctx context.Context, tasks []models.ChallengeTask) error {
	m.batches = append(m.batches, tasks)
	return m.err
}

type mockPlanStore struct {
	created *models.MovingPlan
	found   *models.MovingPlan
	findErr error
}

func (m *mockPlanStore) Create(ctx context.Context, plan *models.MovingPlan) error {
	plan.ID = "plan-1"
	m.created = plan
	return nil
}

func (m *mockPlanStore) FindBySession(ctx context.Context, sessionID string) (*models.MovingPlan, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.found, nil
}

type stubGateway struct {
	classifyCalls int
	priceCalls    int
	listingCalls  int
	planCalls     int
	planWeeks     []ai.PlanWeek
	planErr       error
}

func (g *stubGateway) ClassifyItem(ctx context.Context, item ai.ItemContext) (*ai.Classification, error) {
	g.classifyCalls++
	return &ai.Classification{Recommendation: "keep"}, nil
}

func (g *stubGateway) SuggestPrice(ctx context.Context, item ai.ItemContext) (*ai.PriceSuggestion, error) {
	g.priceCalls++
	return &ai.PriceSuggestion{Low: 1, Mid: 2, High: 3, Confidence: 0.5}, nil
}

func (g *stubGateway) ComposeListing(ctx context.Context, req ai.ListingRequest) (*ai.ListingCopy, error) {
	g.listingCalls++
	return &ai.ListingCopy{Title: req.Title, Body: "body"}, nil
}

func (g *stubGateway) BuildMovingPlan(ctx context.Context, mc ai.MovingContext) ([]ai.PlanWeek, error) {
	g.planCalls++
	return g.planWeeks, g.planErr
}

func newSessionService(repo *mockSessionRepo, creator *mockChallengeCreator, plans *mockPlanStore, quotaCounts *mockQuotaCounts, gw ai.Gateway) *SessionService {
	if quotaCounts == nil {
		quotaCounts = &mockQuotaCounts{}
	}
	quota := NewQuotaService(quotaCounts, quotaCounts, 2, nil, zap.NewNop())
	cache := NewCacheService(nil, nil, 0, zap.NewNop())
	return NewSessionService(repo, creator, plans, quota, gw, cache, nil, nil, zap.NewNop())
}

func TestCreateSessionRejectsUnknownScenario(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	_, err := svc.Create(context.Background(), "u1", CreateSessionRequest{Scenario: "spring-cleaning"})

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateSessionRejectsMoveFieldsOutsideMovingAssistant(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	region := "Seoul"
	_, err := svc.Create(context.Background(), "u1", CreateSessionRequest{
		Scenario: string(models.ScenarioItemTriage),
		Region:   &region,
	})

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateSessionDefaultsTitle(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	session, err := svc.Create(context.Background(), "u1", CreateSessionRequest{Scenario: string(models.ScenarioItemTriage)})
	assert.NoError(t, err)
	assert.Equal(t, "Declutter session", session.Title)
	assert.Equal(t, models.SessionStatusActive, session.Status)
}

func TestCreateDailyChallengeSynthesizesTasksWithoutAI(t *testing.T) {
	gw := &stubGateway{}
	creator := &mockChallengeCreator{}
	counts := &mockQuotaCounts{analyses: 5} // quota exhausted must not matter
	svc := newSessionService(&mockSessionRepo{}, creator, &mockPlanStore{}, counts, gw)

	session, err := svc.Create(context.Background(), "u1", CreateSessionRequest{
		Scenario:     string(models.ScenarioDailyChallenge),
		DurationDays: 10,
	})
	assert.NoError(t, err)

	assert.Equal(t, 0, gw.classifyCalls+gw.priceCalls+gw.listingCalls+gw.planCalls,
		"daily challenge must never reach the AI gateway")
	if assert.Len(t, creator.batches, 1) {
		tasks := creator.batches[0]
		assert.Len(t, tasks, 10)
		for i, task := range tasks {
			assert.Equal(t, "u1", task.UserID)
			assert.Equal(t, session.ID, *task.SessionID)
			assert.Equal(t, dailyChallengePrompts[i%len(dailyChallengePrompts)], task.Name)
			assert.NotNil(t, task.Tip)
			if i > 0 {
				assert.Equal(t, 24*time.Hour, tasks[i].ScheduledAt.Sub(tasks[i-1].ScheduledAt))
			}
		}
	}
}

func TestCreateDailyChallengeClampsDuration(t *testing.T) {
	creator := &mockChallengeCreator{}
	svc := newSessionService(&mockSessionRepo{}, creator, &mockPlanStore{}, nil, &stubGateway{})

	_, err := svc.Create(context.Background(), "u1", CreateSessionRequest{
		Scenario:     string(models.ScenarioDailyChallenge),
		DurationDays: 90,
	})
	assert.NoError(t, err)
	assert.Len(t, creator.batches[0], 30)

	creator.batches = nil
	_, err = svc.Create(context.Background(), "u1", CreateSessionRequest{
		Scenario: string(models.ScenarioDailyChallenge),
	})
	assert.NoError(t, err)
	assert.Len(t, creator.batches[0], 7)
}

func TestCompleteSessionNotFound(t *testing.T) {
	repo := &mockSessionRepo{
		updateStatusFn: func(ctx context.Context, id, userID string, status models.SessionStatus) error {
			return sql.ErrNoRows
		},
	}
	svc := newSessionService(repo, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	err := svc.Complete(context.Background(), "u1", "missing")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCompleteSessionAlreadyClosed(t *testing.T) {
	repo := &mockSessionRepo{
		updateStatusFn: func(ctx context.Context, id, userID string, status models.SessionStatus) error {
			return sql.ErrNoRows
		},
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return &models.Session{ID: id, UserID: userID, Status: models.SessionStatusCompleted}, nil
		},
	}
	svc := newSessionService(repo, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	err := svc.Archive(context.Background(), "u1", "sess-1")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSessionNotActive.Code, appErr.Code)
}

func TestGetSessionAttachesAggregates(t *testing.T) {
	repo := &mockSessionRepo{
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return &models.Session{ID: id, UserID: userID, Status: models.SessionStatusActive}, nil
		},
		aggregatesFn: func(ctx context.Context, sessionID string) (*models.SessionAggregates, error) {
			return &models.SessionAggregates{ItemCount: 4, DecidedCount: 2, ExpectedRevenue: 120.5}, nil
		},
	}
	svc := newSessionService(repo, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	session, err := svc.Get(context.Background(), "u1", "sess-1")
	assert.NoError(t, err)
	if assert.NotNil(t, session.Aggregates) {
		assert.Equal(t, 4, session.Aggregates.ItemCount)
		assert.Equal(t, 2, session.Aggregates.DecidedCount)
		assert.Equal(t, 120.5, session.Aggregates.ExpectedRevenue)
	}
}

func activeMovingSession(id, userID string) *models.Session {
	moveDate := time.Now().UTC().AddDate(0, 0, 21)
	return &models.Session{
		ID:       id,
		UserID:   userID,
		Scenario: models.ScenarioMovingAssistant,
		Status:   models.SessionStatusActive,
		MoveDate: &moveDate,
	}
}

func TestGenerateMovingPlanQuotaExceeded(t *testing.T) {
	repo := &mockSessionRepo{
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return activeMovingSession(id, userID), nil
		},
	}
	gw := &stubGateway{}
	counts := &mockQuotaCounts{analyses: 2}
	svc := newSessionService(repo, &mockChallengeCreator{}, &mockPlanStore{}, counts, gw)

	_, err := svc.GenerateMovingPlan(context.Background(), "u1", "sess-1")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErr.Code)
	assert.Equal(t, 0, gw.planCalls, "gateway must not be reached past the quota gate")
}

func TestGenerateMovingPlanRejectsWrongScenario(t *testing.T) {
	repo := &mockSessionRepo{
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return &models.Session{ID: id, UserID: userID, Scenario: models.ScenarioItemTriage, Status: models.SessionStatusActive}, nil
		},
	}
	svc := newSessionService(repo, &mockChallengeCreator{}, &mockPlanStore{}, nil, &stubGateway{})

	_, err := svc.GenerateMovingPlan(context.Background(), "u1", "sess-1")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerateMovingPlanSchedulesTasks(t *testing.T) {
	repo := &mockSessionRepo{
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return activeMovingSession(id, userID), nil
		},
	}
	creator := &mockChallengeCreator{}
	plans := &mockPlanStore{}
	gw := &stubGateway{planWeeks: []ai.PlanWeek{
		{Week: 1, Theme: "Sort", Tasks: []string{"Sort the closet", "Sort the kitchen"}},
		{Week: 2, Theme: "Sell", Tasks: []string{"List the sofa"}},
	}}
	svc := newSessionService(repo, creator, plans, nil, gw)

	plan, err := svc.GenerateMovingPlan(context.Background(), "u1", "sess-1")
	assert.NoError(t, err)
	assert.NotNil(t, plan)
	assert.NotNil(t, plans.created)
	assert.True(t, repo.markPlanCalled)

	if assert.Len(t, creator.batches, 1) {
		tasks := creator.batches[0]
		assert.Len(t, tasks, 3)
		// week 2 tasks start seven days after week 1
		assert.Equal(t, 7*24*time.Hour, tasks[2].ScheduledAt.Sub(tasks[0].ScheduledAt))
	}
}

func TestGenerateMovingPlanGatewayFailure(t *testing.T) {
	repo := &mockSessionRepo{
		findFn: func(ctx context.Context, id, userID string) (*models.Session, error) {
			return activeMovingSession(id, userID), nil
		},
	}
	plans := &mockPlanStore{}
	gw := &stubGateway{planErr: errors.New("upstream timeout")}
	svc := newSessionService(repo, &mockChallengeCreator{}, plans, nil, gw)

	_, err := svc.GenerateMovingPlan(context.Background(), "u1", "sess-1")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAIUnavailable.Code, appErr.Code)
	assert.Nil(t, plans.created, "no plan row on gateway failure")
	assert.False(t, repo.markPlanCalled)
}
