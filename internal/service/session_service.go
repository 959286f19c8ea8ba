package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	UpdateStatus(ctx context.Context, id, userID string, status models.SessionStatus) error
	MarkPlanGenerated(ctx context.Context, id string) error
	Aggregates(ctx context.Context, sessionID string) (*models.SessionAggregates, error)
}

type challengeCreator interface {
	CreateBatch(ctx context.Context, tasks []models.ChallengeTask) error
}

type movingPlanStore interface {
	Create(ctx context.Context, plan *models.MovingPlan) error
	FindBySession(ctx context.Context, sessionID string) (*models.MovingPlan, error)
}

// The daily-challenge scenario is deliberately AI-free so quota-exhausted
// users keep a working feature. Prompts rotate through this fixed list.
var dailyChallengePrompts = []string{
	"Pick one drawer and empty it completely",
	"Find three items you have not used in a year",
	"Clear every flat surface in one room",
	"Choose one shelf and keep only what you love",
	"Gather five items to donate",
	"Photograph one item you could sell",
	"Let go of one thing you keep out of guilt",
}

const dailyChallengeTip = "Small, consistent steps beat marathon sessions. Ten minutes a day is enough."

// SessionService handles declutter session workflows.
type SessionService struct {
	repo       sessionRepository
	challenges challengeCreator
	plans      movingPlanStore
	quota      *QuotaService
	gateway    ai.Gateway
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(repo sessionRepository, challenges challengeCreator, plans movingPlanStore, quota *QuotaService, gateway ai.Gateway, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:       repo,
		challenges: challenges,
		plans:      plans,
		quota:      quota,
		gateway:    gateway,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// CreateSessionRequest describes the create payload.
type CreateSessionRequest struct {
	Scenario     string     `json:"scenario" validate:"required"`
	Title        string     `json:"title"`
	MoveDate     *time.Time `json:"move_date"`
	Region       *string    `json:"region"`
	TradeMethod  *string    `json:"trade_method"`
	DurationDays int        `json:"duration_days"`
}

// Create starts a new session. The daily-challenge scenario also
// synthesizes one canned task per day for the requested duration.
func (s *SessionService) Create(ctx context.Context, userID string, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	scenario := models.Scenario(req.Scenario)
	if !models.KnownScenario(scenario) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown scenario %q", req.Scenario))
	}
	if scenario != models.ScenarioMovingAssistant && (req.MoveDate != nil || req.Region != nil || req.TradeMethod != nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "move fields are only valid for the moving-assistant scenario")
	}

	title := req.Title
	if title == "" {
		title = defaultTitle(scenario)
	}

	session := &models.Session{
		UserID:      userID,
		Scenario:    scenario,
		Title:       title,
		Status:      models.SessionStatusActive,
		MoveDate:    req.MoveDate,
		Region:      req.Region,
		TradeMethod: req.TradeMethod,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	if scenario == models.ScenarioDailyChallenge {
		if err := s.createDailyChallengeTasks(ctx, session, req.DurationDays); err != nil {
			return nil, err
		}
	}

	return session, nil
}

func (s *SessionService) createDailyChallengeTasks(ctx context.Context, session *models.Session, days int) error {
	if days <= 0 {
		days = 7
	}
	if days > 30 {
		days = 30
	}
	start := time.Now().UTC().Truncate(24 * time.Hour)
	tip := dailyChallengeTip
	tasks := make([]models.ChallengeTask, 0, days)
	for i := 0; i < days; i++ {
		prompt := dailyChallengePrompts[i%len(dailyChallengePrompts)]
		tasks = append(tasks, models.ChallengeTask{
			UserID:      session.UserID,
			SessionID:   &session.ID,
			Name:        prompt,
			ScheduledAt: start.AddDate(0, 0, i),
			Tip:         &tip,
		})
	}
	if err := s.challenges.CreateBatch(ctx, tasks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule daily challenges")
	}
	return nil
}

// Get returns a session with its derived counters.
func (s *SessionService) Get(ctx context.Context, userID, id string) (*models.Session, error) {
	session, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	agg, err := s.aggregates(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	session.Aggregates = agg
	return session, nil
}

func (s *SessionService) aggregates(ctx context.Context, userID, sessionID string) (*models.SessionAggregates, error) {
	key := SessionAggregatesKey(userID, sessionID)
	var cached models.SessionAggregates
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	agg, err := s.repo.Aggregates(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute session counters")
	}
	_ = s.cache.Set(ctx, key, agg, 0)
	return agg, nil
}

// List returns the user's sessions with pagination.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Complete moves an active session to completed.
func (s *SessionService) Complete(ctx context.Context, userID, id string) error {
	return s.transition(ctx, userID, id, models.SessionStatusCompleted)
}

// Archive moves an active session to archived.
func (s *SessionService) Archive(ctx context.Context, userID, id string) error {
	return s.transition(ctx, userID, id, models.SessionStatusArchived)
}

// transition applies the one-way active→{completed,archived} write. A
// non-owned id reports not found, never forbidden.
func (s *SessionService) transition(ctx context.Context, userID, id string, status models.SessionStatus) error {
	err := s.repo.UpdateStatus(ctx, id, userID, status)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	if _, lookupErr := s.repo.FindByIDForUser(ctx, id, userID); lookupErr != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return appErrors.Clone(appErrors.ErrSessionNotActive, "session already completed or archived")
}

// GenerateMovingPlan asks the AI gateway for a week-by-week plan, stores
// it and spreads the tasks across the calendar. Quota gated.
func (s *SessionService) GenerateMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error) {
	session, err := s.repo.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Scenario != models.ScenarioMovingAssistant {
		return nil, appErrors.Clone(appErrors.ErrValidation, "moving plans require a moving-assistant session")
	}
	if session.Status != models.SessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrSessionNotActive, "session is not active")
	}

	if status := s.quota.Gate(ctx, userID); !status.CanUse {
		return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "free AI usage limit reached; the moving plan was not generated")
	}

	moveDate := time.Now().UTC().AddDate(0, 1, 0)
	if session.MoveDate != nil {
		moveDate = *session.MoveDate
	}
	mc := ai.MovingContext{MoveDate: moveDate, Weeks: planWeeksUntil(moveDate)}
	if session.Region != nil {
		mc.Region = *session.Region
	}
	if session.TradeMethod != nil {
		mc.TradeMethod = *session.TradeMethod
	}

	start := time.Now()
	weeks, err := s.gateway.BuildMovingPlan(ctx, mc)
	s.metrics.ObserveAIRequest("moving_plan", outcomeLabel(err), time.Since(start))
	if err != nil {
		s.logger.Warn("moving plan generation failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrAIUnavailable.Code, appErrors.ErrAIUnavailable.Status, "moving plan generation failed")
	}

	raw, err := json.Marshal(struct {
		Weeks []ai.PlanWeek `json:"weeks"`
	}{Weeks: weeks})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode moving plan")
	}
	plan := &models.MovingPlan{SessionID: sessionID, Plan: raw}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store moving plan")
	}
	if err := s.repo.MarkPlanGenerated(ctx, sessionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark plan generated")
	}

	if err := s.schedulePlanTasks(ctx, session, weeks); err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(ctx, userID)
	return plan, nil
}

// schedulePlanTasks flattens plan weeks into dated tasks: each week's
// tasks land on consecutive days from that week's start.
func (s *SessionService) schedulePlanTasks(ctx context.Context, session *models.Session, weeks []ai.PlanWeek) error {
	base := time.Now().UTC().Truncate(24 * time.Hour)
	var tasks []models.ChallengeTask
	for _, week := range weeks {
		weekIndex := week.Week - 1
		if weekIndex < 0 {
			weekIndex = 0
		}
		weekStart := base.AddDate(0, 0, weekIndex*7)
		for i, name := range week.Tasks {
			if name == "" {
				continue
			}
			tasks = append(tasks, models.ChallengeTask{
				UserID:      session.UserID,
				SessionID:   &session.ID,
				Name:        name,
				ScheduledAt: weekStart.AddDate(0, 0, i),
			})
		}
	}
	if len(tasks) == 0 {
		return nil
	}
	if err := s.challenges.CreateBatch(ctx, tasks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule moving plan tasks")
	}
	return nil
}

// GetMovingPlan returns the latest generated plan for an owned session.
func (s *SessionService) GetMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error) {
	if _, err := s.repo.FindByIDForUser(ctx, sessionID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	plan, err := s.plans.FindBySession(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no moving plan generated yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load moving plan")
	}
	return plan, nil
}

func defaultTitle(scenario models.Scenario) string {
	switch scenario {
	case models.ScenarioMovingAssistant:
		return "Moving preparation"
	case models.ScenarioDailyChallenge:
		return "Daily declutter challenge"
	case models.ScenarioQuickListing:
		return "Quick listing"
	default:
		return "Declutter session"
	}
}

func planWeeksUntil(moveDate time.Time) int {
	days := int(time.Until(moveDate).Hours() / 24)
	weeks := days / 7
	if weeks < 1 {
		weeks = 1
	}
	if weeks > 12 {
		weeks = 12
	}
	return weeks
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
