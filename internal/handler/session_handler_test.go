package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemore-app/lemore-api/internal/middleware"
	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/service"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type sessionServiceMock struct {
	createResp  *models.Session
	createErr   error
	getResp     *models.Session
	getErr      error
	listResp    []models.Session
	completeErr error
	planResp    *models.MovingPlan
	planErr     error

	lastUserID string
	lastCreate service.CreateSessionRequest
	lastFilter models.SessionFilter
}

func (m *sessionServiceMock) Create(ctx context.Context, userID string, req service.CreateSessionRequest) (*models.Session, error) {
	m.lastUserID = userID
	m.lastCreate = req
	return m.createResp, m.createErr
}

func (m *sessionServiceMock) Get(ctx context.Context, userID, id string) (*models.Session, error) {
	m.lastUserID = userID
	return m.getResp, m.getErr
}

func (m *sessionServiceMock) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *sessionServiceMock) Complete(ctx context.Context, userID, id string) error {
	return m.completeErr
}

func (m *sessionServiceMock) Archive(ctx context.Context, userID, id string) error {
	return m.completeErr
}

func (m *sessionServiceMock) GenerateMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error) {
	return m.planResp, m.planErr
}

func (m *sessionServiceMock) GetMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error) {
	return m.planResp, m.planErr
}

type reportServiceMock struct {
	data []byte
	err  error
}

func (m *reportServiceMock) SessionReport(ctx context.Context, userID, sessionID string) ([]byte, error) {
	return m.data, m.err
}

func testContext(t *testing.T, method, target string, body *bytes.Buffer) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	return c, w
}

func TestSessionHandlerCreate(t *testing.T) {
	mockSvc := &sessionServiceMock{createResp: &models.Session{ID: "sess-1", Scenario: models.ScenarioItemTriage}}
	handler := NewSessionHandler(mockSvc, &reportServiceMock{})

	body := bytes.NewBufferString(`{"scenario":"item-triage","title":"Spare room"}`)
	c, w := testContext(t, http.MethodPost, "/sessions", body)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u1", mockSvc.lastUserID)
	assert.Equal(t, "item-triage", mockSvc.lastCreate.Scenario)
	assert.Equal(t, "Spare room", mockSvc.lastCreate.Title)
}

func TestSessionHandlerCreateInvalidBody(t *testing.T) {
	handler := NewSessionHandler(&sessionServiceMock{}, &reportServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions", bytes.NewBufferString(`{"scenario":`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerListPassesFilter(t *testing.T) {
	mockSvc := &sessionServiceMock{}
	handler := NewSessionHandler(mockSvc, &reportServiceMock{})

	c, w := testContext(t, http.MethodGet, "/sessions?scenario=daily-challenge&status=active&page=2", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", mockSvc.lastFilter.UserID)
	assert.Equal(t, models.ScenarioDailyChallenge, mockSvc.lastFilter.Scenario)
	assert.Equal(t, models.SessionStatusActive, mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
}

func TestSessionHandlerCompletePropagatesError(t *testing.T) {
	mockSvc := &sessionServiceMock{completeErr: appErrors.ErrSessionNotActive}
	handler := NewSessionHandler(mockSvc, &reportServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Complete(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandlerMovingPlanQuota(t *testing.T) {
	mockSvc := &sessionServiceMock{planErr: appErrors.ErrQuotaExceeded}
	handler := NewSessionHandler(mockSvc, &reportServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/moving-plan", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.GenerateMovingPlan(c)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSessionHandlerReport(t *testing.T) {
	handler := NewSessionHandler(&sessionServiceMock{}, &reportServiceMock{data: []byte("%PDF-1.4")})

	c, w := testContext(t, http.MethodGet, "/sessions/sess-1/report", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Report(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "session-sess-1-report.pdf")
}
