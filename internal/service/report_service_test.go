package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/export"
)

type mockReportSessions struct {
	session *models.Session
	agg     *models.SessionAggregates
	findErr error
}

func (m *mockReportSessions) FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.session, nil
}

func (m *mockReportSessions) Aggregates(ctx context.Context, sessionID string) (*models.SessionAggregates, error) {
	return m.agg, nil
}

type mockReportItems struct {
	items []models.Item
}

func (m *mockReportItems) ListBySession(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	return m.items, len(m.items), nil
}

type capturingPDF struct {
	data    export.Dataset
	title   string
	summary []string
}

func (c *capturingPDF) Render(data export.Dataset, title string, summary []string) ([]byte, error) {
	c.data = data
	c.title = title
	c.summary = summary
	return []byte("%PDF-rendered"), nil
}

func TestSessionReportRendersSummaryAndRows(t *testing.T) {
	price := 42.5
	decision := models.DecisionSell
	sessions := &mockReportSessions{
		session: &models.Session{ID: "s1", Title: "Spring clear-out", Scenario: models.ScenarioQuickListing, Status: models.SessionStatusActive},
		agg:     &models.SessionAggregates{ItemCount: 2, DecidedCount: 1, ExpectedRevenue: 42.5},
	}
	items := &mockReportItems{items: []models.Item{
		{Title: "Old lamp", AnalysisStatus: models.AnalysisSuccess, Decision: &decision, PriceMid: &price},
		{Title: "Winter coat", AnalysisStatus: models.AnalysisPending},
	}}
	pdf := &capturingPDF{}
	svc := NewReportService(sessions, items, pdf, zap.NewNop())

	out, err := svc.SessionReport(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	assert.Equal(t, "Spring clear-out", pdf.title)
	require.Len(t, pdf.summary, 4)
	assert.Contains(t, pdf.summary[2], "Items: 2 (decided: 1)")
	assert.Contains(t, pdf.summary[3], "42.50")

	require.Len(t, pdf.data.Rows, 2)
	assert.Equal(t, "Old lamp", pdf.data.Rows[0]["item"])
	assert.Equal(t, "sell", pdf.data.Rows[0]["decision"])
	assert.Equal(t, "42.50", pdf.data.Rows[0]["price"])
	assert.Equal(t, "", pdf.data.Rows[1]["decision"])
}

func TestSessionReportUnownedSession(t *testing.T) {
	sessions := &mockReportSessions{findErr: sql.ErrNoRows}
	svc := NewReportService(sessions, &mockReportItems{}, &capturingPDF{}, zap.NewNop())

	_, err := svc.SessionReport(context.Background(), "intruder", "s1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
