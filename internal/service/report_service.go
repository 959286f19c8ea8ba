package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/export"
)

type reportSessionSource interface {
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error)
	Aggregates(ctx context.Context, sessionID string) (*models.SessionAggregates, error)
}

type reportItemSource interface {
	ListBySession(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, summary []string) ([]byte, error)
}

// ReportService renders a downloadable PDF summary of one session: the
// headline counters followed by an item table.
type ReportService struct {
	sessions reportSessionSource
	items    reportItemSource
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(sessions reportSessionSource, items reportItemSource, pdf pdfRenderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{sessions: sessions, items: items, pdf: pdf, logger: logger}
}

// SessionReport renders the PDF for an owned session.
func (s *ReportService) SessionReport(ctx context.Context, userID, sessionID string) ([]byte, error) {
	session, err := s.sessions.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	agg, err := s.sessions.Aggregates(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute session counters")
	}

	var rows []map[string]string
	filter := models.ItemFilter{SessionID: sessionID, Page: 1, PageSize: 100}
	for {
		items, total, err := s.items.ListBySession(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
		}
		for _, item := range items {
			rows = append(rows, reportRow(item))
		}
		if filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	summary := []string{
		fmt.Sprintf("Scenario: %s", session.Scenario),
		fmt.Sprintf("Status: %s", session.Status),
		fmt.Sprintf("Items: %d (decided: %d)", agg.ItemCount, agg.DecidedCount),
		fmt.Sprintf("Expected revenue: %.2f", agg.ExpectedRevenue),
	}
	data := export.Dataset{
		Headers: []string{"item", "status", "recommendation", "decision", "price"},
		Rows:    rows,
	}
	out, err := s.pdf.Render(data, session.Title, summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return out, nil
}

func reportRow(item models.Item) map[string]string {
	row := map[string]string{
		"item":           item.Title,
		"status":         string(item.AnalysisStatus),
		"recommendation": "",
		"decision":       "",
		"price":          "",
	}
	if item.Recommendation != nil {
		row["recommendation"] = *item.Recommendation
	}
	if item.Decision != nil {
		row["decision"] = string(*item.Decision)
	}
	if item.PriceMid != nil {
		row["price"] = fmt.Sprintf("%.2f", *item.PriceMid)
	}
	return row
}
