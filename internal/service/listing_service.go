package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
)

type listingRepository interface {
	CreateBatch(ctx context.Context, listings []models.Listing) error
	ListByItem(ctx context.Context, itemID string) ([]models.Listing, error)
}

type itemLookup interface {
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Item, error)
}

// ListingService turns items into marketplace copy. Listing generation is
// not quota gated; the AI metric counters keep its spend visible until a
// pricing decision is made.
type ListingService struct {
	listings  listingRepository
	items     itemLookup
	gateway   ai.Gateway
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewListingService constructs the service.
func NewListingService(listings listingRepository, items itemLookup, gateway ai.Gateway, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ListingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingService{
		listings:  listings,
		items:     items,
		gateway:   gateway,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// GenerateListingRequest describes the generation payload. ItemID is
// optional: without one the listings are grouped under a fresh standalone
// id, unattached to any declutter item.
type GenerateListingRequest struct {
	ItemID    string   `json:"item_id"`
	Title     string   `json:"title" validate:"required"`
	Condition string   `json:"condition"`
	Features  string   `json:"features"`
	Tone      string   `json:"tone"`
	Languages []string `json:"languages"`
	Channels  []string `json:"channels"`
}

// Generate produces one listing per requested language and stores them.
// Languages default to English; a failed language fails the whole request
// so the user never receives a partial set silently.
func (s *ListingService) Generate(ctx context.Context, userID string, req GenerateListingRequest) ([]models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	scopeID := req.ItemID
	if scopeID != "" {
		if _, err := s.items.FindByIDForUser(ctx, scopeID, userID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
		}
	} else {
		scopeID = uuid.NewString()
	}

	languages := req.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}

	listings := make([]models.Listing, 0, len(languages))
	for _, lang := range languages {
		start := time.Now()
		copyReq := ai.ListingRequest{
			Title:     req.Title,
			Condition: req.Condition,
			Features:  req.Features,
			Tone:      tone,
			Language:  lang,
		}
		generated, err := s.gateway.ComposeListing(ctx, copyReq)
		s.metrics.ObserveAIRequest("listing", outcomeLabel(err), time.Since(start))
		if err != nil {
			s.logger.Warn("listing generation failed",
				zap.String("item_id", scopeID), zap.String("language", lang), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrAIUnavailable.Code, appErrors.ErrAIUnavailable.Status, "listing generation failed")
		}
		listings = append(listings, models.Listing{
			ItemID:   scopeID,
			Language: lang,
			Title:    generated.Title,
			Body:     generated.Body,
			Hashtags: generated.Hashtags,
			Channels: req.Channels,
			Tone:     tone,
		})
	}

	if err := s.listings.CreateBatch(ctx, listings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store listings")
	}
	return listings, nil
}

// ListByItem returns the item's previously generated listings.
func (s *ListingService) ListByItem(ctx context.Context, userID, itemID string) ([]models.Listing, error) {
	if _, err := s.items.FindByIDForUser(ctx, itemID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	listings, err := s.listings.ListByItem(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list listings")
	}
	return listings, nil
}
