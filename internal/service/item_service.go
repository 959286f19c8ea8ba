package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/repository"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/jobs"
)

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id string) (*models.Item, error)
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Item, error)
	ListBySession(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error)
	UpdateAnalysis(ctx context.Context, item *models.Item) error
	SetAnalysisStatus(ctx context.Context, id string, status models.AnalysisStatus, rationale *string) error
	SetDecision(ctx context.Context, id, userID string, decision models.Decision, reason *string) error
	SetPriceEstimate(ctx context.Context, id string, low, mid, high, confidence float64) error
	Delete(ctx context.Context, id, userID string) ([]string, error)
}

type photoStore interface {
	CreateBatch(ctx context.Context, itemID string, photos []models.Photo, maxPerItem int) error
	ListByItem(ctx context.Context, itemID string) ([]models.Photo, error)
}

type sessionLookup interface {
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error)
}

type photoBlobStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type photoURLSigner interface {
	Generate(photoID, relPath string) (string, time.Time, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ClassifyItemPayload travels on the classification queue. The owner id
// rides along because the quota gate runs inside the worker, not at enqueue
// time.
type ClassifyItemPayload struct {
	ItemID string `json:"item_id"`
	UserID string `json:"user_id"`
}

// ItemService manages declutter items, their photos and the async AI
// classification pipeline.
type ItemService struct {
	items         itemRepository
	photos        photoStore
	sessions      sessionLookup
	blobs         photoBlobStore
	signer        photoURLSigner
	queue         jobEnqueuer
	quota         *QuotaService
	gateway       ai.Gateway
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	publicBaseURL string
	maxPhotos     int
}

// NewItemService constructs the service.
func NewItemService(items itemRepository, photos photoStore, sessions sessionLookup, blobs photoBlobStore, signer photoURLSigner, queue jobEnqueuer, quota *QuotaService, gateway ai.Gateway, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, publicBaseURL string, maxPhotos int) *ItemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPhotos <= 0 {
		maxPhotos = 5
	}
	return &ItemService{
		items:         items,
		photos:        photos,
		sessions:      sessions,
		blobs:         blobs,
		signer:        signer,
		queue:         queue,
		quota:         quota,
		gateway:       gateway,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		maxPhotos:     maxPhotos,
	}
}

// SetQueue attaches the classification queue after construction. The queue
// needs this service's HandleJob as its handler, so the two are tied
// together in a second step.
func (s *ItemService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// PhotoUpload is one decoded multipart file from the upload boundary. The
// handler has already enforced size and content-type limits.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// AddItemRequest describes the create-item payload.
type AddItemRequest struct {
	SessionID string  `json:"session_id" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	Notes     *string `json:"notes"`
	Photos    []PhotoUpload
}

// Add registers an item in an active session, stores its photos and queues
// classification. The item is returned in the analyzing state; the outcome
// lands asynchronously.
func (s *ItemService) Add(ctx context.Context, userID string, req AddItemRequest) (*models.Item, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if len(req.Photos) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one photo is required")
	}
	if len(req.Photos) > s.maxPhotos {
		return nil, appErrors.Clone(appErrors.ErrPhotoLimit, fmt.Sprintf("an item can hold at most %d photos", s.maxPhotos))
	}

	session, err := s.sessions.FindByIDForUser(ctx, req.SessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status != models.SessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrSessionNotActive, "items can only be added to active sessions")
	}

	item := &models.Item{
		SessionID:      req.SessionID,
		Title:          req.Title,
		Notes:          req.Notes,
		AnalysisStatus: models.AnalysisAnalyzing,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}

	photos, savedPaths, err := s.storePhotos(item.ID, req.Photos)
	if err != nil {
		return nil, err
	}
	if err := s.photos.CreateBatch(ctx, item.ID, photos, s.maxPhotos); err != nil {
		s.removeFiles(savedPaths)
		if errors.Is(err, repository.ErrPhotoLimit) {
			return nil, appErrors.Clone(appErrors.ErrPhotoLimit, fmt.Sprintf("an item can hold at most %d photos", s.maxPhotos))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photos")
	}
	item.Photos = photos

	if err := s.enqueueClassification(item.ID, userID); err != nil {
		reason := "classification could not be queued; retry the analysis"
		if statusErr := s.items.SetAnalysisStatus(ctx, item.ID, models.AnalysisFailed, &reason); statusErr != nil {
			s.logger.Error("failed to record enqueue failure", zap.String("item_id", item.ID), zap.Error(statusErr))
		}
		item.AnalysisStatus = models.AnalysisFailed
		item.Rationale = &reason
	}

	s.cache.InvalidateUser(ctx, userID)
	return item, nil
}

func (s *ItemService) storePhotos(itemID string, uploads []PhotoUpload) ([]models.Photo, []string, error) {
	photos := make([]models.Photo, 0, len(uploads))
	saved := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		photoID := uuid.NewString()
		rel := filepath.Join("items", itemID, photoID+filepath.Ext(upload.Filename))
		if _, err := s.blobs.Save(rel, upload.Data); err != nil {
			s.removeFiles(saved)
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
		}
		saved = append(saved, rel)
		photos = append(photos, models.Photo{
			ID:     photoID,
			ItemID: itemID,
			Path:   rel,
			URL:    s.photoURL(photoID, rel),
		})
	}
	return photos, saved, nil
}

func (s *ItemService) removeFiles(paths []string) {
	for _, path := range paths {
		if err := s.blobs.Delete(path); err != nil {
			s.logger.Warn("failed to remove photo file", zap.String("path", path), zap.Error(err))
		}
	}
}

// photoURL mints a signed download URL for a stored photo. URLs expire, so
// reads refresh them rather than trusting the persisted value.
func (s *ItemService) photoURL(photoID, relPath string) string {
	if s.signer == nil {
		return s.publicBaseURL + "/" + relPath
	}
	token, _, err := s.signer.Generate(photoID, relPath)
	if err != nil {
		s.logger.Warn("failed to sign photo url", zap.String("photo_id", photoID), zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%s/api/v1/photos/%s", s.publicBaseURL, token)
}

func (s *ItemService) enqueueClassification(itemID, userID string) error {
	if s.queue == nil {
		return fmt.Errorf("classification queue not configured")
	}
	payload, err := json.Marshal(ClassifyItemPayload{ItemID: itemID, UserID: userID})
	if err != nil {
		return err
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobs.TypeClassifyItem,
		Payload: payload,
	})
}

// HandleJob is the queue handler. Classification failures are recorded on
// the item and swallowed: a retried run would spend another quota unit, so
// the retry decision stays with the user.
func (s *ItemService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != jobs.TypeClassifyItem {
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	raw, ok := job.Payload.([]byte)
	if !ok {
		return fmt.Errorf("classify job %s: unexpected payload type %T", job.ID, job.Payload)
	}
	var payload ClassifyItemPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("classify job %s: decode payload: %w", job.ID, err)
	}
	s.classify(ctx, payload)
	return nil
}

func (s *ItemService) classify(ctx context.Context, payload ClassifyItemPayload) {
	log := s.logger.With(zap.String("item_id", payload.ItemID), zap.String("user_id", payload.UserID))

	if status := s.quota.Gate(ctx, payload.UserID); !status.CanUse {
		reason := "free AI usage limit reached; this item was not analyzed"
		if err := s.items.SetAnalysisStatus(ctx, payload.ItemID, models.AnalysisLimitReached, &reason); err != nil {
			log.Error("failed to record quota refusal", zap.Error(err))
		}
		s.cache.InvalidateUser(ctx, payload.UserID)
		return
	}

	item, err := s.items.FindByID(ctx, payload.ItemID)
	if err != nil {
		log.Warn("classification target vanished", zap.Error(err))
		return
	}

	itemCtx := ai.ItemContext{Title: item.Title}
	if item.Notes != nil {
		itemCtx.Notes = *item.Notes
	}
	if photos, err := s.photos.ListByItem(ctx, item.ID); err == nil {
		for _, photo := range photos {
			if url := s.photoURL(photo.ID, photo.Path); url != "" {
				itemCtx.PhotoURLs = append(itemCtx.PhotoURLs, url)
			}
		}
	} else {
		log.Warn("failed to load photos for classification", zap.Error(err))
	}

	start := time.Now()
	result, err := s.gateway.ClassifyItem(ctx, itemCtx)
	s.metrics.ObserveAIRequest("classify", outcomeLabel(err), time.Since(start))
	if err != nil {
		log.Warn("classification failed", zap.Error(err))
		reason := "analysis failed; retry when ready"
		if statusErr := s.items.SetAnalysisStatus(ctx, item.ID, models.AnalysisFailed, &reason); statusErr != nil {
			log.Error("failed to record classification failure", zap.Error(statusErr))
		}
		s.cache.InvalidateUser(ctx, payload.UserID)
		return
	}

	item.Category = &result.Category
	item.Condition = &result.Condition
	item.UsageScore = &result.UsageScore
	item.Recommendation = &result.Recommendation
	item.Rationale = &result.Rationale
	item.Sentiment = &result.Sentiment
	item.AnalysisStatus = models.AnalysisSuccess
	if err := s.items.UpdateAnalysis(ctx, item); err != nil {
		log.Error("failed to persist classification", zap.Error(err))
		return
	}
	s.cache.InvalidateUser(ctx, payload.UserID)
	log.Info("item classified", zap.String("recommendation", result.Recommendation))
}

// RetryAnalysis re-queues classification for a failed or refused item.
func (s *ItemService) RetryAnalysis(ctx context.Context, userID, itemID string) (*models.Item, error) {
	item, err := s.items.FindByIDForUser(ctx, itemID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if item.AnalysisStatus == models.AnalysisAnalyzing {
		return nil, appErrors.Clone(appErrors.ErrConflict, "analysis already in progress")
	}
	if err := s.items.SetAnalysisStatus(ctx, itemID, models.AnalysisAnalyzing, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}
	if err := s.enqueueClassification(itemID, userID); err != nil {
		reason := "classification could not be queued; retry the analysis"
		if statusErr := s.items.SetAnalysisStatus(ctx, itemID, models.AnalysisFailed, &reason); statusErr != nil {
			s.logger.Error("failed to record enqueue failure", zap.String("item_id", itemID), zap.Error(statusErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue analysis")
	}
	item.AnalysisStatus = models.AnalysisAnalyzing
	s.cache.InvalidateUser(ctx, userID)
	return item, nil
}

// SetDecisionRequest records the user's disposition for an item.
type SetDecisionRequest struct {
	Decision string  `json:"decision" validate:"required"`
	Reason   *string `json:"reason"`
}

// SetDecision stores the user's choice. Deciding does not require a
// completed analysis; users may overrule or skip the AI entirely.
func (s *ItemService) SetDecision(ctx context.Context, userID, itemID string, req SetDecisionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	decision := models.Decision(req.Decision)
	if !models.KnownDecision(decision) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown decision %q", req.Decision))
	}
	if err := s.items.SetDecision(ctx, itemID, userID, decision, req.Reason); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// SuggestPrice asks the AI gateway for a resale price band and stores it on
// the item. Price suggestions do not consume the free-analysis quota.
func (s *ItemService) SuggestPrice(ctx context.Context, userID, itemID string) (*models.Item, error) {
	item, err := s.items.FindByIDForUser(ctx, itemID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}

	itemCtx := ai.ItemContext{Title: item.Title}
	if item.Notes != nil {
		itemCtx.Notes = *item.Notes
	}
	if item.Category != nil {
		itemCtx.Category = *item.Category
	}
	if item.Condition != nil {
		itemCtx.Condition = *item.Condition
	}

	start := time.Now()
	suggestion, err := s.gateway.SuggestPrice(ctx, itemCtx)
	s.metrics.ObserveAIRequest("price", outcomeLabel(err), time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAIUnavailable.Code, appErrors.ErrAIUnavailable.Status, "price suggestion failed")
	}

	if err := s.items.SetPriceEstimate(ctx, itemID, suggestion.Low, suggestion.Mid, suggestion.High, suggestion.Confidence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store price estimate")
	}
	item.PriceLow = &suggestion.Low
	item.PriceMid = &suggestion.Mid
	item.PriceHigh = &suggestion.High
	item.PriceConf = &suggestion.Confidence
	s.cache.InvalidateUser(ctx, userID)
	return item, nil
}

// Get returns an owned item with fresh photo URLs.
func (s *ItemService) Get(ctx context.Context, userID, itemID string) (*models.Item, error) {
	item, err := s.items.FindByIDForUser(ctx, itemID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	s.attachPhotos(ctx, item)
	return item, nil
}

// ListBySession returns the session's items with photos and pagination.
func (s *ItemService) ListBySession(ctx context.Context, userID string, filter models.ItemFilter) ([]models.Item, *models.Pagination, error) {
	if _, err := s.sessions.FindByIDForUser(ctx, filter.SessionID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	items, total, err := s.items.ListBySession(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	for i := range items {
		s.attachPhotos(ctx, &items[i])
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

func (s *ItemService) attachPhotos(ctx context.Context, item *models.Item) {
	photos, err := s.photos.ListByItem(ctx, item.ID)
	if err != nil {
		s.logger.Warn("failed to load item photos", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	for i := range photos {
		if url := s.photoURL(photos[i].ID, photos[i].Path); url != "" {
			photos[i].URL = url
		}
	}
	item.Photos = photos
}

// Delete removes an item, its photos and listings, then the photo files.
func (s *ItemService) Delete(ctx context.Context, userID, itemID string) error {
	paths, err := s.items.Delete(ctx, itemID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete item")
	}
	s.removeFiles(paths)
	s.cache.InvalidateUser(ctx, userID)
	return nil
}
