package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/jobs"
)

type mockItemRepo struct {
	created       *models.Item
	byID          map[string]*models.Item
	statusWrites  []models.AnalysisStatus
	lastRationale *string
	decision      *models.Decision
	decisionErr   error
	priceSet      bool
	deletePaths   []string
	deleteErr     error
	analysisSaved *models.Item
}

func (m *mockItemRepo) Create(ctx context.Context, item *models.Item) error {
	item.ID = "item-1"
	m.created = item
	return nil
}

func (m *mockItemRepo) FindByID(ctx context.Context, id string) (*models.Item, error) {
	if item, ok := m.byID[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockItemRepo) FindByIDForUser(ctx context.Context, id, userID string) (*models.Item, error) {
	return m.FindByID(ctx, id)
}

func (m *mockItemRepo) ListBySession(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	var items []models.Item
	for _, item := range m.byID {
		items = append(items, *item)
	}
	return items, len(items), nil
}

func (m *mockItemRepo) UpdateAnalysis(ctx context.Context, item *models.Item) error {
	m.analysisSaved = item
	return nil
}

func (m *mockItemRepo) SetAnalysisStatus(ctx context.Context, id string, status models.AnalysisStatus, rationale *string) error {
	m.statusWrites = append(m.statusWrites, status)
	m.lastRationale = rationale
	return nil
}

func (m *mockItemRepo) SetDecision(ctx context.Context, id, userID string, decision models.Decision, reason *string) error {
	if m.decisionErr != nil {
		return m.decisionErr
	}
	m.decision = &decision
	return nil
}

func (m *mockItemRepo) SetPriceEstimate(ctx context.Context, id string, low, mid, high, confidence float64) error {
	m.priceSet = true
	return nil
}

func (m *mockItemRepo) Delete(ctx context.Context, id, userID string) ([]string, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return m.deletePaths, nil
}

type mockPhotoStore struct {
	batches  [][]models.Photo
	batchErr error
	byItem   map[string][]models.Photo
}

func (m *mockPhotoStore) CreateBatch(ctx context.Context, itemID string, photos []models.Photo, maxPerItem int) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, photos)
	return nil
}

func (m *mockPhotoStore) ListByItem(ctx context.Context, itemID string) ([]models.Photo, error) {
	return m.byItem[itemID], nil
}

type mockBlobStore struct {
	saved   []string
	deleted []string
}

func (m *mockBlobStore) Save(filename string, data []byte) (string, error) {
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockBlobStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type stubSessionLookup struct {
	session *models.Session
	err     error
}

func (s *stubSessionLookup) FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type itemServiceFixture struct {
	svc     *ItemService
	repo    *mockItemRepo
	photos  *mockPhotoStore
	blobs   *mockBlobStore
	queue   *mockQueue
	gateway *stubGateway
	counts  *mockQuotaCounts
}

func newItemServiceFixture() *itemServiceFixture {
	f := &itemServiceFixture{
		repo:    &mockItemRepo{byID: map[string]*models.Item{}},
		photos:  &mockPhotoStore{byItem: map[string][]models.Photo{}},
		blobs:   &mockBlobStore{},
		queue:   &mockQueue{},
		gateway: &stubGateway{},
		counts:  &mockQuotaCounts{},
	}
	quota := NewQuotaService(f.counts, f.counts, 2, nil, zap.NewNop())
	cache := NewCacheService(nil, nil, 0, zap.NewNop())
	sessions := &stubSessionLookup{session: &models.Session{ID: "sess-1", UserID: "u1", Status: models.SessionStatusActive}}
	f.svc = NewItemService(f.repo, f.photos, sessions, f.blobs, nil, f.queue, quota, f.gateway, cache, nil, nil, zap.NewNop(), "http://localhost:8080", 5)
	return f
}

func validAddRequest(photoCount int) AddItemRequest {
	req := AddItemRequest{SessionID: "sess-1", Title: "Old lamp"}
	for i := 0; i < photoCount; i++ {
		req.Photos = append(req.Photos, PhotoUpload{Filename: "lamp.jpg", Data: []byte{0xff}})
	}
	return req
}

func TestAddItemQueuesClassification(t *testing.T) {
	f := newItemServiceFixture()

	item, err := f.svc.Add(context.Background(), "u1", validAddRequest(2))
	assert.NoError(t, err)
	assert.Equal(t, models.AnalysisAnalyzing, item.AnalysisStatus)
	assert.Len(t, item.Photos, 2)
	assert.Len(t, f.blobs.saved, 2)

	if assert.Len(t, f.queue.jobs, 1) {
		job := f.queue.jobs[0]
		assert.Equal(t, jobs.TypeClassifyItem, job.Type)
		var payload ClassifyItemPayload
		assert.NoError(t, json.Unmarshal(job.Payload.([]byte), &payload))
		assert.Equal(t, "item-1", payload.ItemID)
		assert.Equal(t, "u1", payload.UserID)
	}
}

func TestAddItemRequiresPhotos(t *testing.T) {
	f := newItemServiceFixture()

	_, err := f.svc.Add(context.Background(), "u1", validAddRequest(0))

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, f.queue.jobs)
}

func TestAddItemRejectsTooManyPhotos(t *testing.T) {
	f := newItemServiceFixture()

	_, err := f.svc.Add(context.Background(), "u1", validAddRequest(6))

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPhotoLimit.Code, appErr.Code)
	assert.Empty(t, f.blobs.saved, "nothing persisted on a rejected batch")
}

func TestAddItemRejectsInactiveSession(t *testing.T) {
	f := newItemServiceFixture()
	sessions := &stubSessionLookup{session: &models.Session{ID: "sess-1", UserID: "u1", Status: models.SessionStatusCompleted}}
	f.svc.sessions = sessions

	_, err := f.svc.Add(context.Background(), "u1", validAddRequest(1))

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSessionNotActive.Code, appErr.Code)
}

func TestAddItemEnqueueFailureMarksFailed(t *testing.T) {
	f := newItemServiceFixture()
	f.queue.err = errors.New("queue stopped")

	item, err := f.svc.Add(context.Background(), "u1", validAddRequest(1))
	assert.NoError(t, err, "the item itself is still created")
	assert.Equal(t, models.AnalysisFailed, item.AnalysisStatus)
	assert.Contains(t, f.repo.statusWrites, models.AnalysisFailed)
}

func TestClassifyRefusedAtQuota(t *testing.T) {
	f := newItemServiceFixture()
	f.counts.analyses = 2
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", Title: "Old lamp", AnalysisStatus: models.AnalysisAnalyzing}

	payload, _ := json.Marshal(ClassifyItemPayload{ItemID: "item-1", UserID: "u1"})
	err := f.svc.HandleJob(context.Background(), jobs.Job{Type: jobs.TypeClassifyItem, Payload: payload})
	assert.NoError(t, err)

	assert.Equal(t, []models.AnalysisStatus{models.AnalysisLimitReached}, f.repo.statusWrites)
	assert.Equal(t, 0, f.gateway.classifyCalls, "no AI spend past the cap")
}

func TestClassifySuccessPersistsAnalysis(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", Title: "Old lamp", AnalysisStatus: models.AnalysisAnalyzing}

	payload, _ := json.Marshal(ClassifyItemPayload{ItemID: "item-1", UserID: "u1"})
	err := f.svc.HandleJob(context.Background(), jobs.Job{Type: jobs.TypeClassifyItem, Payload: payload})
	assert.NoError(t, err)

	assert.Equal(t, 1, f.gateway.classifyCalls)
	if assert.NotNil(t, f.repo.analysisSaved) {
		assert.Equal(t, models.AnalysisSuccess, f.repo.analysisSaved.AnalysisStatus)
		assert.Equal(t, "keep", *f.repo.analysisSaved.Recommendation)
	}
}

func TestClassifyGatewayFailureMarksFailedWithoutError(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", Title: "Old lamp", AnalysisStatus: models.AnalysisAnalyzing}
	failing := &failingGateway{err: errors.New("upstream timeout")}
	f.svc.gateway = failing

	payload, _ := json.Marshal(ClassifyItemPayload{ItemID: "item-1", UserID: "u1"})
	err := f.svc.HandleJob(context.Background(), jobs.Job{Type: jobs.TypeClassifyItem, Payload: payload})

	assert.NoError(t, err, "worker must not signal the queue to retry")
	assert.Equal(t, []models.AnalysisStatus{models.AnalysisFailed}, f.repo.statusWrites)
	assert.NotNil(t, f.repo.lastRationale)
}

type failingGateway struct {
	err error
}

func (g *failingGateway) ClassifyItem(ctx context.Context, item ai.ItemContext) (*ai.Classification, error) {
	return nil, g.err
}

func (g *failingGateway) SuggestPrice(ctx context.Context, item ai.ItemContext) (*ai.PriceSuggestion, error) {
	return nil, g.err
}

func (g *failingGateway) ComposeListing(ctx context.Context, req ai.ListingRequest) (*ai.ListingCopy, error) {
	return nil, g.err
}

func (g *failingGateway) BuildMovingPlan(ctx context.Context, mc ai.MovingContext) ([]ai.PlanWeek, error) {
	return nil, g.err
}

func TestRetryAnalysisConflictsWhileAnalyzing(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", AnalysisStatus: models.AnalysisAnalyzing}

	_, err := f.svc.RetryAnalysis(context.Background(), "u1", "item-1")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, f.queue.jobs)
}

func TestRetryAnalysisRequeues(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", AnalysisStatus: models.AnalysisLimitReached}

	item, err := f.svc.RetryAnalysis(context.Background(), "u1", "item-1")
	assert.NoError(t, err)
	assert.Equal(t, models.AnalysisAnalyzing, item.AnalysisStatus)
	assert.Len(t, f.queue.jobs, 1)
}

func TestSetDecisionIndependentOfAnalysis(t *testing.T) {
	f := newItemServiceFixture()

	err := f.svc.SetDecision(context.Background(), "u1", "item-1", SetDecisionRequest{Decision: "donate"})
	assert.NoError(t, err)
	assert.Equal(t, models.DecisionDonate, *f.repo.decision)
}

func TestSetDecisionRejectsUnknownValue(t *testing.T) {
	f := newItemServiceFixture()

	err := f.svc.SetDecision(context.Background(), "u1", "item-1", SetDecisionRequest{Decision: "burn"})

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSetDecisionUnownedItemNotFound(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.decisionErr = sql.ErrNoRows

	err := f.svc.SetDecision(context.Background(), "u1", "item-1", SetDecisionRequest{Decision: "sell"})

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSuggestPriceStoresBand(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.byID["item-1"] = &models.Item{ID: "item-1", Title: "Old lamp"}

	item, err := f.svc.SuggestPrice(context.Background(), "u1", "item-1")
	assert.NoError(t, err)
	assert.True(t, f.repo.priceSet)
	assert.Equal(t, 2.0, *item.PriceMid)
}

func TestDeleteItemRemovesFiles(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.deletePaths = []string{"items/item-1/a.jpg", "items/item-1/b.jpg"}

	err := f.svc.Delete(context.Background(), "u1", "item-1")
	assert.NoError(t, err)
	assert.Equal(t, f.repo.deletePaths, f.blobs.deleted)
}

func TestDeleteItemNotFound(t *testing.T) {
	f := newItemServiceFixture()
	f.repo.deleteErr = sql.ErrNoRows

	err := f.svc.Delete(context.Background(), "u1", "missing")

	var appErr *appErrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
