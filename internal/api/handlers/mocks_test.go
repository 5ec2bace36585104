package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
)

// --- Mocks ---

// MockProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetFeaturedProducts(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockProductService) GetProductsByCategory(ctx context.Context, category string) ([]models.Listing, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockProductService) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockProductService) InvalidateProduct(id primitive.ObjectID, category string) {
	m.Called(id, category)
}

func (m *MockProductService) InvalidateAll() {
	m.Called()
}

// MockAnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) RecordEvent(ctx context.Context, productID primitive.ObjectID, kind models.EventKind) error {
	args := m.Called(ctx, productID, kind)
	return args.Error(0)
}

func (m *MockAnalyticsService) GetProductAnalytics(ctx context.Context, productID primitive.ObjectID, days int) ([]models.AdAnalytics, error) {
	args := m.Called(ctx, productID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AdAnalytics), args.Error(1)
}

func (m *MockAnalyticsService) GetUserAnalyticsSummary(ctx context.Context, userID primitive.ObjectID) (*models.AnalyticsSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyticsSummary), args.Error(1)
}

// MockSearchService
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params services.SearchParams) ([]models.Listing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockSearchService) RecordSearch(ctx context.Context, record *models.SearchRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSearchService) TopSearchTerms(ctx context.Context, limit int) ([]models.TermCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TermCount), args.Error(1)
}

func (m *MockSearchService) SearchCountsByLocation(ctx context.Context, limit int) ([]models.LocationCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LocationCount), args.Error(1)
}

func (m *MockSearchService) DailySearchTrend(ctx context.Context, days int) ([]models.DailyCount, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyCount), args.Error(1)
}

// MockEnqueuer captures best-effort task enqueues.
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueAnalyticsEvent(productID primitive.ObjectID, kind models.EventKind) {
	m.Called(productID, kind)
}

func (m *MockEnqueuer) EnqueueSearchRecord(record *models.SearchRecord) {
	m.Called(record)
}

func (m *MockEnqueuer) EnqueueDecisionEmail(to, subject, body string) {
	m.Called(to, subject, body)
}

func (m *MockEnqueuer) EnqueueImageProcess(listingID primitive.ObjectID, objectKey string) {
	m.Called(listingID, objectKey)
}
