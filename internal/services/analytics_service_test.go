package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bluestore/server/internal/config"
	"bluestore/server/internal/models"
	"bluestore/server/internal/utils"
)

func setupTestDBAnalytics(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "ad_analytics", "listings", "packages", "notifications")
}

func TestDayBucket(t *testing.T) {
	// The bucket is the UTC calendar date, regardless of the input zone
	loc := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2026, 8, 29, 2, 30, 0, 0, loc) // 2026-08-28T21:30Z
	assert.Equal(t, "2026-08-28", DayBucket(late))
	assert.Equal(t, "2026-08-29", DayBucket(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))
}

func TestAnalyticsService_SameDayEventsShareOneDocument(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_increment")
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	svc := NewAnalyticsService(db, packages)
	ctx := context.Background()

	productID := primitive.NewObjectID()

	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventView))
	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventView))
	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventClick))
	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventMessage))

	records, err := svc.GetProductAnalytics(ctx, productID, 30)
	require.NoError(t, err)
	require.Len(t, records, 1, "same-day events must collapse into one daily record")

	day := records[0]
	assert.Equal(t, DayBucket(time.Now()), day.Date)
	assert.Equal(t, int64(2), day.Views)
	assert.Equal(t, int64(1), day.Clicks)
	assert.Equal(t, int64(1), day.Messages)

	// Unattached products degrade to the free tier
	assert.Equal(t, 1, day.PriorityScore)
	assert.False(t, day.Featured)
	assert.False(t, day.Urgent)
}

func TestAnalyticsService_NewDayOpensNewRecord(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_rollover")
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	svc := NewAnalyticsService(db, packages)
	ctx := context.Background()

	productID := primitive.NewObjectID()

	impl := svc.(*analyticsService)
	yesterday := time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC)
	impl.now = func() time.Time { return yesterday }
	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventView))

	impl.now = func() time.Time { return yesterday.Add(20 * time.Minute) } // past midnight
	require.NoError(t, svc.RecordEvent(ctx, productID, models.EventView))

	records, err := svc.GetProductAnalytics(ctx, productID, 30)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-29", records[0].Date)
	assert.Equal(t, "2026-08-28", records[1].Date)
	assert.Equal(t, int64(1), records[0].Views)
	assert.Equal(t, int64(1), records[1].Views)
}

func TestAnalyticsService_PackageFlagsStamped(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_flags")
	cfg := &config.Config{DefaultPackageID: "free"}
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	listings := NewListingService(db, cfg, packages, NewNotificationService(db))
	svc := NewAnalyticsService(db, packages)
	ctx := context.Background()

	listing, err := listings.CreateListing(ctx, primitive.NewObjectID(), CreateListingInput{
		Title: "Boosted TV", Description: "x", Category: "electronics", Price: 2000,
		PackageID: "pro-boost",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RecordEvent(ctx, listing.ID, models.EventView))

	records, err := svc.GetProductAnalytics(ctx, listing.ID, 30)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].PriorityScore)
	assert.True(t, records[0].Featured)
	assert.False(t, records[0].Urgent)
}

func TestAnalyticsService_UserSummaryWeightsAndRanks(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_summary")
	cfg := &config.Config{DefaultPackageID: "free"}
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	listings := NewListingService(db, cfg, packages, NewNotificationService(db))
	svc := NewAnalyticsService(db, packages)
	ctx := context.Background()

	userID := primitive.NewObjectID()

	quiet, err := listings.CreateListing(ctx, userID, CreateListingInput{
		Title: "Quiet ad", Description: "x", Category: "misc", Price: 10,
	})
	require.NoError(t, err)
	busy, err := listings.CreateListing(ctx, userID, CreateListingInput{
		Title: "Busy ad", Description: "x", Category: "misc", Price: 10,
	})
	require.NoError(t, err)

	// quiet: 5 views = score 5; busy: 1 view + 2 messages = score 7
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordEvent(ctx, quiet.ID, models.EventView))
	}
	require.NoError(t, svc.RecordEvent(ctx, busy.ID, models.EventView))
	require.NoError(t, svc.RecordEvent(ctx, busy.ID, models.EventMessage))
	require.NoError(t, svc.RecordEvent(ctx, busy.ID, models.EventMessage))

	// Another user's traffic must not leak into the summary
	other, err := listings.CreateListing(ctx, primitive.NewObjectID(), CreateListingInput{
		Title: "Other ad", Description: "x", Category: "misc", Price: 10,
	})
	require.NoError(t, err)
	require.NoError(t, svc.RecordEvent(ctx, other.ID, models.EventView))

	summary, err := svc.GetUserAnalyticsSummary(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, int64(6), summary.TotalViews)
	assert.Equal(t, int64(0), summary.TotalClicks)
	assert.Equal(t, int64(2), summary.TotalMessages)

	require.Len(t, summary.TopProducts, 2)
	assert.Equal(t, busy.ID, summary.TopProducts[0].ProductID)
	assert.Equal(t, "Busy ad", summary.TopProducts[0].Title)
	assert.Equal(t, int64(7), summary.TopProducts[0].Score)
	assert.Equal(t, quiet.ID, summary.TopProducts[1].ProductID)
	assert.Equal(t, int64(5), summary.TopProducts[1].Score)
}

func TestAnalyticsService_SummaryCapsTopProducts(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_topcap")
	cfg := &config.Config{DefaultPackageID: "free"}
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	listings := NewListingService(db, cfg, packages, NewNotificationService(db))
	svc := NewAnalyticsService(db, packages)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	for i := 0; i < 7; i++ {
		listing, err := listings.CreateListing(ctx, userID, CreateListingInput{
			Title: "Ad", Description: "x", Category: "misc", Price: 10,
		})
		require.NoError(t, err)
		require.NoError(t, svc.RecordEvent(ctx, listing.ID, models.EventView))
	}

	summary, err := svc.GetUserAnalyticsSummary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalViews, "totals cover all products")
	assert.Len(t, summary.TopProducts, 5, "ranking is capped at five")
}

func TestAnalyticsService_RejectsUnknownKind(t *testing.T) {
	db := setupTestDBAnalytics(t, "testdb_analytics_badkind")
	svc := NewAnalyticsService(db, NewPackageService(db))

	err := svc.RecordEvent(context.Background(), primitive.NewObjectID(), models.EventKind("share"))
	assert.Error(t, err)
}
