package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/db"
	"bluestore/server/internal/models"
)

// IAnalyticsService defines the interface for per-product engagement
// counters. Recording is best-effort by contract: callers reach it through
// the task queue and failures are logged, never surfaced to users.
type IAnalyticsService interface {
	RecordEvent(ctx context.Context, productID primitive.ObjectID, kind models.EventKind) error
	GetProductAnalytics(ctx context.Context, productID primitive.ObjectID, days int) ([]models.AdAnalytics, error)
	GetUserAnalyticsSummary(ctx context.Context, userID primitive.ObjectID) (*models.AnalyticsSummary, error)
}

const analyticsCollection = "ad_analytics"

// Engagement weights for the summary ranking. Fixed business rule.
const (
	weightView    = 1
	weightClick   = 2
	weightMessage = 3
)

const topProductsLimit = 5

type analyticsService struct {
	db       *mongo.Database
	packages IPackageService
	// now is injectable so day-bucket tests are deterministic.
	now func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(database *mongo.Database, packages IPackageService) IAnalyticsService {
	return &analyticsService{db: database, packages: packages, now: time.Now}
}

// DayBucket formats the analytics day key. Days are bucketed on the UTC
// calendar date so counters agree across server instances in different
// timezones.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RecordEvent increments today's counter for (productID, kind), creating the
// day's document on first event. The increment is a single atomic upsert, so
// concurrent events for the same product and day never lose updates; the
// unique (product_id, date) index plus the duplicate-key retry collapse
// racing first-writes into plain increments.
func (s *analyticsService) RecordEvent(ctx context.Context, productID primitive.ObjectID, kind models.EventKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown analytics event kind %q", kind)
	}

	now := s.now().UTC()
	today := DayBucket(now)
	field := counterField(kind)
	coll := s.db.Collection(analyticsCollection)

	filter := bson.M{"product_id": productID, "date": today}

	// Fast path: the day's document already exists.
	result, err := coll.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updated_at": now},
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s for product %s: %w", field, productID.Hex(), err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// First event of the day: resolve the package-derived score and flags,
	// then upsert. The package lookup happens once per product per day.
	score, featured, urgent := s.resolvePackageFlags(ctx, productID)

	setOnInsert := bson.M{
		"product_id":     productID,
		"date":           today,
		"priority_score": score,
		"featured":       featured,
		"urgent":         urgent,
		"created_at":     now,
	}
	// The incremented counter starts at 1 via $inc; the other two start at 0.
	for _, f := range []string{"views", "clicks", "messages"} {
		if f != field {
			setOnInsert[f] = int64(0)
		}
	}

	operation := func() error {
		_, upsertErr := coll.UpdateOne(ctx, filter, bson.M{
			"$inc":         bson.M{field: 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": setOnInsert,
		}, options.Update().SetUpsert(true))
		return upsertErr
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("failed to upsert analytics for product %s on %s: %w", productID.Hex(), today, err)
	}
	return nil
}

// resolvePackageFlags reads the product's attached package and derives the
// stored priority score and feature flags. Lookup failures degrade to the
// free tier rather than dropping the event.
func (s *analyticsService) resolvePackageFlags(ctx context.Context, productID primitive.ObjectID) (int, bool, bool) {
	packageID := "free"
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": productID}).Decode(&listing)
	if err == nil && listing.Package != nil && listing.Package.ID != "" {
		packageID = listing.Package.ID
	}

	score, err := s.packages.PriorityBoost(ctx, packageID)
	if err != nil {
		score = 1
	}
	featured, err := s.packages.PackageHasFeature(ctx, packageID, models.FeatureFeaturedListing)
	if err != nil {
		featured = false
	}
	urgent, err := s.packages.PackageHasFeature(ctx, packageID, models.FeatureUrgentTag)
	if err != nil {
		urgent = false
	}
	return score, featured, urgent
}

// GetProductAnalytics returns up to `days` most recent daily records for one
// product, newest first.
func (s *analyticsService) GetProductAnalytics(ctx context.Context, productID primitive.ObjectID, days int) ([]models.AdAnalytics, error) {
	filter := bson.M{"product_id": productID}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(days))
	cursor, err := s.db.Collection(analyticsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics for product %s: %w", productID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var records []models.AdAnalytics
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode analytics records: %w", err)
	}
	return records, nil
}

// GetUserAnalyticsSummary sums engagement across a user's products and ranks
// them by views*1 + clicks*2 + messages*3, returning the top five.
func (s *analyticsService) GetUserAnalyticsSummary(ctx context.Context, userID primitive.ObjectID) (*models.AnalyticsSummary, error) {
	productIDs, titles, err := s.userProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &models.AnalyticsSummary{TopProducts: []models.ProductEngagement{}}
	if len(productIDs) == 0 {
		return summary, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product_id": bson.M{"$in": productIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$product_id",
			"views":    bson.M{"$sum": "$views"},
			"clicks":   bson.M{"$sum": "$clicks"},
			"messages": bson.M{"$sum": "$messages"},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"score": bson.M{"$add": bson.A{
				bson.M{"$multiply": bson.A{"$views", weightView}},
				bson.M{"$multiply": bson.A{"$clicks", weightClick}},
				bson.M{"$multiply": bson.A{"$messages", weightMessage}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}}}},
	}

	cursor, err := s.db.Collection(analyticsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate analytics for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var rows []models.ProductEngagement
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode analytics aggregation: %w", err)
	}

	for i := range rows {
		rows[i].Title = titles[rows[i].ProductID]
		summary.TotalViews += rows[i].Views
		summary.TotalClicks += rows[i].Clicks
		summary.TotalMessages += rows[i].Messages
	}
	if len(rows) > topProductsLimit {
		rows = rows[:topProductsLimit]
	}
	summary.TopProducts = rows
	return summary, nil
}

func (s *analyticsService) userProducts(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, map[primitive.ObjectID]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "title": 1})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query products for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	titles := make(map[primitive.ObjectID]string)
	for cursor.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Title string             `bson:"title"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, nil, fmt.Errorf("failed to decode product row: %w", err)
		}
		ids = append(ids, row.ID)
		titles[row.ID] = row.Title
	}
	if err := cursor.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, nil, fmt.Errorf("product cursor error: %w", err)
	}
	return ids, titles, nil
}

func counterField(kind models.EventKind) string {
	switch kind {
	case models.EventClick:
		return "clicks"
	case models.EventMessage:
		return "messages"
	default:
		return "views"
	}
}
