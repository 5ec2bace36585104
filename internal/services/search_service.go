package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/config"
	"bluestore/server/internal/models"
	"bluestore/server/internal/ranking"
)

// SortMode selects an explicit result ordering. The zero value means
// "relevance": the default three-key priority order.
type SortMode string

const (
	SortRelevance SortMode = ""
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
	SortPriceLow  SortMode = "price_low"
	SortPriceHigh SortMode = "price_high"
	SortLocation  SortMode = "location"
)

// DateRange buckets results by creation recency, applied client-side.
type DateRange string

const (
	DateAny   DateRange = ""
	DateToday DateRange = "today"
	DateWeek  DateRange = "week"
	DateMonth DateRange = "month"
	DateYear  DateRange = "year"
)

// SearchParams is the closed set of search inputs, validated once at the
// entry point rather than passed around as loose maps.
type SearchParams struct {
	Query      string
	Location   string
	Category   string
	Condition  models.Condition
	MinPrice   *float64
	MaxPrice   *float64
	Negotiable *bool
	DateRange  DateRange
	Sort       SortMode
	UserID     *primitive.ObjectID // Searcher, when authenticated; recorded only
}

// Validate rejects unknown enum values before any query is built.
func (p *SearchParams) Validate() error {
	switch p.Sort {
	case SortRelevance, SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortLocation:
	default:
		return fmt.Errorf("unknown sort mode %q", p.Sort)
	}
	switch p.DateRange {
	case DateAny, DateToday, DateWeek, DateMonth, DateYear:
	default:
		return fmt.Errorf("unknown date range %q", p.DateRange)
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return fmt.Errorf("min price exceeds max price")
	}
	return nil
}

// ISearchService defines the interface for listing search and the analytics
// over recorded searches.
type ISearchService interface {
	Search(ctx context.Context, params SearchParams) ([]models.Listing, error)
	RecordSearch(ctx context.Context, record *models.SearchRecord) error
	TopSearchTerms(ctx context.Context, limit int) ([]models.TermCount, error)
	SearchCountsByLocation(ctx context.Context, limit int) ([]models.LocationCount, error)
	DailySearchTrend(ctx context.Context, days int) ([]models.DailyCount, error)
}

const searchRecordsCollection = "search_records"

// SearchRecorder enqueues a best-effort search record; implemented by the
// task client so recording never blocks the search response.
type SearchRecorder interface {
	EnqueueSearchRecord(record *models.SearchRecord)
}

type searchService struct {
	db       *mongo.Database
	cfg      *config.Config
	recorder SearchRecorder
	now      func() time.Time
}

// NewSearchService creates a new SearchService. The recorder may be nil, in
// which case executed searches are not recorded.
func NewSearchService(database *mongo.Database, cfg *config.Config, recorder SearchRecorder) ISearchService {
	return &searchService{db: database, cfg: cfg, recorder: recorder, now: time.Now}
}

// Search runs the remote query, applies the default priority order unless an
// explicit sort was requested, then applies the filters the remote layer
// cannot express. Non-blank queries are recorded best-effort.
func (s *searchService) Search(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(params.Query)
	filter := s.buildFilter(query, params)

	opts := options.Find()
	if query == "" {
		// Blank query browses the newest approved listings instead of
		// matching everything through the term filter.
		opts.SetLimit(int64(s.cfg.BrowseLimit))
	} else {
		// Broad queries are truncated at the remote layer before the
		// client-side filters run.
		opts.SetLimit(int64(s.cfg.SearchRemoteLimit))
	}

	if sort, ok := remoteSort(params.Sort); ok {
		opts.SetSort(sort)
	} else {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Listing
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	if params.Sort == SortRelevance {
		results = ranking.ByPriority(results)
	}

	results = s.applyLocationFilter(results, params.Location)
	results = applyDateFilter(results, params.DateRange, s.now().UTC())

	if query != "" && s.recorder != nil {
		s.recorder.EnqueueSearchRecord(&models.SearchRecord{
			Query:       query,
			Location:    params.Location,
			ResultCount: len(results),
			UserID:      params.UserID,
			CreatedAt:   s.now().UTC(),
		})
	}
	return results, nil
}

// buildFilter assembles the remote predicate set. Terms are OR'd with each
// other and each term's three field matches are OR'd, so a multi-word query
// matches listings containing any of the words in any searched field.
func (s *searchService) buildFilter(query string, params SearchParams) bson.M {
	filter := bson.M{"status": models.StatusApproved}

	if query != "" {
		var termClauses bson.A
		for _, term := range strings.Fields(query) {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
			termClauses = append(termClauses,
				bson.M{"title": pattern},
				bson.M{"description": pattern},
				bson.M{"category": pattern},
			)
		}
		filter["$or"] = termClauses
	}

	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.Condition != "" {
		filter["condition"] = params.Condition
	}
	if params.MinPrice != nil || params.MaxPrice != nil {
		price := bson.M{}
		if params.MinPrice != nil {
			price["$gte"] = *params.MinPrice
		}
		if params.MaxPrice != nil {
			price["$lte"] = *params.MaxPrice
		}
		filter["price"] = price
	}
	if params.Negotiable != nil {
		filter["negotiable"] = *params.Negotiable
	}
	return filter
}

// remoteSort maps explicit sort modes onto remote orderings.
func remoteSort(mode SortMode) (bson.D, bool) {
	switch mode {
	case SortNewest:
		return bson.D{{Key: "created_at", Value: -1}}, true
	case SortOldest:
		return bson.D{{Key: "created_at", Value: 1}}, true
	case SortPriceLow:
		return bson.D{{Key: "price", Value: 1}}, true
	case SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}}, true
	case SortLocation:
		return bson.D{{Key: "location", Value: 1}}, true
	}
	return nil, false
}

// applyLocationFilter keeps listings whose location contains the requested
// one as a case-insensitive substring. The default city means "anywhere" and
// skips filtering entirely.
func (s *searchService) applyLocationFilter(listings []models.Listing, location string) []models.Listing {
	location = strings.TrimSpace(location)
	if location == "" || strings.EqualFold(location, s.cfg.DefaultCity) {
		return listings
	}
	needle := strings.ToLower(location)
	out := listings[:0]
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Location), needle) {
			out = append(out, l)
		}
	}
	return out
}

// applyDateFilter retains listings created on or after the range cutoff.
func applyDateFilter(listings []models.Listing, dr DateRange, now time.Time) []models.Listing {
	if dr == DateAny {
		return listings
	}
	var cutoff time.Time
	switch dr {
	case DateToday:
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case DateWeek:
		cutoff = now.AddDate(0, 0, -7)
	case DateMonth:
		cutoff = now.AddDate(0, -1, 0)
	case DateYear:
		cutoff = now.AddDate(-1, 0, 0)
	}
	out := listings[:0]
	for _, l := range listings {
		if !l.CreatedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

// RecordSearch persists one executed search. Called from the task worker.
func (s *searchService) RecordSearch(ctx context.Context, record *models.SearchRecord) error {
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	if _, err := s.db.Collection(searchRecordsCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// TopSearchTerms returns the most frequent recorded queries.
func (s *searchService) TopSearchTerms(ctx context.Context, limit int) ([]models.TermCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": bson.M{"$toLower": "$query"}, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	var rows []models.TermCount
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate top search terms: %w", err)
	}
	return rows, nil
}

// SearchCountsByLocation returns per-location search volumes.
func (s *searchService) SearchCountsByLocation(ctx context.Context, limit int) ([]models.LocationCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"location": bson.M{"$ne": ""}}}},
		{{Key: "$group", Value: bson.M{"_id": "$location", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	var rows []models.LocationCount
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate search locations: %w", err)
	}
	return rows, nil
}

// DailySearchTrend returns daily search volume for the trailing window.
func (s *searchService) DailySearchTrend(ctx context.Context, days int) ([]models.DailyCount, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	var rows []models.DailyCount
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate daily search trend: %w", err)
	}
	return rows, nil
}

func (s *searchService) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := s.db.Collection(searchRecordsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
