package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bluestore/server/internal/config"
	"bluestore/server/internal/models"
	"bluestore/server/internal/utils"
)

// capturingRecorder collects enqueued search records in memory.
type capturingRecorder struct {
	records []*models.SearchRecord
}

func (r *capturingRecorder) EnqueueSearchRecord(record *models.SearchRecord) {
	r.records = append(r.records, record)
}

func setupTestDBSearch(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "listings", "packages", "notifications", "search_records")
}

func searchTestConfig() *config.Config {
	return &config.Config{
		DefaultPackageID:  "free",
		DefaultCity:       "Accra",
		BrowseLimit:       50,
		SearchRemoteLimit: 100,
	}
}

func seedSearchListings(t *testing.T, db *mongo.Database, cfg *config.Config) IListingService {
	packages := NewPackageService(db)
	seedTestPackages(t, packages)
	listings := NewListingService(db, cfg, packages, NewNotificationService(db))
	ctx := context.Background()
	adminID := primitive.NewObjectID()

	seed := []CreateListingInput{
		{Title: "blue phone", Description: "barely used", Category: "electronics", Price: 900, Location: "Kumasi", Negotiable: true},
		{Title: "red bicycle", Description: "great condition", Category: "sports", Price: 300, Location: "Accra"},
		{Title: "dining table", Description: "solid oak", Category: "furniture", Price: 1500, Location: "Tema", Negotiable: true},
		{Title: "washing machine", Description: "7kg front loader", Category: "appliances", Price: 2200, Location: "East Legon, Accra"},
	}
	for _, input := range seed {
		listing, err := listings.CreateListing(ctx, primitive.NewObjectID(), input)
		require.NoError(t, err)
		require.NoError(t, listings.ApproveListing(ctx, listing.ID, adminID))
	}

	// A pending listing must never surface in search
	_, err := listings.CreateListing(ctx, primitive.NewObjectID(), CreateListingInput{
		Title: "blue kettle", Description: "still boxed", Category: "appliances", Price: 80,
	})
	require.NoError(t, err)

	return listings
}

func titles(listings []models.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.Title
	}
	return out
}

func TestSearchService_CrossFieldOrSemantics(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_or")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	svc := NewSearchService(db, cfg, nil)

	// "blue" hits one title, "condition" hits another description: both match
	results, err := svc.Search(context.Background(), SearchParams{Query: "blue condition"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blue phone", "red bicycle"}, titles(results))
}

func TestSearchService_BlankQueryBrowsesApproved(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_browse")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	recorder := &capturingRecorder{}
	svc := NewSearchService(db, cfg, recorder)

	results, err := svc.Search(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Len(t, results, 4, "pending listings stay hidden")
	assert.Empty(t, recorder.records, "blank queries are not recorded")
}

func TestSearchService_StructuredFilters(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_filters")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	svc := NewSearchService(db, cfg, nil)
	ctx := context.Background()

	minPrice := 500.0
	results, err := svc.Search(ctx, SearchParams{MinPrice: &minPrice})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blue phone", "dining table", "washing machine"}, titles(results))

	maxPrice := 1000.0
	results, err = svc.Search(ctx, SearchParams{MinPrice: &minPrice, MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Equal(t, []string{"blue phone"}, titles(results))

	negotiable := true
	results, err = svc.Search(ctx, SearchParams{Negotiable: &negotiable})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blue phone", "dining table"}, titles(results))

	results, err = svc.Search(ctx, SearchParams{Category: "sports"})
	require.NoError(t, err)
	assert.Equal(t, []string{"red bicycle"}, titles(results))
}

func TestSearchService_LocationFilter(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_location")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	svc := NewSearchService(db, cfg, nil)
	ctx := context.Background()

	// Substring, case-insensitive
	results, err := svc.Search(ctx, SearchParams{Location: "accra"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"red bicycle", "washing machine"}, titles(results))

	// The default city means "anywhere"
	results, err = svc.Search(ctx, SearchParams{Location: "Accra"})
	require.NoError(t, err)
	if cfg.DefaultCity == "Accra" {
		assert.Len(t, results, 4)
	}
}

func TestSearchService_SortModes(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_sort")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	svc := NewSearchService(db, cfg, nil)
	ctx := context.Background()

	results, err := svc.Search(ctx, SearchParams{Sort: SortPriceLow})
	require.NoError(t, err)
	assert.Equal(t, []string{"red bicycle", "blue phone", "dining table", "washing machine"}, titles(results))

	results, err = svc.Search(ctx, SearchParams{Sort: SortPriceHigh})
	require.NoError(t, err)
	assert.Equal(t, "washing machine", results[0].Title)

	results, err = svc.Search(ctx, SearchParams{Sort: SortLocation})
	require.NoError(t, err)
	assert.Equal(t, "red bicycle", results[0].Title) // Accra sorts first
}

func TestSearchService_InvalidParamsRejected(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_invalid")
	svc := NewSearchService(db, searchTestConfig(), nil)
	ctx := context.Background()

	_, err := svc.Search(ctx, SearchParams{Sort: SortMode("random")})
	assert.Error(t, err)

	_, err = svc.Search(ctx, SearchParams{DateRange: DateRange("decade")})
	assert.Error(t, err)
}

func TestSearchService_RecordsNonBlankQueries(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_record")
	cfg := searchTestConfig()
	seedSearchListings(t, db, cfg)
	recorder := &capturingRecorder{}
	svc := NewSearchService(db, cfg, recorder)

	userID := primitive.NewObjectID()
	_, err := svc.Search(context.Background(), SearchParams{
		Query:    "bicycle",
		Location: "Kumasi",
		UserID:   &userID,
	})
	require.NoError(t, err)

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, "bicycle", record.Query)
	assert.Equal(t, "Kumasi", record.Location)
	assert.Zero(t, record.ResultCount) // bicycle is in Accra, filtered out
	require.NotNil(t, record.UserID)
	assert.Equal(t, userID, *record.UserID)
}

func TestSearchService_Aggregations(t *testing.T) {
	db := setupTestDBSearch(t, "testdb_search_aggregations")
	cfg := searchTestConfig()
	svc := NewSearchService(db, cfg, nil)
	ctx := context.Background()

	for _, q := range []string{"iphone", "iPhone", "sofa", "IPHONE", "sofa", "generator"} {
		require.NoError(t, svc.RecordSearch(ctx, &models.SearchRecord{Query: q, Location: "Accra"}))
	}
	require.NoError(t, svc.RecordSearch(ctx, &models.SearchRecord{Query: "sofa", Location: "Kumasi"}))

	terms, err := svc.TopSearchTerms(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, terms)
	assert.Equal(t, "iphone", terms[0].Term, "terms are case-folded")
	assert.Equal(t, int64(3), terms[0].Count)

	locations, err := svc.SearchCountsByLocation(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, locations)
	assert.Equal(t, "Accra", locations[0].Location)
	assert.Equal(t, int64(6), locations[0].Count)

	trend, err := svc.DailySearchTrend(ctx, 7)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, int64(7), trend[0].Count)
}
