package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchRecord is one executed search, kept for analytics aggregation.
// Only non-blank queries are recorded.
type SearchRecord struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Query       string              `bson:"query" json:"query"`
	Location    string              `bson:"location,omitempty" json:"location,omitempty"`
	ResultCount int                 `bson:"result_count" json:"result_count"`
	UserID      *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}

// TermCount is one entry of the top-search-terms aggregation.
type TermCount struct {
	Term  string `bson:"_id" json:"term"`
	Count int64  `bson:"count" json:"count"`
}

// LocationCount is one entry of the per-location search aggregation.
type LocationCount struct {
	Location string `bson:"_id" json:"location"`
	Count    int64  `bson:"count" json:"count"`
}

// DailyCount is one entry of the daily search-volume trend.
type DailyCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}
