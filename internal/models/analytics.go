package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventKind is the type of engagement event tracked per product.
type EventKind string

const (
	EventView    EventKind = "view"
	EventClick   EventKind = "click"
	EventMessage EventKind = "message"
)

// Valid reports whether k is one of the tracked event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventView, EventClick, EventMessage:
		return true
	}
	return false
}

// AdAnalytics holds one day of engagement counters for one product.
// Identity is the (product_id, date) pair; date is a UTC "YYYY-MM-DD" string.
type AdAnalytics struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ProductID     primitive.ObjectID `bson:"product_id" json:"product_id"`
	Date          string             `bson:"date" json:"date"`
	Views         int64              `bson:"views" json:"views"`
	Clicks        int64              `bson:"clicks" json:"clicks"`
	Messages      int64              `bson:"messages" json:"messages"`
	PriorityScore int                `bson:"priority_score" json:"priority_score"`
	Featured      bool               `bson:"featured" json:"featured"`
	Urgent        bool               `bson:"urgent" json:"urgent"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProductEngagement is a per-product aggregate used by the summary ranking.
type ProductEngagement struct {
	ProductID primitive.ObjectID `bson:"_id" json:"product_id"`
	Title     string             `bson:"title" json:"title"`
	Views     int64              `bson:"views" json:"views"`
	Clicks    int64              `bson:"clicks" json:"clicks"`
	Messages  int64              `bson:"messages" json:"messages"`
	Score     int64              `bson:"score" json:"score"`
}

// AnalyticsSummary is the roll-up across all of a user's products.
type AnalyticsSummary struct {
	TotalViews    int64               `json:"total_views"`
	TotalClicks   int64               `json:"total_clicks"`
	TotalMessages int64               `json:"total_messages"`
	TopProducts   []ProductEngagement `json:"top_products"`
}
