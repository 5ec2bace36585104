package models

import "time"

// Package feature names resolvable through the package service.
const (
	FeaturePriorityBoost   = "priority_boost"
	FeatureFeaturedListing = "featured_listing"
	FeatureUrgentTag       = "urgent_tag"
)

// Package is admin-managed reference data describing a purchasable ad plan.
// Listings embed a PackageSnapshot at submission time, so edits here never
// retroactively change existing listings.
type Package struct {
	ID           string     `bson:"_id" json:"id"` // Human-readable slug, e.g. "free", "pro-2x"
	Name         string     `bson:"name" json:"name"`
	Price        float64    `bson:"price" json:"price"`
	Duration     string     `bson:"duration" json:"duration"` // Display label, e.g. "30 days"
	DurationDays int        `bson:"duration_days" json:"duration_days"`
	Features     []string   `bson:"features" json:"features"`
	BestFor      string     `bson:"best_for,omitempty" json:"best_for,omitempty"`
	Color        string     `bson:"color,omitempty" json:"color,omitempty"`
	Icon         string     `bson:"icon,omitempty" json:"icon,omitempty"`
	AdsAllowed   *int       `bson:"ads_allowed,omitempty" json:"ads_allowed,omitempty"` // nil = unlimited
	Recommended  bool       `bson:"recommended" json:"recommended"`
	Popular      bool       `bson:"popular" json:"popular"`
	BoostLevel   BoostLevel `bson:"boost_level" json:"boost_level"`
	Featured     bool       `bson:"featured" json:"featured"`
	Urgent       bool       `bson:"urgent" json:"urgent"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// PackageFeature is a single (name, value) pair returned by feature lookups.
type PackageFeature struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Snapshot builds the denormalized copy embedded into listings.
func (p *Package) Snapshot() *PackageSnapshot {
	return &PackageSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Duration:    p.Duration,
		Features:    p.Features,
		BestFor:     p.BestFor,
		Color:       p.Color,
		AdsAllowed:  p.AdsAllowed,
		Recommended: p.Recommended,
		Popular:     p.Popular,
	}
}
