package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdStatus is the lifecycle state of a listing.
type AdStatus string

const (
	StatusDraft      AdStatus = "draft"
	StatusPending    AdStatus = "pending"
	StatusApproved   AdStatus = "approved"
	StatusRejected   AdStatus = "rejected"
	StatusClosed     AdStatus = "closed"
	StatusProcessing AdStatus = "processing"
	StatusExpired    AdStatus = "expired"
)

// BoostLevel is the promotional tier attached to a listing via its package.
type BoostLevel string

const (
	BoostNone   BoostLevel = "none"
	BoostSingle BoostLevel = "boost"
	BoostDouble BoostLevel = "2x_boost"
)

// Condition of the advertised item.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

// PackageSnapshot is the package terms denormalized onto a listing at
// submission time. Later package edits must not change what an existing
// listing displays.
type PackageSnapshot struct {
	ID          string   `bson:"id" json:"id"`
	Name        string   `bson:"name" json:"name"`
	Price       float64  `bson:"price" json:"price"`
	Duration    string   `bson:"duration" json:"duration"`
	Features    []string `bson:"features" json:"features"`
	BestFor     string   `bson:"best_for,omitempty" json:"best_for,omitempty"`
	Color       string   `bson:"color,omitempty" json:"color,omitempty"`
	AdsAllowed  *int     `bson:"ads_allowed,omitempty" json:"ads_allowed,omitempty"`
	Recommended bool     `bson:"recommended" json:"recommended"`
	Popular     bool     `bson:"popular" json:"popular"`
}

// Listing represents a single marketplace ad.
type Listing struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Category        string             `bson:"category" json:"category"`
	Condition       Condition          `bson:"condition" json:"condition"`
	Price           float64            `bson:"price" json:"price"`
	OriginalPrice   *float64           `bson:"original_price,omitempty" json:"original_price,omitempty"`
	PreviousPrice   *float64           `bson:"previous_price,omitempty" json:"previous_price,omitempty"` // Set when an edit changes Price
	Negotiable      bool               `bson:"negotiable" json:"negotiable"`
	Location        string             `bson:"location" json:"location"`
	Phone           string             `bson:"phone" json:"phone"`
	Images          []string           `bson:"images" json:"images"` // Public URLs
	MainImageIndex  int                `bson:"main_image_index" json:"main_image_index"`
	Status          AdStatus           `bson:"status" json:"status"`
	RejectionReason string             `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Suggestions     string             `bson:"suggestions,omitempty" json:"suggestions,omitempty"`
	Edited          bool               `bson:"edited" json:"edited"`
	BoostLevel      BoostLevel         `bson:"boost_level" json:"boost_level"`
	Package         *PackageSnapshot   `bson:"package,omitempty" json:"package,omitempty"`
	PackagePrice    float64            `bson:"package_price" json:"package_price"` // Stored separately for sort stability
	ExpiresAt       *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// MainImage returns the main image URL, or "" when the listing has no images.
// MainImageIndex is kept valid on write, but reads stay defensive against
// documents edited out of band.
func (l *Listing) MainImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	if l.MainImageIndex < 0 || l.MainImageIndex >= len(l.Images) {
		return l.Images[0]
	}
	return l.Images[l.MainImageIndex]
}
