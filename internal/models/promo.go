package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PromoCode is an admin-managed discount code. The only discount type in use
// is "free" (100% off a package purchase).
type PromoCode struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code         string             `bson:"code" json:"code"` // Uppercased, unique
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	DiscountType string             `bson:"discount_type" json:"discount_type"`
	MaxUses      *int64             `bson:"max_uses,omitempty" json:"max_uses,omitempty"` // nil = uncapped
	ValidFrom    time.Time          `bson:"valid_from" json:"valid_from"`
	ValidUntil   time.Time          `bson:"valid_until" json:"valid_until"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	UsedCount    int64              `bson:"used_count" json:"used_count"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Redeemable reports whether the code can be redeemed at the given instant.
func (p *PromoCode) Redeemable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return false
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		return false
	}
	return true
}
