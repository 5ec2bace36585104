package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types emitted by moderation flows.
const (
	NotificationKYCApproved     = "kyc_approved"
	NotificationKYCRejected     = "kyc_rejected"
	NotificationListingApproved = "listing_approved"
	NotificationListingRejected = "listing_rejected"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
