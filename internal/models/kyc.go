package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentType is the identity document chosen for verification.
type DocumentType string

const (
	DocumentLicense   DocumentType = "license"
	DocumentGhanaCard DocumentType = "ghana_card"
	DocumentVotersID  DocumentType = "voters_id"
)

// Valid reports whether t is a supported document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentLicense, DocumentGhanaCard, DocumentVotersID:
		return true
	}
	return false
}

// RequiresBack reports whether the document type needs a back-of-document
// upload. Voter's ID cards have no back image.
func (t DocumentType) RequiresBack() bool {
	return t == DocumentLicense || t == DocumentGhanaCard
}

// KYCStatus is the review state of a submission.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// KYCSubmission is one identity-verification record; at most one per user.
type KYCSubmission struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"user_id"`
	FullName        string              `bson:"full_name" json:"full_name"`
	DateOfBirth     string              `bson:"date_of_birth" json:"date_of_birth"`
	Address         string              `bson:"address" json:"address"`
	DocumentType    DocumentType        `bson:"document_type" json:"document_type"`
	DocumentNumber  string              `bson:"document_number" json:"document_number"`
	FrontImageURL   string              `bson:"front_image_url" json:"front_image_url"`
	BackImageURL    string              `bson:"back_image_url,omitempty" json:"back_image_url,omitempty"`
	SelfieImageURL  string              `bson:"selfie_image_url" json:"selfie_image_url"`
	ConsentTerms    bool                `bson:"consent_terms" json:"consent_terms"`
	ConsentData     bool                `bson:"consent_data" json:"consent_data"`
	Status          KYCStatus           `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ReviewerID      *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
