package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/models"
	"bluestore/server/internal/storage"
)

// KYCUpload is one file attached to a submission.
type KYCUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// KYCSubmissionInput is everything the verification form collects.
type KYCSubmissionInput struct {
	FullName       string
	DateOfBirth    string
	Address        string
	DocumentType   models.DocumentType
	DocumentNumber string
	Front          *KYCUpload
	Back           *KYCUpload
	Selfie         *KYCUpload
	ConsentTerms   bool
	ConsentData    bool
}

// IKYCService defines the interface for identity-verification submissions
// and their admin review.
type IKYCService interface {
	ValidateSubmission(input *KYCSubmissionInput) error
	Submit(ctx context.Context, userID primitive.ObjectID, input *KYCSubmissionInput) (*models.KYCSubmission, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.KYCSubmission, error)
	ListPending(ctx context.Context, limit int) ([]models.KYCSubmission, error)
	Approve(ctx context.Context, submissionID, reviewerID primitive.ObjectID) error
	Reject(ctx context.Context, submissionID, reviewerID primitive.ObjectID, reason string) error
}

const kycCollection = "kyc_submissions"

var (
	// ErrKYCNotFound is returned when no submission matches.
	ErrKYCNotFound = errors.New("kyc submission not found")
	// ErrKYCAlreadySubmitted is returned on a second submission for the
	// same user.
	ErrKYCAlreadySubmitted = errors.New("kyc already submitted for this user")
	// ErrKYCAlreadyReviewed is returned when approving or rejecting a
	// submission that has left the pending state.
	ErrKYCAlreadyReviewed = errors.New("kyc submission already reviewed")
)

type kycService struct {
	db            *mongo.Database
	store         storage.IObjectStorage
	notifications INotificationService
}

// NewKYCService creates a new KYCService.
func NewKYCService(db *mongo.Database, store storage.IObjectStorage, notifications INotificationService) IKYCService {
	return &kycService{db: db, store: store, notifications: notifications}
}

// ValidateSubmission enforces the submit gate: both consents checked, front
// and selfie always present, and a back image whenever the document type has
// one (license and Ghana Card do, voter's ID does not).
func (s *kycService) ValidateSubmission(input *KYCSubmissionInput) error {
	if !input.DocumentType.Valid() {
		return fmt.Errorf("unknown document type %q", input.DocumentType)
	}
	if input.DocumentNumber == "" {
		return fmt.Errorf("document number is required")
	}
	if !input.ConsentTerms || !input.ConsentData {
		return fmt.Errorf("both consent confirmations are required")
	}
	if input.Front == nil {
		return fmt.Errorf("front-of-document image is required")
	}
	if input.Selfie == nil {
		return fmt.Errorf("selfie with document is required")
	}
	if input.DocumentType.RequiresBack() && input.Back == nil {
		return fmt.Errorf("back-of-document image is required for %s", input.DocumentType)
	}
	return nil
}

// Submit uploads the attached files to per-user, per-file-type paths and
// inserts the pending submission row. One submission per user.
func (s *kycService) Submit(ctx context.Context, userID primitive.ObjectID, input *KYCSubmissionInput) (*models.KYCSubmission, error) {
	if err := s.ValidateSubmission(input); err != nil {
		return nil, err
	}

	existing, err := s.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrKYCNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrKYCAlreadySubmitted
	}

	frontURL, err := s.uploadDocument(ctx, userID, "front", input.Front)
	if err != nil {
		return nil, err
	}
	var backURL string
	if input.Back != nil {
		backURL, err = s.uploadDocument(ctx, userID, "back", input.Back)
		if err != nil {
			return nil, err
		}
	}
	selfieURL, err := s.uploadDocument(ctx, userID, "selfie", input.Selfie)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	submission := &models.KYCSubmission{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		FullName:       input.FullName,
		DateOfBirth:    input.DateOfBirth,
		Address:        input.Address,
		DocumentType:   input.DocumentType,
		DocumentNumber: input.DocumentNumber,
		FrontImageURL:  frontURL,
		BackImageURL:   backURL,
		SelfieImageURL: selfieURL,
		ConsentTerms:   input.ConsentTerms,
		ConsentData:    input.ConsentData,
		Status:         models.KYCPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.db.Collection(kycCollection).InsertOne(ctx, submission); err != nil {
		// The unique user_id index closes the lookup/insert race on
		// double submits.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrKYCAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to insert kyc submission for user %s: %w", userID.Hex(), err)
	}
	return submission, nil
}

func (s *kycService) uploadDocument(ctx context.Context, userID primitive.ObjectID, fileType string, upload *KYCUpload) (string, error) {
	key := storage.KYCDocumentKey(userID.Hex(), fileType, upload.Filename)
	url, err := s.store.UploadPublic(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return "", fmt.Errorf("failed to upload kyc %s image: %w", fileType, err)
	}
	return url, nil
}

func (s *kycService) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.KYCSubmission, error) {
	var submission models.KYCSubmission
	err := s.db.Collection(kycCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&submission)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKYCNotFound
		}
		return nil, fmt.Errorf("error finding kyc submission for user %s: %w", userID.Hex(), err)
	}
	return &submission, nil
}

func (s *kycService) ListPending(ctx context.Context, limit int) ([]models.KYCSubmission, error) {
	filter := bson.M{"status": models.KYCPending}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(kycCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending kyc submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []models.KYCSubmission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode kyc submissions: %w", err)
	}
	return submissions, nil
}

// Approve marks a pending submission approved and notifies the submitter.
func (s *kycService) Approve(ctx context.Context, submissionID, reviewerID primitive.ObjectID) error {
	if err := s.review(ctx, submissionID, reviewerID, models.KYCApproved, ""); err != nil {
		return err
	}

	var submission models.KYCSubmission
	if err := s.db.Collection(kycCollection).FindOne(ctx, bson.M{"_id": submissionID}).Decode(&submission); err != nil {
		return fmt.Errorf("failed to load approved kyc submission %s: %w", submissionID.Hex(), err)
	}
	s.notifications.NotifyBestEffort(ctx, submission.UserID, models.NotificationKYCApproved,
		"Verification approved", "Your identity has been verified. Your listings now carry the verified badge.")
	return nil
}

// Reject marks a pending submission rejected with a mandatory reason and
// synchronously inserts a rejection notification for the submitter.
func (s *kycService) Reject(ctx context.Context, submissionID, reviewerID primitive.ObjectID, reason string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}
	if err := s.review(ctx, submissionID, reviewerID, models.KYCRejected, reason); err != nil {
		return err
	}

	var submission models.KYCSubmission
	if err := s.db.Collection(kycCollection).FindOne(ctx, bson.M{"_id": submissionID}).Decode(&submission); err != nil {
		return fmt.Errorf("failed to load rejected kyc submission %s: %w", submissionID.Hex(), err)
	}
	return s.notifications.Notify(ctx, submission.UserID, models.NotificationKYCRejected,
		"Verification rejected", fmt.Sprintf("Your identity verification was rejected: %s", reason))
}

func (s *kycService) review(ctx context.Context, submissionID, reviewerID primitive.ObjectID, to models.KYCStatus, reason string) error {
	now := time.Now().UTC()
	set := bson.M{
		"status":      to,
		"reviewer_id": reviewerID,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}

	filter := bson.M{"_id": submissionID, "status": models.KYCPending}
	result, err := s.db.Collection(kycCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error reviewing kyc submission %s: %w", submissionID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing submission from one already reviewed.
		count, countErr := s.db.Collection(kycCollection).CountDocuments(ctx, bson.M{"_id": submissionID})
		if countErr == nil && count > 0 {
			return ErrKYCAlreadyReviewed
		}
		return ErrKYCNotFound
	}
	return nil
}
