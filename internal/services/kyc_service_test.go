package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bluestore/server/internal/models"
	"bluestore/server/internal/utils"
)

// fakeObjectStorage records uploads in memory.
type fakeObjectStorage struct {
	uploads map[string]string // key -> content type
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{uploads: make(map[string]string)}
}

func (f *fakeObjectStorage) UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	f.uploads[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjectStorage) GeneratePresignedPutURL(ctx context.Context, key, contentType string) (string, error) {
	return "https://s3.test/presigned/" + key, nil
}

func (f *fakeObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeObjectStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func upload(name string) *KYCUpload {
	return &KYCUpload{
		Filename:    name,
		ContentType: "image/jpeg",
		Body:        strings.NewReader("fake image bytes"),
	}
}

func validKYCInput(docType models.DocumentType) *KYCSubmissionInput {
	input := &KYCSubmissionInput{
		FullName:       "Ama Mensah",
		DateOfBirth:    "1990-04-12",
		Address:        "12 Ring Road, Accra",
		DocumentType:   docType,
		DocumentNumber: "GHA-000000000-1",
		Front:          upload("front.jpg"),
		Selfie:         upload("selfie.jpg"),
		ConsentTerms:   true,
		ConsentData:    true,
	}
	if docType.RequiresBack() {
		input.Back = upload("back.jpg")
	}
	return input
}

func setupKYCService(t *testing.T, dbName string) (IKYCService, *fakeObjectStorage, *mongo.Database) {
	db := utils.SetupTestDB(t, dbName, "kyc_submissions", "notifications")
	store := newFakeObjectStorage()
	return NewKYCService(db, store, NewNotificationService(db)), store, db
}

func TestKYCService_ValidateSubmission(t *testing.T) {
	svc, _, _ := setupKYCService(t, "testdb_kyc_validate")

	// Happy path for each document type
	assert.NoError(t, svc.ValidateSubmission(validKYCInput(models.DocumentLicense)))
	assert.NoError(t, svc.ValidateSubmission(validKYCInput(models.DocumentGhanaCard)))
	assert.NoError(t, svc.ValidateSubmission(validKYCInput(models.DocumentVotersID)))

	// Voter's ID has no back side to upload
	votersID := validKYCInput(models.DocumentVotersID)
	votersID.Back = nil
	assert.NoError(t, svc.ValidateSubmission(votersID))

	// License and Ghana Card require the back image
	for _, docType := range []models.DocumentType{models.DocumentLicense, models.DocumentGhanaCard} {
		input := validKYCInput(docType)
		input.Back = nil
		assert.Error(t, svc.ValidateSubmission(input), "back image must be required for %s", docType)
	}

	// Both consents are mandatory
	input := validKYCInput(models.DocumentVotersID)
	input.ConsentTerms = false
	assert.Error(t, svc.ValidateSubmission(input))

	input = validKYCInput(models.DocumentVotersID)
	input.ConsentData = false
	assert.Error(t, svc.ValidateSubmission(input))

	input = validKYCInput(models.DocumentVotersID)
	input.Front = nil
	assert.Error(t, svc.ValidateSubmission(input))

	input = validKYCInput(models.DocumentVotersID)
	input.Selfie = nil
	assert.Error(t, svc.ValidateSubmission(input))

	input = validKYCInput(models.DocumentVotersID)
	input.DocumentNumber = ""
	assert.Error(t, svc.ValidateSubmission(input))

	input = validKYCInput(models.DocumentVotersID)
	input.DocumentType = "passport"
	assert.Error(t, svc.ValidateSubmission(input))
}

func TestKYCService_SubmitUploadsAndStores(t *testing.T) {
	svc, store, _ := setupKYCService(t, "testdb_kyc_submit")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	submission, err := svc.Submit(ctx, userID, validKYCInput(models.DocumentGhanaCard))
	require.NoError(t, err)

	assert.Equal(t, models.KYCPending, submission.Status)
	assert.Contains(t, submission.FrontImageURL, userID.Hex())
	assert.NotEmpty(t, submission.BackImageURL)
	assert.NotEmpty(t, submission.SelfieImageURL)
	assert.Len(t, store.uploads, 3)

	found, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, submission.ID, found.ID)
	assert.Equal(t, models.DocumentGhanaCard, found.DocumentType)
}

func TestKYCService_OneSubmissionPerUser(t *testing.T) {
	svc, _, _ := setupKYCService(t, "testdb_kyc_double")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, err := svc.Submit(ctx, userID, validKYCInput(models.DocumentVotersID))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, userID, validKYCInput(models.DocumentVotersID))
	assert.ErrorIs(t, err, ErrKYCAlreadySubmitted)
}

func TestKYCService_ReviewFlow(t *testing.T) {
	svc, _, db := setupKYCService(t, "testdb_kyc_review")
	ctx := context.Background()
	reviewerID := primitive.NewObjectID()

	applicant := primitive.NewObjectID()
	submission, err := svc.Submit(ctx, applicant, validKYCInput(models.DocumentGhanaCard))
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, 50)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Approve(ctx, submission.ID, reviewerID))

	found, err := svc.GetByUser(ctx, applicant)
	require.NoError(t, err)
	assert.Equal(t, models.KYCApproved, found.Status)
	require.NotNil(t, found.ReviewerID)
	assert.Equal(t, reviewerID, *found.ReviewerID)
	assert.NotNil(t, found.ReviewedAt)

	// Reviews are single-shot
	assert.ErrorIs(t, svc.Approve(ctx, submission.ID, reviewerID), ErrKYCAlreadyReviewed)
	assert.ErrorIs(t, svc.Reject(ctx, submission.ID, reviewerID, "blurry"), ErrKYCAlreadyReviewed)

	// Approval leaves a notification for the submitter
	count, err := db.Collection("notifications").CountDocuments(ctx, bson.M{"user_id": applicant})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestKYCService_RejectRequiresReasonAndNotifies(t *testing.T) {
	svc, _, db := setupKYCService(t, "testdb_kyc_reject")
	ctx := context.Background()
	reviewerID := primitive.NewObjectID()

	applicant := primitive.NewObjectID()
	submission, err := svc.Submit(ctx, applicant, validKYCInput(models.DocumentVotersID))
	require.NoError(t, err)

	assert.Error(t, svc.Reject(ctx, submission.ID, reviewerID, ""))

	require.NoError(t, svc.Reject(ctx, submission.ID, reviewerID, "document number does not match"))

	found, err := svc.GetByUser(ctx, applicant)
	require.NoError(t, err)
	assert.Equal(t, models.KYCRejected, found.Status)
	assert.Equal(t, "document number does not match", found.RejectionReason)

	var notif models.Notification
	err = db.Collection("notifications").FindOne(ctx, bson.M{"user_id": applicant}).Decode(&notif)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationKYCRejected, notif.Type)

	// Unknown submission id
	assert.ErrorIs(t, svc.Approve(ctx, primitive.NewObjectID(), reviewerID), ErrKYCNotFound)
}
