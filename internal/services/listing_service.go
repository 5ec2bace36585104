package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/config"
	"bluestore/server/internal/db"
	"bluestore/server/internal/models"
	"bluestore/server/internal/ranking"
)

// CreateListingInput carries the fields a seller submits for a new ad.
type CreateListingInput struct {
	Title          string
	Description    string
	Category       string
	Condition      models.Condition
	Price          float64
	OriginalPrice  *float64
	Negotiable     bool
	Location       string
	Phone          string
	Images         []string
	MainImageIndex int
	PackageID      string
	Draft          bool
}

// UpdateListingInput carries the owner-editable fields. Nil pointers mean
// "leave unchanged".
type UpdateListingInput struct {
	Title          *string
	Description    *string
	Category       *string
	Condition      *models.Condition
	Price          *float64
	Negotiable     *bool
	Location       *string
	Phone          *string
	Images         []string
	MainImageIndex *int
}

// IListingService defines the interface for listing lifecycle operations.
type IListingService interface {
	CreateListing(ctx context.Context, userID primitive.ObjectID, input CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, input UpdateListingInput) (*models.Listing, error)
	CloseListing(ctx context.Context, listingID, userID primitive.ObjectID) error
	ReactivateListing(ctx context.Context, listingID, userID primitive.ObjectID) error
	DeleteListing(ctx context.Context, listingID, userID primitive.ObjectID) error
	ApproveListing(ctx context.Context, listingID, adminID primitive.ObjectID) error
	RejectListing(ctx context.Context, listingID, adminID primitive.ObjectID, reason, suggestions string) error
	ListPendingListings(ctx context.Context, limit int) ([]models.Listing, error)
	GetFeaturedListings(ctx context.Context, limit int) ([]models.Listing, error)
	GetListingsByCategory(ctx context.Context, category string, limit int) ([]models.Listing, error)
	GetUserListings(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error)
	AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageURL string) error
	ExpireDueListings(ctx context.Context) (int64, error)
}

const listingsCollection = "listings"

// ErrListingNotFound covers missing listings as well as listings the caller
// is not allowed to touch; the distinction is not leaked to the client.
var ErrListingNotFound = errors.New("listing not found")

type listingService struct {
	db            *mongo.Database
	cfg           *config.Config
	packages      IPackageService
	notifications INotificationService
}

// NewListingService creates a new ListingService.
func NewListingService(database *mongo.Database, cfg *config.Config, packages IPackageService, notifications INotificationService) IListingService {
	return &listingService{db: database, cfg: cfg, packages: packages, notifications: notifications}
}

// CreateListing inserts a new listing in pending (or draft) state with the
// package terms denormalized onto it.
func (s *listingService) CreateListing(ctx context.Context, userID primitive.ObjectID, input CreateListingInput) (*models.Listing, error) {
	packageID := input.PackageID
	if packageID == "" {
		packageID = s.cfg.DefaultPackageID
	}
	pkg, err := s.packages.GetPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve package %s: %w", packageID, err)
	}

	now := time.Now().UTC()
	status := models.StatusPending
	if input.Draft {
		status = models.StatusDraft
	}

	mainIdx := input.MainImageIndex
	if mainIdx < 0 || mainIdx >= len(input.Images) {
		mainIdx = 0
	}
	images := input.Images
	if images == nil {
		images = []string{}
	}

	listing := &models.Listing{
		UserID:         userID,
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		Condition:      input.Condition,
		Price:          input.Price,
		OriginalPrice:  input.OriginalPrice,
		Negotiable:     input.Negotiable,
		Location:       input.Location,
		Phone:          input.Phone,
		Images:         images,
		MainImageIndex: mainIdx,
		Status:         status,
		BoostLevel:     pkg.BoostLevel,
		Package:        pkg.Snapshot(),
		PackagePrice:   pkg.Price,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pkg.DurationDays > 0 {
		expires := now.AddDate(0, 0, pkg.DurationDays)
		listing.ExpiresAt = &expires
	}

	operation := func() error {
		listing.ID = primitive.NewObjectID()
		_, insertErr := s.db.Collection(listingsCollection).InsertOne(ctx, listing)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert listing for user %s: %w", userID.Hex(), err)
	}
	return listing, nil
}

// FindListingByID finds a listing by its ID without ownership checks.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

// UpdateListing applies owner edits. Any edit sends the listing back through
// moderation: status resets to pending and the edited flag is set. A price
// change records the old price as previous_price.
func (s *listingService) UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, input UpdateListingInput) (*models.Listing, error) {
	current, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, ErrListingNotFound
	}

	set := bson.M{
		"status":     models.StatusPending,
		"edited":     true,
		"updated_at": time.Now().UTC(),
	}
	unset := bson.M{
		"rejection_reason": "",
		"suggestions":      "",
	}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Category != nil {
		set["category"] = *input.Category
	}
	if input.Condition != nil {
		set["condition"] = *input.Condition
	}
	if input.Price != nil && *input.Price != current.Price {
		set["price"] = *input.Price
		set["previous_price"] = current.Price
	}
	if input.Negotiable != nil {
		set["negotiable"] = *input.Negotiable
	}
	if input.Location != nil {
		set["location"] = *input.Location
	}
	if input.Phone != nil {
		set["phone"] = *input.Phone
	}

	images := current.Images
	if input.Images != nil {
		images = input.Images
		set["images"] = input.Images
	}
	if input.MainImageIndex != nil {
		idx := *input.MainImageIndex
		if idx < 0 || idx >= len(images) {
			idx = 0
		}
		set["main_image_index"] = idx
	} else if current.MainImageIndex >= len(images) {
		set["main_image_index"] = 0
	}

	filter := bson.M{"_id": listingID, "user_id": userID}
	update := bson.M{"$set": set, "$unset": unset}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Listing
	if err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}
	return &updated, nil
}

// transition moves a listing between statuses when the filter matches.
func (s *listingService) transition(ctx context.Context, filter bson.M, to models.AdStatus, extra bson.M) error {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		set[k] = v
	}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error transitioning listing to %s: %w", to, err)
	}
	if result.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

// CloseListing takes an approved listing off the market.
func (s *listingService) CloseListing(ctx context.Context, listingID, userID primitive.ObjectID) error {
	filter := bson.M{"_id": listingID, "user_id": userID, "status": models.StatusApproved}
	return s.transition(ctx, filter, models.StatusClosed, nil)
}

// ReactivateListing puts a closed listing back on the market without
// re-moderation.
func (s *listingService) ReactivateListing(ctx context.Context, listingID, userID primitive.ObjectID) error {
	filter := bson.M{"_id": listingID, "user_id": userID, "status": models.StatusClosed}
	return s.transition(ctx, filter, models.StatusApproved, nil)
}

// DeleteListing removes the listing permanently.
func (s *listingService) DeleteListing(ctx context.Context, listingID, userID primitive.ObjectID) error {
	result, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": listingID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

// ApproveListing makes a pending listing publicly visible and notifies the
// owner.
func (s *listingService) ApproveListing(ctx context.Context, listingID, adminID primitive.ObjectID) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": listingID, "status": models.StatusPending}
	extra := bson.M{"rejection_reason": "", "suggestions": ""}
	if err := s.transition(ctx, filter, models.StatusApproved, extra); err != nil {
		return err
	}
	s.notifications.NotifyBestEffort(ctx, listing.UserID, models.NotificationListingApproved,
		"Listing approved", fmt.Sprintf("Your listing %q is now live.", listing.Title))
	return nil
}

// RejectListing declines a pending listing with a mandatory reason and
// optional improvement suggestions, and notifies the owner.
func (s *listingService) RejectListing(ctx context.Context, listingID, adminID primitive.ObjectID, reason, suggestions string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": listingID, "status": models.StatusPending}
	extra := bson.M{"rejection_reason": reason}
	if suggestions != "" {
		extra["suggestions"] = suggestions
	}
	if err := s.transition(ctx, filter, models.StatusRejected, extra); err != nil {
		return err
	}
	s.notifications.NotifyBestEffort(ctx, listing.UserID, models.NotificationListingRejected,
		"Listing rejected", fmt.Sprintf("Your listing %q was rejected: %s", listing.Title, reason))
	return nil
}

// ListPendingListings returns the moderation queue, oldest first.
func (s *listingService) ListPendingListings(ctx context.Context, limit int) ([]models.Listing, error) {
	filter := bson.M{"status": models.StatusPending}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	return s.findListings(ctx, filter, opts)
}

// GetFeaturedListings returns approved listings in priority order.
func (s *listingService) GetFeaturedListings(ctx context.Context, limit int) ([]models.Listing, error) {
	filter := bson.M{"status": models.StatusApproved}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	listings, err := s.findListings(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return ranking.ByPriority(listings), nil
}

// GetListingsByCategory returns approved listings of one category in
// priority order.
func (s *listingService) GetListingsByCategory(ctx context.Context, category string, limit int) ([]models.Listing, error) {
	filter := bson.M{"status": models.StatusApproved, "category": category}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	listings, err := s.findListings(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return ranking.ByPriority(listings), nil
}

// GetUserListings returns all of a user's listings regardless of status,
// newest first. Owners see their drafts and rejections here.
func (s *listingService) GetUserListings(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findListings(ctx, filter, opts)
}

// AddImageToListing appends a processed image URL. Called by the image
// worker once resizing finishes.
func (s *listingService) AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageURL string) error {
	update := bson.M{
		"$addToSet": bson.M{"images": imageURL},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": listingID}, update)
	if err != nil {
		return fmt.Errorf("db error adding image to listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

// ExpireDueListings flips approved listings past their expiry to expired and
// returns how many were affected. Run periodically by the background worker.
func (s *listingService) ExpireDueListings(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"status":     models.StatusApproved,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.StatusExpired, "updated_at": now}}
	result, err := s.db.Collection(listingsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire due listings: %w", err)
	}
	return result.ModifiedCount, nil
}

func (s *listingService) findListings(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}
