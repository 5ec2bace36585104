package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/models"
)

// INotificationService defines the interface for in-app notifications.
type INotificationService interface {
	Notify(ctx context.Context, userID primitive.ObjectID, notifType, title, message string) error
	// NotifyBestEffort logs a failed insert instead of returning it. Used by
	// flows where a missing notification must not fail the primary action.
	NotifyBestEffort(ctx context.Context, userID primitive.ObjectID, notifType, title, message string)
	ListForUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID primitive.ObjectID) error
}

const notificationsCollection = "notifications"

type notificationService struct {
	db *mongo.Database
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database) INotificationService {
	return &notificationService{db: db}
}

func (s *notificationService) Notify(ctx context.Context, userID primitive.ObjectID, notifType, title, message string) error {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Collection(notificationsCollection).InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to insert %s notification for user %s: %w", notifType, userID.Hex(), err)
	}
	return nil
}

func (s *notificationService) NotifyBestEffort(ctx context.Context, userID primitive.ObjectID, notifType, title, message string) {
	if err := s.Notify(ctx, userID, notifType, title, message); err != nil {
		log.Printf("WARN: best-effort notification dropped: %v", err)
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(notificationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	filter := bson.M{"_id": notificationID, "user_id": userID}
	result, err := s.db.Collection(notificationsCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification %s not found", notificationID.Hex())
	}
	return nil
}
