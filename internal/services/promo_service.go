package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/models"
)

// IPromoService defines the interface for promo code management and
// redemption.
type IPromoService interface {
	CreatePromoCode(ctx context.Context, promo *models.PromoCode) error
	ListPromoCodes(ctx context.Context) ([]models.PromoCode, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	Validate(ctx context.Context, code string) (*models.PromoCode, error)
	Redeem(ctx context.Context, code string) (*models.PromoCode, error)
}

const promoCodesCollection = "promo_codes"

var (
	// ErrPromoNotFound is returned for unknown codes.
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrPromoNotRedeemable is returned when a code exists but is
	// inactive, outside its window, or fully used.
	ErrPromoNotRedeemable = errors.New("promo code not redeemable")
)

type promoService struct {
	db  *mongo.Database
	now func() time.Time
}

// NewPromoService creates a new PromoService.
func NewPromoService(database *mongo.Database) IPromoService {
	return &promoService{db: database, now: time.Now}
}

func (s *promoService) CreatePromoCode(ctx context.Context, promo *models.PromoCode) error {
	promo.Code = normalizeCode(promo.Code)
	if promo.Code == "" {
		return fmt.Errorf("promo code is required")
	}
	if promo.DiscountType == "" {
		promo.DiscountType = "free"
	}
	now := s.now().UTC()
	promo.ID = primitive.NewObjectID()
	promo.UsedCount = 0
	promo.CreatedAt = now
	promo.UpdatedAt = now

	if _, err := s.db.Collection(promoCodesCollection).InsertOne(ctx, promo); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("promo code %s already exists", promo.Code)
		}
		return fmt.Errorf("failed to insert promo code %s: %w", promo.Code, err)
	}
	return nil
}

func (s *promoService) ListPromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(promoCodesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	var codes []models.PromoCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return codes, nil
}

func (s *promoService) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": s.now().UTC()}}
	result, err := s.db.Collection(promoCodesCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update promo code %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// Validate checks a code without consuming a use.
func (s *promoService) Validate(ctx context.Context, code string) (*models.PromoCode, error) {
	promo, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !promo.Redeemable(s.now().UTC()) {
		return nil, ErrPromoNotRedeemable
	}
	return promo, nil
}

// Redeem consumes one use. The cap check and the increment are a single
// conditional update, so concurrent redemptions cannot push used_count past
// max_uses.
func (s *promoService) Redeem(ctx context.Context, code string) (*models.PromoCode, error) {
	now := s.now().UTC()
	filter := bson.M{
		"code":        normalizeCode(code),
		"is_active":   true,
		"valid_from":  bson.M{"$lte": now},
		"valid_until": bson.M{"$gte": now},
		"$or": bson.A{
			bson.M{"max_uses": bson.M{"$exists": false}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var promo models.PromoCode
	err := s.db.Collection(promoCodesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&promo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either unknown or not redeemable; look again to tell the
			// caller which.
			if _, findErr := s.findByCode(ctx, code); findErr != nil {
				return nil, findErr
			}
			return nil, ErrPromoNotRedeemable
		}
		return nil, fmt.Errorf("failed to redeem promo code %s: %w", code, err)
	}
	return &promo, nil
}

func (s *promoService) findByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.Collection(promoCodesCollection).FindOne(ctx, bson.M{"code": normalizeCode(code)}).Decode(&promo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("error finding promo code %s: %w", code, err)
	}
	return &promo, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
