package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluestore/server/internal/models"
	"bluestore/server/internal/ranking"
)

// IPackageService defines the interface for ad-package reference data.
type IPackageService interface {
	GetPackage(ctx context.Context, id string) (*models.Package, error)
	ListPackages(ctx context.Context) ([]models.Package, error)
	UpsertPackage(ctx context.Context, pkg *models.Package) error
	DeletePackage(ctx context.Context, id string) error
	GetPackageFeatures(ctx context.Context, id string) ([]models.PackageFeature, error)
	PackageHasFeature(ctx context.Context, id, name string) (bool, error)
	PriorityBoost(ctx context.Context, id string) (int, error)
}

const packagesCollection = "packages"

// ErrPackageNotFound is returned when a package id resolves to nothing.
var ErrPackageNotFound = errors.New("package not found")

type packageService struct {
	db *mongo.Database
}

// NewPackageService creates a new PackageService.
func NewPackageService(db *mongo.Database) IPackageService {
	return &packageService{db: db}
}

func (s *packageService) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	var pkg models.Package
	err := s.db.Collection(packagesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&pkg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("error finding package %s: %w", id, err)
	}
	return &pkg, nil
}

func (s *packageService) ListPackages(ctx context.Context) ([]models.Package, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})
	cursor, err := s.db.Collection(packagesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer cursor.Close(ctx)

	var packages []models.Package
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, fmt.Errorf("failed to decode packages: %w", err)
	}
	return packages, nil
}

// UpsertPackage creates or replaces a package. Admin-only at the API layer.
// Existing listings are unaffected: they carry their own snapshot.
func (s *packageService) UpsertPackage(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == "" {
		return fmt.Errorf("package id is required")
	}
	now := time.Now().UTC()
	pkg.UpdatedAt = now
	if pkg.CreatedAt.IsZero() {
		pkg.CreatedAt = now
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(packagesCollection).ReplaceOne(ctx, bson.M{"_id": pkg.ID}, pkg, opts); err != nil {
		return fmt.Errorf("failed to upsert package %s: %w", pkg.ID, err)
	}
	return nil
}

func (s *packageService) DeletePackage(ctx context.Context, id string) error {
	result, err := s.db.Collection(packagesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete package %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrPackageNotFound
	}
	return nil
}

func (s *packageService) GetPackageFeatures(ctx context.Context, id string) ([]models.PackageFeature, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	return []models.PackageFeature{
		{Name: models.FeaturePriorityBoost, Value: strconv.Itoa(ranking.BoostWeight(pkg.BoostLevel))},
		{Name: models.FeatureFeaturedListing, Value: strconv.FormatBool(pkg.Featured)},
		{Name: models.FeatureUrgentTag, Value: strconv.FormatBool(pkg.Urgent)},
	}, nil
}

func (s *packageService) PackageHasFeature(ctx context.Context, id, name string) (bool, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return false, err
	}
	switch name {
	case models.FeatureFeaturedListing:
		return pkg.Featured, nil
	case models.FeatureUrgentTag:
		return pkg.Urgent, nil
	case models.FeaturePriorityBoost:
		return pkg.BoostLevel == models.BoostSingle || pkg.BoostLevel == models.BoostDouble, nil
	}
	return false, nil
}

func (s *packageService) PriorityBoost(ctx context.Context, id string) (int, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return 0, err
	}
	return ranking.BoostWeight(pkg.BoostLevel), nil
}
