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

	"bluestore/server/internal/db"
	"bluestore/server/internal/models"
)

// ITaxonomyService manages the two three-level reference trees: categories
// (category > subcategory > subsubcategory) and locations (region > city >
// town). Admin writes only; reads are public.
type ITaxonomyService interface {
	CreateCategory(ctx context.Context, name string, parentID *primitive.ObjectID) (*models.Category, error)
	ListCategories(ctx context.Context, parentID *primitive.ObjectID) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id primitive.ObjectID) error
	CreateLocation(ctx context.Context, name string, parentID *primitive.ObjectID) (*models.Location, error)
	ListLocations(ctx context.Context, parentID *primitive.ObjectID) ([]models.Location, error)
	DeleteLocation(ctx context.Context, id primitive.ObjectID) error
}

const (
	categoriesCollection = "categories"
	locationsCollection  = "locations"
)

// Both trees are capped at three levels.
const maxTreeDepth = 3

// ErrNodeNotFound is returned when a tree node id resolves to nothing.
var ErrNodeNotFound = errors.New("tree node not found")

// ErrTreeTooDeep is returned when a create would exceed three levels.
var ErrTreeTooDeep = errors.New("tree depth limit exceeded")

type taxonomyService struct {
	db *mongo.Database
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(database *mongo.Database) ITaxonomyService {
	return &taxonomyService{db: database}
}

func (s *taxonomyService) CreateCategory(ctx context.Context, name string, parentID *primitive.ObjectID) (*models.Category, error) {
	if err := s.checkDepth(ctx, categoriesCollection, parentID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	category := &models.Category{
		Name:      name,
		ParentID:  parentID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	operation := func() error {
		category.ID = primitive.NewObjectID()
		_, insertErr := s.db.Collection(categoriesCollection).InsertOne(ctx, category)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert category %q: %w", name, err)
	}
	return category, nil
}

func (s *taxonomyService) ListCategories(ctx context.Context, parentID *primitive.ObjectID) ([]models.Category, error) {
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, treeFilter(parentID), listOpts())
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)
	var nodes []models.Category
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return nodes, nil
}

// DeleteCategory removes a node and all of its descendants.
func (s *taxonomyService) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteSubtree(ctx, categoriesCollection, id)
}

func (s *taxonomyService) CreateLocation(ctx context.Context, name string, parentID *primitive.ObjectID) (*models.Location, error) {
	if err := s.checkDepth(ctx, locationsCollection, parentID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	location := &models.Location{
		Name:      name,
		ParentID:  parentID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	operation := func() error {
		location.ID = primitive.NewObjectID()
		_, insertErr := s.db.Collection(locationsCollection).InsertOne(ctx, location)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert location %q: %w", name, err)
	}
	return location, nil
}

func (s *taxonomyService) ListLocations(ctx context.Context, parentID *primitive.ObjectID) ([]models.Location, error) {
	cursor, err := s.db.Collection(locationsCollection).Find(ctx, treeFilter(parentID), listOpts())
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer cursor.Close(ctx)
	var nodes []models.Location
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	return nodes, nil
}

// DeleteLocation removes a node and all of its descendants.
func (s *taxonomyService) DeleteLocation(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteSubtree(ctx, locationsCollection, id)
}

// checkDepth walks up the parent chain and rejects creates below level three.
func (s *taxonomyService) checkDepth(ctx context.Context, coll string, parentID *primitive.ObjectID) error {
	depth := 1
	for parentID != nil {
		depth++
		if depth > maxTreeDepth {
			return ErrTreeTooDeep
		}
		var parent struct {
			ParentID *primitive.ObjectID `bson:"parent_id"`
		}
		err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": *parentID}).Decode(&parent)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrNodeNotFound
			}
			return fmt.Errorf("failed to resolve parent node: %w", err)
		}
		parentID = parent.ParentID
	}
	return nil
}

// deleteSubtree removes the node and, breadth-first, everything under it.
// This is an administrative cascade, not referential integrity: listings
// keep their category string.
func (s *taxonomyService) deleteSubtree(ctx context.Context, coll string, id primitive.ObjectID) error {
	frontier := []primitive.ObjectID{id}
	var all []primitive.ObjectID
	for len(frontier) > 0 {
		all = append(all, frontier...)
		cursor, err := s.db.Collection(coll).Find(ctx,
			bson.M{"parent_id": bson.M{"$in": frontier}},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return fmt.Errorf("failed to collect descendants: %w", err)
		}
		var children []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.All(ctx, &children); err != nil {
			return fmt.Errorf("failed to decode descendants: %w", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			frontier = append(frontier, c.ID)
		}
	}

	result, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": all}})
	if err != nil {
		return fmt.Errorf("failed to delete subtree: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func treeFilter(parentID *primitive.ObjectID) bson.M {
	filter := bson.M{"active": true}
	if parentID != nil {
		filter["parent_id"] = *parentID
	} else {
		filter["parent_id"] = bson.M{"$exists": false}
	}
	return filter
}

func listOpts() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
}
