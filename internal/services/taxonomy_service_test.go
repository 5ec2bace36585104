package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/utils"
)

func newTaxonomyFixture(t *testing.T, dbName string) ITaxonomyService {
	db := utils.SetupTestDB(t, dbName, "categories", "locations")
	return NewTaxonomyService(db)
}

func TestTaxonomyService_CategoryTree(t *testing.T) {
	svc := newTaxonomyFixture(t, "testdb_taxonomy_categories")
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, "Electronics", nil)
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	child, err := svc.CreateCategory(ctx, "Phones", &root.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	grandchild, err := svc.CreateCategory(ctx, "Smartphones", &child.ID)
	require.NoError(t, err)

	// Trees are capped at three levels
	_, err = svc.CreateCategory(ctx, "Android", &grandchild.ID)
	assert.ErrorIs(t, err, ErrTreeTooDeep)

	// Unknown parents are rejected
	missing := primitive.NewObjectID()
	_, err = svc.CreateCategory(ctx, "Orphan", &missing)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	roots, err := svc.ListCategories(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Electronics", roots[0].Name)

	children, err := svc.ListCategories(ctx, &root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Phones", children[0].Name)
}

func TestTaxonomyService_DeleteRemovesSubtree(t *testing.T) {
	svc := newTaxonomyFixture(t, "testdb_taxonomy_delete")
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, "Vehicles", nil)
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, "Cars", &root.ID)
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "Sedans", &child.ID)
	require.NoError(t, err)

	keep, err := svc.CreateCategory(ctx, "Property", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, root.ID))

	roots, err := svc.ListCategories(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, keep.ID, roots[0].ID)

	orphans, err := svc.ListCategories(ctx, &child.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans, "descendants are removed with their ancestor")

	assert.ErrorIs(t, svc.DeleteCategory(ctx, root.ID), ErrNodeNotFound)
}

func TestTaxonomyService_LocationsIndependentOfCategories(t *testing.T) {
	svc := newTaxonomyFixture(t, "testdb_taxonomy_locations")
	ctx := context.Background()

	region, err := svc.CreateLocation(ctx, "Greater Accra", nil)
	require.NoError(t, err)
	_, err = svc.CreateLocation(ctx, "Tema", &region.ID)
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, "Greater Accra", nil)
	require.NoError(t, err)

	locations, err := svc.ListLocations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, locations, 1)

	towns, err := svc.ListLocations(ctx, &region.ID)
	require.NoError(t, err)
	require.Len(t, towns, 1)
	assert.Equal(t, "Tema", towns[0].Name)
}
