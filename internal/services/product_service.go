package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/cache"
	"bluestore/server/internal/models"
)

// IProductService is the cached read path over listings. The three browse
// operations (featured, by-category, by-id) are memoized for the cache TTL;
// every write through this service invalidates the affected keys so readers
// never see a stale entry past the invalidation.
type IProductService interface {
	GetFeaturedProducts(ctx context.Context) ([]models.Listing, error)
	GetProductsByCategory(ctx context.Context, category string) ([]models.Listing, error)
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	InvalidateProduct(id primitive.ObjectID, category string)
	InvalidateAll()
}

type productService struct {
	listings IListingService
	cache    *cache.ProductCache
	limit    int
}

// NewProductService creates the cached product read service.
func NewProductService(listings IListingService, productCache *cache.ProductCache, browseLimit int) IProductService {
	return &productService{listings: listings, cache: productCache, limit: browseLimit}
}

func (s *productService) GetFeaturedProducts(ctx context.Context) ([]models.Listing, error) {
	v, err := s.cache.GetOrFetch(cache.FeaturedKey(), func() (interface{}, error) {
		return s.listings.GetFeaturedListings(ctx, s.limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Listing), nil
}

func (s *productService) GetProductsByCategory(ctx context.Context, category string) ([]models.Listing, error) {
	v, err := s.cache.GetOrFetch(cache.CategoryKey(category), func() (interface{}, error) {
		return s.listings.GetListingsByCategory(ctx, category, s.limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Listing), nil
}

// GetProductByID memoizes lookups including misses: a not-found result is
// cached as a nil value for the full TTL, mirroring the positive path.
func (s *productService) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	v, err := s.cache.GetOrFetch(cache.ProductKey(id.Hex()), func() (interface{}, error) {
		listing, err := s.listings.FindListingByID(ctx, id)
		if errors.Is(err, ErrListingNotFound) {
			return (*models.Listing)(nil), nil
		}
		if err != nil {
			return nil, err
		}
		return listing, nil
	})
	if err != nil {
		return nil, err
	}
	listing := v.(*models.Listing)
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// InvalidateProduct drops the entries a single listing change can affect.
func (s *productService) InvalidateProduct(id primitive.ObjectID, category string) {
	s.cache.Invalidate(cache.ProductKey(id.Hex()))
	s.cache.Invalidate(cache.FeaturedKey())
	if category != "" {
		s.cache.Invalidate(cache.CategoryKey(category))
	}
}

// InvalidateAll clears the whole cache.
func (s *productService) InvalidateAll() {
	s.cache.Clear()
}
