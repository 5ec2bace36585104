package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"bluestore/server/internal/api/handlers"
	"bluestore/server/internal/api/middleware"
	"bluestore/server/internal/cache"
	"bluestore/server/internal/config"
	"bluestore/server/internal/services"
	"bluestore/server/internal/storage"
	"bluestore/server/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, productCache *cache.ProductCache, enqueuer tasks.IEnqueuer) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db)
	notificationService := services.NewNotificationService(db)
	packageService := services.NewPackageService(db)
	listingService := services.NewListingService(db, cfg, packageService, notificationService)
	productService := services.NewProductService(listingService, productCache, cfg.BrowseLimit)
	analyticsService := services.NewAnalyticsService(db, packageService)
	searchService := services.NewSearchService(db, cfg, enqueuer)
	taxonomyService := services.NewTaxonomyService(db)
	promoService := services.NewPromoService(db)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}
	kycService := services.NewKYCService(db, s3StorageService, notificationService)

	r := gin.Default()

	// Initialize middleware (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	authHandler := handlers.NewRestAuthHandler(cfg, userService)
	productHandler := handlers.NewRestProductHandler(productService, analyticsService, enqueuer)
	searchHandler := handlers.NewRestSearchHandler(searchService)
	listingHandler := handlers.NewRestListingHandler(listingService, productService, s3StorageService, enqueuer)
	kycHandler := handlers.NewRestKYCHandler(kycService)
	taxonomyHandler := handlers.NewRestTaxonomyHandler(taxonomyService)
	packageHandler := handlers.NewRestPackageHandler(packageService)
	promoHandler := handlers.NewRestPromoHandler(promoService)
	notificationHandler := handlers.NewRestNotificationHandler(notificationService)
	adminHandler := handlers.NewRestAdminHandler(listingService, productService, kycService, userService,
		packageService, taxonomyService, promoService, searchService, enqueuer)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/products/featured", productHandler.GetFeatured)
		v1.GET("/products/category/:category", productHandler.GetByCategory)
		v1.GET("/products/:id", productHandler.GetByID)
		v1.POST("/products/:id/events", productHandler.RecordEvent)

		// Search is public, but an authenticated searcher is attributed on
		// the recorded search.
		v1.GET("/search", middleware.OptionalAuthMiddleware(cfg.JwtSecret), searchHandler.Search)

		v1.GET("/categories", taxonomyHandler.ListCategories)
		v1.GET("/locations", taxonomyHandler.ListLocations)
		v1.GET("/packages", packageHandler.List)
		v1.GET("/packages/:id/features", packageHandler.GetFeatures)
		v1.GET("/promo/:code", promoHandler.Validate)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/listings", listingHandler.Create)
			authRequired.PUT("/listings/:id", listingHandler.Update)
			authRequired.POST("/listings/:id/close", listingHandler.Close)
			authRequired.POST("/listings/:id/reactivate", listingHandler.Reactivate)
			authRequired.DELETE("/listings/:id", listingHandler.Delete)
			authRequired.POST("/listings/:id/images/presign", listingHandler.PresignImage)
			authRequired.POST("/listings/:id/images", listingHandler.ConfirmImage)

			authRequired.GET("/my/listings", listingHandler.MyListings)
			authRequired.GET("/my/analytics", productHandler.GetMyAnalytics)
			authRequired.GET("/my/notifications", notificationHandler.List)
			authRequired.POST("/my/notifications/:id/read", notificationHandler.MarkRead)

			authRequired.POST("/kyc", kycHandler.Submit)
			authRequired.GET("/kyc/status", kycHandler.Status)

			authRequired.POST("/promo/redeem", promoHandler.Redeem)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.GET("/listings/pending", adminHandler.PendingListings)
			adminRequired.POST("/listings/:id/approve", adminHandler.ApproveListing)
			adminRequired.POST("/listings/:id/reject", adminHandler.RejectListing)

			adminRequired.GET("/kyc/pending", adminHandler.PendingKYC)
			adminRequired.POST("/kyc/:id/approve", adminHandler.ApproveKYC)
			adminRequired.POST("/kyc/:id/reject", adminHandler.RejectKYC)

			adminRequired.POST("/users/:id/suspend", adminHandler.SuspendUser)

			adminRequired.GET("/packages", adminHandler.ListPackages)
			adminRequired.PUT("/packages/:id", adminHandler.UpsertPackage)
			adminRequired.DELETE("/packages/:id", adminHandler.DeletePackage)

			adminRequired.POST("/categories", adminHandler.CreateCategory)
			adminRequired.DELETE("/categories/:id", adminHandler.DeleteCategory)
			adminRequired.POST("/locations", adminHandler.CreateLocation)
			adminRequired.DELETE("/locations/:id", adminHandler.DeleteLocation)

			adminRequired.POST("/promo", adminHandler.CreatePromo)
			adminRequired.GET("/promo", adminHandler.ListPromos)
			adminRequired.POST("/promo/:id/active", adminHandler.SetPromoActive)

			adminRequired.GET("/search/terms", adminHandler.TopSearchTerms)
			adminRequired.GET("/search/locations", adminHandler.SearchesByLocation)
			adminRequired.GET("/search/trend", adminHandler.SearchTrend)
		}
	}

	return r
}
