package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
	"bluestore/server/internal/tasks"
)

// RestProductHandler serves the cached public product feeds and the
// engagement event endpoint.
type RestProductHandler struct {
	productService   services.IProductService
	analyticsService services.IAnalyticsService
	enqueuer         tasks.IEnqueuer
}

// NewRestProductHandler creates a new RestProductHandler.
func NewRestProductHandler(productService services.IProductService, analyticsService services.IAnalyticsService, enqueuer tasks.IEnqueuer) *RestProductHandler {
	return &RestProductHandler{
		productService:   productService,
		analyticsService: analyticsService,
		enqueuer:         enqueuer,
	}
}

// GetFeatured handles GET /v1/products/featured
func (h *RestProductHandler) GetFeatured(c *gin.Context) {
	listings, err := h.productService.GetFeaturedProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load featured products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetByCategory handles GET /v1/products/category/:category
func (h *RestProductHandler) GetByCategory(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category is required"})
		return
	}
	listings, err := h.productService.GetProductsByCategory(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetByID handles GET /v1/products/:id
// A successful read fires a best-effort view event.
func (h *RestProductHandler) GetByID(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product"})
		return
	}

	h.enqueuer.EnqueueAnalyticsEvent(id, models.EventView)

	c.JSON(http.StatusOK, gin.H{"data": listing})
}

type eventRequest struct {
	Kind models.EventKind `json:"kind" binding:"required"`
}

// RecordEvent handles POST /v1/products/:id/events
// Accepts click and message events from the client; views are recorded
// server-side on detail reads.
func (h *RestProductHandler) RecordEvent(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Kind != models.EventClick && req.Kind != models.EventMessage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event kind must be click or message"})
		return
	}

	h.enqueuer.EnqueueAnalyticsEvent(id, req.Kind)

	c.JSON(http.StatusAccepted, gin.H{"data": "accepted"})
}

// GetMyAnalytics handles GET /v1/my/analytics
func (h *RestProductHandler) GetMyAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.GetUserAnalyticsSummary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analytics summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}
