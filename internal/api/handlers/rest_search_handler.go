package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/api/middleware"
	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
)

// RestSearchHandler handles product search requests.
type RestSearchHandler struct {
	searchService services.ISearchService
}

// NewRestSearchHandler creates a new RestSearchHandler.
func NewRestSearchHandler(searchService services.ISearchService) *RestSearchHandler {
	return &RestSearchHandler{searchService: searchService}
}

// Search handles GET /v1/search
func (h *RestSearchHandler) Search(c *gin.Context) {
	params := services.SearchParams{
		Query:     c.Query("q"),
		Location:  c.Query("location"),
		Category:  c.Query("category"),
		Condition: models.Condition(c.Query("condition")),
		DateRange: services.DateRange(c.Query("date_range")),
		Sort:      services.SortMode(c.Query("sort")),
	}

	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
			return
		}
		params.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
			return
		}
		params.MaxPrice = &v
	}
	if raw := c.Query("negotiable"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid negotiable"})
			return
		}
		params.Negotiable = &v
	}

	// Optional identity: the search routes are public, but an authenticated
	// searcher is attributed on the recorded search.
	if raw, exists := c.Get(middleware.ContextKeyUserID); exists {
		if hex, ok := raw.(string); ok {
			if id, err := primitive.ObjectIDFromHex(hex); err == nil {
				params.UserID = &id
			}
		}
	}

	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listings, err := h.searchService.Search(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": listings, "count": len(listings)})
}
