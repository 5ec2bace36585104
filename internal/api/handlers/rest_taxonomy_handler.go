package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/services"
)

// RestTaxonomyHandler serves the public category and location trees.
type RestTaxonomyHandler struct {
	taxonomyService services.ITaxonomyService
}

// NewRestTaxonomyHandler creates a new RestTaxonomyHandler.
func NewRestTaxonomyHandler(taxonomyService services.ITaxonomyService) *RestTaxonomyHandler {
	return &RestTaxonomyHandler{taxonomyService: taxonomyService}
}

// parentIDQuery parses the optional ?parent_id= query parameter.
func parentIDQuery(c *gin.Context) (*primitive.ObjectID, bool) {
	raw := c.Query("parent_id")
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent_id format"})
		return nil, false
	}
	return &id, true
}

// ListCategories handles GET /v1/categories
func (h *RestTaxonomyHandler) ListCategories(c *gin.Context) {
	parentID, ok := parentIDQuery(c)
	if !ok {
		return
	}
	categories, err := h.taxonomyService.ListCategories(c.Request.Context(), parentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// ListLocations handles GET /v1/locations
func (h *RestTaxonomyHandler) ListLocations(c *gin.Context) {
	parentID, ok := parentIDQuery(c)
	if !ok {
		return
	}
	locations, err := h.taxonomyService.ListLocations(c.Request.Context(), parentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations})
}
