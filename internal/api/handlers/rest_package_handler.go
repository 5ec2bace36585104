package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bluestore/server/internal/services"
)

// RestPackageHandler serves the public package catalogue.
type RestPackageHandler struct {
	packageService services.IPackageService
}

// NewRestPackageHandler creates a new RestPackageHandler.
func NewRestPackageHandler(packageService services.IPackageService) *RestPackageHandler {
	return &RestPackageHandler{packageService: packageService}
}

// List handles GET /v1/packages
func (h *RestPackageHandler) List(c *gin.Context) {
	packages, err := h.packageService.ListPackages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": packages})
}

// GetFeatures handles GET /v1/packages/:id/features
func (h *RestPackageHandler) GetFeatures(c *gin.Context) {
	features, err := h.packageService.GetPackageFeatures(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPackageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load package features"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": features})
}
