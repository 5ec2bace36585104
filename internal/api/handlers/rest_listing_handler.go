package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
	"bluestore/server/internal/storage"
	"bluestore/server/internal/tasks"
)

// RestListingHandler handles the seller-facing listing lifecycle.
type RestListingHandler struct {
	listingService services.IListingService
	productService services.IProductService
	store          storage.IObjectStorage
	enqueuer       tasks.IEnqueuer
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService, productService services.IProductService,
	store storage.IObjectStorage, enqueuer tasks.IEnqueuer) *RestListingHandler {
	return &RestListingHandler{
		listingService: listingService,
		productService: productService,
		store:          store,
		enqueuer:       enqueuer,
	}
}

type createListingRequest struct {
	Title          string           `json:"title" binding:"required"`
	Description    string           `json:"description" binding:"required"`
	Category       string           `json:"category" binding:"required"`
	Condition      models.Condition `json:"condition"`
	Price          float64          `json:"price" binding:"min=0"`
	OriginalPrice  *float64         `json:"original_price"`
	Negotiable     bool             `json:"negotiable"`
	Location       string           `json:"location"`
	Phone          string           `json:"phone"`
	Images         []string         `json:"images"`
	MainImageIndex int              `json:"main_image_index"`
	PackageID      string           `json:"package_id"`
	Draft          bool             `json:"draft"`
}

// Create handles POST /v1/listings
func (h *RestListingHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, services.CreateListingInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		Negotiable:     req.Negotiable,
		Location:       req.Location,
		Phone:          req.Phone,
		Images:         req.Images,
		MainImageIndex: req.MainImageIndex,
		PackageID:      req.PackageID,
		Draft:          req.Draft,
	})
	if err != nil {
		if errors.Is(err, services.ErrPackageNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown package"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create listing"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": listing})
}

type updateListingRequest struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Category       *string           `json:"category"`
	Condition      *models.Condition `json:"condition"`
	Price          *float64          `json:"price"`
	Negotiable     *bool             `json:"negotiable"`
	Location       *string           `json:"location"`
	Phone          *string           `json:"phone"`
	Images         []string          `json:"images"`
	MainImageIndex *int              `json:"main_image_index"`
}

// Update handles PUT /v1/listings/:id
// Any accepted edit puts the listing back into moderation.
func (h *RestListingHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, services.UpdateListingInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		Price:          req.Price,
		Negotiable:     req.Negotiable,
		Location:       req.Location,
		Phone:          req.Phone,
		Images:         req.Images,
		MainImageIndex: req.MainImageIndex,
	})
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update listing"})
		return
	}

	h.productService.InvalidateProduct(listing.ID, listing.Category)

	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// Close handles POST /v1/listings/:id/close
func (h *RestListingHandler) Close(c *gin.Context) {
	h.transition(c, h.listingService.CloseListing)
}

// Reactivate handles POST /v1/listings/:id/reactivate
func (h *RestListingHandler) Reactivate(c *gin.Context) {
	h.transition(c, h.listingService.ReactivateListing)
}

// Delete handles DELETE /v1/listings/:id
func (h *RestListingHandler) Delete(c *gin.Context) {
	h.transition(c, h.listingService.DeleteListing)
}

// transition runs an owner-only state change and invalidates the read cache.
func (h *RestListingHandler) transition(c *gin.Context, op func(ctx context.Context, listingID, userID primitive.ObjectID) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	// Category is needed for a precise cache invalidation; fetch before the
	// state change since Delete removes the document.
	category := ""
	if listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID); err == nil {
		category = listing.Category
	}

	if err := op(c.Request.Context(), listingID, userID); err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update listing"})
		return
	}

	h.productService.InvalidateProduct(listingID, category)

	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// MyListings handles GET /v1/my/listings
func (h *RestListingHandler) MyListings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	listings, err := h.listingService.GetUserListings(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

type presignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignImage handles POST /v1/listings/:id/images/presign
// Returns a short-lived PUT URL the client uploads the raw image to.
func (h *RestListingHandler) PresignImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req presignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content type must be an image"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if listing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the listing owner"})
		return
	}

	key := storage.ListingImageKey(userID.Hex(), listingID.Hex(), req.Filename)
	url, err := h.store.GeneratePresignedPutURL(c.Request.Context(), key, req.ContentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"upload_url": url, "key": key}})
}

type confirmImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// ConfirmImage handles POST /v1/listings/:id/images
// Called after the client finishes the presigned upload; queues the resize
// and attach job.
func (h *RestListingHandler) ConfirmImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req confirmImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// The key embeds the owner and listing; refuse confirmations for keys
	// outside the caller's namespace.
	expectedPrefix := "uploads/" + userID.Hex() + "/" + listingID.Hex() + "/"
	if !strings.HasPrefix(req.Key, expectedPrefix) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Key does not belong to this listing"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if listing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the listing owner"})
		return
	}

	h.enqueuer.EnqueueImageProcess(listingID, req.Key)

	c.JSON(http.StatusAccepted, gin.H{"data": "processing"})
}
