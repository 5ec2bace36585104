package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
	"bluestore/server/internal/tasks"
)

// RestAdminHandler handles the moderation and back-office surface.
type RestAdminHandler struct {
	listingService  services.IListingService
	productService  services.IProductService
	kycService      services.IKYCService
	userService     services.IUserService
	packageService  services.IPackageService
	taxonomyService services.ITaxonomyService
	promoService    services.IPromoService
	searchService   services.ISearchService
	enqueuer        tasks.IEnqueuer
}

// NewRestAdminHandler creates a new RestAdminHandler.
func NewRestAdminHandler(listingService services.IListingService, productService services.IProductService,
	kycService services.IKYCService, userService services.IUserService, packageService services.IPackageService,
	taxonomyService services.ITaxonomyService, promoService services.IPromoService,
	searchService services.ISearchService, enqueuer tasks.IEnqueuer) *RestAdminHandler {
	return &RestAdminHandler{
		listingService:  listingService,
		productService:  productService,
		kycService:      kycService,
		userService:     userService,
		packageService:  packageService,
		taxonomyService: taxonomyService,
		promoService:    promoService,
		searchService:   searchService,
		enqueuer:        enqueuer,
	}
}

func limitQuery(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 || limit > max {
		return def
	}
	return limit
}

// --- Listing moderation ---

// PendingListings handles GET /v1/admin/listings/pending
func (h *RestAdminHandler) PendingListings(c *gin.Context) {
	listings, err := h.listingService.ListPendingListings(c.Request.Context(), limitQuery(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// ApproveListing handles POST /v1/admin/listings/:id/approve
func (h *RestAdminHandler) ApproveListing(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := h.listingService.ApproveListing(c.Request.Context(), listingID, adminID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve listing"})
		return
	}

	h.productService.InvalidateProduct(listingID, listing.Category)
	h.sendDecisionEmail(c, listing, "Your listing was approved",
		fmt.Sprintf("Good news: your listing %q is now live.", listing.Title))

	c.JSON(http.StatusOK, gin.H{"data": "approved"})
}

type rejectListingRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Suggestions string `json:"suggestions"`
}

// RejectListing handles POST /v1/admin/listings/:id/reject
func (h *RestAdminHandler) RejectListing(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req rejectListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A rejection reason is required"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := h.listingService.RejectListing(c.Request.Context(), listingID, adminID, req.Reason, req.Suggestions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject listing"})
		return
	}

	h.productService.InvalidateProduct(listingID, listing.Category)
	h.sendDecisionEmail(c, listing, "Your listing was not approved",
		fmt.Sprintf("Your listing %q was rejected: %s", listing.Title, req.Reason))

	c.JSON(http.StatusOK, gin.H{"data": "rejected"})
}

// sendDecisionEmail queues a moderation decision email to the listing owner.
// Failure to resolve the owner only skips the email.
func (h *RestAdminHandler) sendDecisionEmail(c *gin.Context, listing *models.Listing, subject, body string) {
	owner, err := h.userService.FindByID(c.Request.Context(), listing.UserID)
	if err != nil || owner.Email == "" {
		return
	}
	h.enqueuer.EnqueueDecisionEmail(owner.Email, subject, body)
}

// --- KYC review ---

// PendingKYC handles GET /v1/admin/kyc/pending
func (h *RestAdminHandler) PendingKYC(c *gin.Context) {
	submissions, err := h.kycService.ListPending(c.Request.Context(), limitQuery(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": submissions})
}

// ApproveKYC handles POST /v1/admin/kyc/:id/approve
func (h *RestAdminHandler) ApproveKYC(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	submissionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.kycService.Approve(c.Request.Context(), submissionID, adminID); err != nil {
		h.kycReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "approved"})
}

type rejectKYCRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectKYC handles POST /v1/admin/kyc/:id/reject
func (h *RestAdminHandler) RejectKYC(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	submissionID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req rejectKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A rejection reason is required"})
		return
	}

	if err := h.kycService.Reject(c.Request.Context(), submissionID, adminID, req.Reason); err != nil {
		h.kycReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "rejected"})
}

func (h *RestAdminHandler) kycReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrKYCNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case errors.Is(err, services.ErrKYCAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already reviewed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to review submission"})
	}
}

// --- Users ---

type suspendUserRequest struct {
	Suspended bool `json:"suspended"`
}

// SuspendUser handles POST /v1/admin/users/:id/suspend
func (h *RestAdminHandler) SuspendUser(c *gin.Context) {
	userID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req suspendUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.userService.SetSuspended(c.Request.Context(), userID, req.Suspended); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// --- Packages ---

// ListPackages handles GET /v1/admin/packages
func (h *RestAdminHandler) ListPackages(c *gin.Context) {
	packages, err := h.packageService.ListPackages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": packages})
}

// UpsertPackage handles PUT /v1/admin/packages/:id
func (h *RestAdminHandler) UpsertPackage(c *gin.Context) {
	var pkg models.Package
	if err := c.ShouldBindJSON(&pkg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	pkg.ID = c.Param("id")
	if pkg.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Package id is required"})
		return
	}

	if err := h.packageService.UpsertPackage(c.Request.Context(), &pkg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save package"})
		return
	}

	// Boost weights may have changed; cached feed ordering is stale.
	h.productService.InvalidateAll()

	c.JSON(http.StatusOK, gin.H{"data": pkg})
}

// DeletePackage handles DELETE /v1/admin/packages/:id
func (h *RestAdminHandler) DeletePackage(c *gin.Context) {
	if err := h.packageService.DeletePackage(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrPackageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete package"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// --- Taxonomy ---

type createNodeRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID string `json:"parent_id"`
}

func (r *createNodeRequest) parent(c *gin.Context) (*primitive.ObjectID, bool) {
	if r.ParentID == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(r.ParentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent_id format"})
		return nil, false
	}
	return &id, true
}

// CreateCategory handles POST /v1/admin/categories
func (h *RestAdminHandler) CreateCategory(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	parentID, ok := req.parent(c)
	if !ok {
		return
	}

	category, err := h.taxonomyService.CreateCategory(c.Request.Context(), req.Name, parentID)
	if err != nil {
		h.treeError(c, err, "category")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": category})
}

// DeleteCategory handles DELETE /v1/admin/categories/:id
func (h *RestAdminHandler) DeleteCategory(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.taxonomyService.DeleteCategory(c.Request.Context(), id); err != nil {
		h.treeError(c, err, "category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// CreateLocation handles POST /v1/admin/locations
func (h *RestAdminHandler) CreateLocation(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	parentID, ok := req.parent(c)
	if !ok {
		return
	}

	location, err := h.taxonomyService.CreateLocation(c.Request.Context(), req.Name, parentID)
	if err != nil {
		h.treeError(c, err, "location")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": location})
}

// DeleteLocation handles DELETE /v1/admin/locations/:id
func (h *RestAdminHandler) DeleteLocation(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.taxonomyService.DeleteLocation(c.Request.Context(), id); err != nil {
		h.treeError(c, err, "location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

func (h *RestAdminHandler) treeError(c *gin.Context, err error, kind string) {
	switch {
	case errors.Is(err, services.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Parent " + kind + " not found"})
	case errors.Is(err, services.ErrTreeTooDeep):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tree depth limit exceeded"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update " + kind})
	}
}

// --- Promo codes ---

type createPromoRequest struct {
	Code        string    `json:"code" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	MaxUses     *int64    `json:"max_uses"`
	ValidFrom   time.Time `json:"valid_from" binding:"required"`
	ValidUntil  time.Time `json:"valid_until" binding:"required"`
}

// CreatePromo handles POST /v1/admin/promo
func (h *RestAdminHandler) CreatePromo(c *gin.Context) {
	var req createPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid_until must be after valid_from"})
		return
	}

	promo := &models.PromoCode{
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		DiscountType: "free",
		MaxUses:      req.MaxUses,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		IsActive:     true,
	}
	if err := h.promoService.CreatePromoCode(c.Request.Context(), promo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promo code"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": promo})
}

// ListPromos handles GET /v1/admin/promo
func (h *RestAdminHandler) ListPromos(c *gin.Context) {
	promos, err := h.promoService.ListPromoCodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promo codes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": promos})
}

type setPromoActiveRequest struct {
	Active bool `json:"active"`
}

// SetPromoActive handles POST /v1/admin/promo/:id/active
func (h *RestAdminHandler) SetPromoActive(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req setPromoActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.promoService.SetActive(c.Request.Context(), id, req.Active); err != nil {
		if errors.Is(err, services.ErrPromoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update promo code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// --- Search analytics ---

// TopSearchTerms handles GET /v1/admin/search/terms
func (h *RestAdminHandler) TopSearchTerms(c *gin.Context) {
	terms, err := h.searchService.TopSearchTerms(c.Request.Context(), limitQuery(c, 20, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load search terms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": terms})
}

// SearchesByLocation handles GET /v1/admin/search/locations
func (h *RestAdminHandler) SearchesByLocation(c *gin.Context) {
	locations, err := h.searchService.SearchCountsByLocation(c.Request.Context(), limitQuery(c, 20, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load location counts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations})
}

// SearchTrend handles GET /v1/admin/search/trend
func (h *RestAdminHandler) SearchTrend(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}
	trend, err := h.searchService.DailySearchTrend(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load search trend"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trend})
}
