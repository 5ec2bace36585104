package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bluestore/server/internal/services"
)

// RestPromoHandler handles promo code validation and redemption.
type RestPromoHandler struct {
	promoService services.IPromoService
}

// NewRestPromoHandler creates a new RestPromoHandler.
func NewRestPromoHandler(promoService services.IPromoService) *RestPromoHandler {
	return &RestPromoHandler{promoService: promoService}
}

// Validate handles GET /v1/promo/:code
// Read-only check; does not consume a use.
func (h *RestPromoHandler) Validate(c *gin.Context) {
	promo, err := h.promoService.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPromoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		case errors.Is(err, services.ErrPromoNotRedeemable):
			c.JSON(http.StatusGone, gin.H{"error": "Promo code is no longer redeemable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate promo code"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": promo})
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem handles POST /v1/promo/redeem
// Atomically consumes one use of the code.
func (h *RestPromoHandler) Redeem(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	promo, err := h.promoService.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPromoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		case errors.Is(err, services.ErrPromoNotRedeemable):
			c.JSON(http.StatusGone, gin.H{"error": "Promo code is no longer redeemable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem promo code"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": promo})
}
