package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
)

// maxKYCUploadBytes bounds each uploaded document image.
const maxKYCUploadBytes = 10 << 20

// RestKYCHandler handles identity-verification submissions.
type RestKYCHandler struct {
	kycService services.IKYCService
}

// NewRestKYCHandler creates a new RestKYCHandler.
func NewRestKYCHandler(kycService services.IKYCService) *RestKYCHandler {
	return &RestKYCHandler{kycService: kycService}
}

// formUpload converts an optional multipart file into a KYCUpload. The
// returned closer must be closed by the caller when non-nil.
func formUpload(c *gin.Context, field string) (*services.KYCUpload, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if header.Size > maxKYCUploadBytes {
		return nil, nil, errors.New(field + " exceeds the 10MB limit")
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &services.KYCUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, f, nil
}

// Submit handles POST /v1/kyc
// Multipart form: text fields plus front/back/selfie image files.
func (h *RestKYCHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	input := &services.KYCSubmissionInput{
		FullName:       c.PostForm("full_name"),
		DateOfBirth:    c.PostForm("date_of_birth"),
		Address:        c.PostForm("address"),
		DocumentType:   models.DocumentType(c.PostForm("document_type")),
		DocumentNumber: c.PostForm("document_number"),
		ConsentTerms:   c.PostForm("consent_terms") == "true",
		ConsentData:    c.PostForm("consent_data") == "true",
	}

	for _, field := range []struct {
		name string
		dst  **services.KYCUpload
	}{
		{"front_image", &input.Front},
		{"back_image", &input.Back},
		{"selfie_image", &input.Selfie},
	} {
		upload, f, err := formUpload(c, field.name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + field.name + ": " + err.Error()})
			return
		}
		if f != nil {
			defer f.Close()
		}
		*field.dst = upload
	}

	if err := h.kycService.ValidateSubmission(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.kycService.Submit(c.Request.Context(), userID, input)
	if err != nil {
		if errors.Is(err, services.ErrKYCAlreadySubmitted) {
			c.JSON(http.StatusConflict, gin.H{"error": "A verification request already exists for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit verification request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": submission})
}

// Status handles GET /v1/kyc/status
func (h *RestKYCHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	submission, err := h.kycService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrKYCNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No verification request found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load verification status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": submission})
}
