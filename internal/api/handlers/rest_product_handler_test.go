package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/api/handlers"
	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
)

func TestRestProductHandler_GetByID_FiresViewEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockProducts := new(MockProductService)
	mockAnalytics := new(MockAnalyticsService)
	mockEnqueuer := new(MockEnqueuer)
	handler := handlers.NewRestProductHandler(mockProducts, mockAnalytics, mockEnqueuer)

	r := gin.New()
	r.GET("/v1/products/:id", handler.GetByID)

	productID := primitive.NewObjectID()
	expected := &models.Listing{
		ID:     productID,
		Title:  "Samsung TV",
		Status: models.StatusApproved,
	}
	mockProducts.On("GetProductByID", mock.Anything, productID).Return(expected, nil)
	mockEnqueuer.On("EnqueueAnalyticsEvent", productID, models.EventView).Return()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/products/"+productID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data models.Listing `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Samsung TV", resp.Data.Title)
	mockProducts.AssertExpectations(t)
	mockEnqueuer.AssertExpectations(t)
}

func TestRestProductHandler_GetByID_NotFoundSkipsEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockProducts := new(MockProductService)
	mockEnqueuer := new(MockEnqueuer)
	handler := handlers.NewRestProductHandler(mockProducts, new(MockAnalyticsService), mockEnqueuer)

	r := gin.New()
	r.GET("/v1/products/:id", handler.GetByID)

	productID := primitive.NewObjectID()
	mockProducts.On("GetProductByID", mock.Anything, productID).Return(nil, services.ErrListingNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/products/"+productID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockEnqueuer.AssertNotCalled(t, "EnqueueAnalyticsEvent", mock.Anything, mock.Anything)
}

func TestRestProductHandler_GetByID_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestProductHandler(new(MockProductService), new(MockAnalyticsService), new(MockEnqueuer))

	r := gin.New()
	r.GET("/v1/products/:id", handler.GetByID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/products/not-a-hex-id", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestProductHandler_RecordEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockEnqueuer := new(MockEnqueuer)
	handler := handlers.NewRestProductHandler(new(MockProductService), new(MockAnalyticsService), mockEnqueuer)

	r := gin.New()
	r.POST("/v1/products/:id/events", handler.RecordEvent)

	productID := primitive.NewObjectID()
	mockEnqueuer.On("EnqueueAnalyticsEvent", productID, models.EventClick).Return()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/products/"+productID.Hex()+"/events",
		strings.NewReader(`{"kind":"click"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockEnqueuer.AssertExpectations(t)
}

func TestRestProductHandler_RecordEvent_RejectsViewKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockEnqueuer := new(MockEnqueuer)
	handler := handlers.NewRestProductHandler(new(MockProductService), new(MockAnalyticsService), mockEnqueuer)

	r := gin.New()
	r.POST("/v1/products/:id/events", handler.RecordEvent)

	// Views are recorded server-side; clients can only send click/message
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/products/"+primitive.NewObjectID().Hex()+"/events",
		strings.NewReader(`{"kind":"view"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockEnqueuer.AssertNotCalled(t, "EnqueueAnalyticsEvent", mock.Anything, mock.Anything)
}

func TestRestProductHandler_GetFeatured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockProducts := new(MockProductService)
	handler := handlers.NewRestProductHandler(mockProducts, new(MockAnalyticsService), new(MockEnqueuer))

	r := gin.New()
	r.GET("/v1/products/featured", handler.GetFeatured)

	feed := []models.Listing{
		{ID: primitive.NewObjectID(), Title: "Boosted first"},
		{ID: primitive.NewObjectID(), Title: "Plain second"},
	}
	mockProducts.On("GetFeaturedProducts", mock.Anything).Return(feed, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/products/featured", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.Listing `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "Boosted first", resp.Data[0].Title)
	mockProducts.AssertExpectations(t)
}
