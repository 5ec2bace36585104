package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/api/handlers"
	"bluestore/server/internal/models"
	"bluestore/server/internal/services"
)

func TestRestSearchHandler_Search_MapsParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearch := new(MockSearchService)
	handler := handlers.NewRestSearchHandler(mockSearch)

	r := gin.New()
	r.GET("/v1/search", handler.Search)

	results := []models.Listing{{ID: primitive.NewObjectID(), Title: "blue phone"}}
	mockSearch.On("Search", mock.Anything, mock.MatchedBy(func(p services.SearchParams) bool {
		return p.Query == "blue phone" &&
			p.Location == "Kumasi" &&
			p.Category == "electronics" &&
			p.MinPrice != nil && *p.MinPrice == 100 &&
			p.MaxPrice != nil && *p.MaxPrice == 2000 &&
			p.Negotiable != nil && *p.Negotiable &&
			p.Sort == services.SortPriceLow &&
			p.DateRange == services.DateWeek
	})).Return(results, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET",
		"/v1/search?q=blue+phone&location=Kumasi&category=electronics&min_price=100&max_price=2000&negotiable=true&sort=price_low&date_range=week", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data  []models.Listing `json:"data"`
		Count int              `json:"count"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	mockSearch.AssertExpectations(t)
}

func TestRestSearchHandler_Search_InvalidSortRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearch := new(MockSearchService)
	handler := handlers.NewRestSearchHandler(mockSearch)

	r := gin.New()
	r.GET("/v1/search", handler.Search)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/search?sort=random", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSearch.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRestSearchHandler_Search_InvalidPriceRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearch := new(MockSearchService)
	handler := handlers.NewRestSearchHandler(mockSearch)

	r := gin.New()
	r.GET("/v1/search", handler.Search)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/search?min_price=cheap", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSearch.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
