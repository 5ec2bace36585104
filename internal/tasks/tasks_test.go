package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProcessedImageKey(t *testing.T) {
	assert.Equal(t, "processed/u1/l1/photo.jpg", processedImageKey("uploads/u1/l1/photo.png"))
	assert.Equal(t, "processed/u1/l1/photo.jpg", processedImageKey("uploads/u1/l1/photo.jpg"))
	assert.Equal(t, "processed/u1/l1/photo.jpg", processedImageKey("uploads/u1/l1/photo"))
	assert.Equal(t, "other/place/img.jpg", processedImageKey("other/place/img.webp"))
}

func TestSearchRecordPayloadToModel(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now().UTC()
	payload := SearchRecordPayload{
		Query:       "used bicycle",
		Location:    "Tamale",
		ResultCount: 7,
		UserID:      &userID,
		CreatedAt:   now,
	}

	record := payload.ToModel()
	assert.Equal(t, "used bicycle", record.Query)
	assert.Equal(t, "Tamale", record.Location)
	assert.Equal(t, 7, record.ResultCount)
	assert.Equal(t, &userID, record.UserID)
	assert.Equal(t, now, record.CreatedAt)
	assert.True(t, record.ID.IsZero())
}
