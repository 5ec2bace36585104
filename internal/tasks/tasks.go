package tasks

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/models"
)

// Task types processed by the background workers.
const (
	TypeAnalyticsEvent = "analytics:event"
	TypeSearchRecord   = "search:record"
	TypeDecisionEmail  = "email:decision"
	TypeListingExpiry  = "listings:expire"
	TypeImageProcess   = "image:process"
)

// Queue names: user-triggered side effects run on default, housekeeping and
// images on their own queues so a backlog of one cannot starve the others.
const (
	QueueDefault = "default"
	QueueLow     = "low"
	QueueImages  = "images"
)

// AnalyticsEventPayload is the body of an analytics:event task.
type AnalyticsEventPayload struct {
	ProductID primitive.ObjectID `json:"product_id"`
	Kind      models.EventKind   `json:"kind"`
}

// SearchRecordPayload is the body of a search:record task.
type SearchRecordPayload struct {
	Query       string              `json:"query"`
	Location    string              `json:"location,omitempty"`
	ResultCount int                 `json:"result_count"`
	UserID      *primitive.ObjectID `json:"user_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ToModel converts the payload back to the persisted form.
func (p SearchRecordPayload) ToModel() *models.SearchRecord {
	return &models.SearchRecord{
		Query:       p.Query,
		Location:    p.Location,
		ResultCount: p.ResultCount,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
	}
}

// DecisionEmailPayload is the body of an email:decision task.
type DecisionEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ImageProcessPayload is the body of an image:process task.
type ImageProcessPayload struct {
	ListingID primitive.ObjectID `json:"listing_id"`
	ObjectKey string             `json:"object_key"`
}

// NewClient creates an asynq client on the shared Redis connection.
func NewClient(rdb *redis.Client) *asynq.Client {
	opts := rdb.Options()
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// IEnqueuer is the narrow enqueue surface handlers and services depend on.
// Every method is best-effort by contract: enqueue failures are logged and
// swallowed so engagement telemetry can never break a user-facing flow.
type IEnqueuer interface {
	EnqueueAnalyticsEvent(productID primitive.ObjectID, kind models.EventKind)
	EnqueueSearchRecord(record *models.SearchRecord)
	EnqueueDecisionEmail(to, subject, body string)
	EnqueueImageProcess(listingID primitive.ObjectID, objectKey string)
}

// Enqueuer wraps an asynq client with the best-effort policy.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an Enqueuer.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(taskType string, payload interface{}, opts ...asynq.Option) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WARN: failed to marshal %s payload: %v", taskType, err)
		return
	}
	if _, err := e.client.Enqueue(asynq.NewTask(taskType, data), opts...); err != nil {
		log.Printf("WARN: failed to enqueue %s task: %v", taskType, err)
	}
}

func (e *Enqueuer) EnqueueAnalyticsEvent(productID primitive.ObjectID, kind models.EventKind) {
	e.enqueue(TypeAnalyticsEvent, AnalyticsEventPayload{ProductID: productID, Kind: kind},
		asynq.Queue(QueueDefault))
}

func (e *Enqueuer) EnqueueSearchRecord(record *models.SearchRecord) {
	e.enqueue(TypeSearchRecord, SearchRecordPayload{
		Query:       record.Query,
		Location:    record.Location,
		ResultCount: record.ResultCount,
		UserID:      record.UserID,
		CreatedAt:   record.CreatedAt,
	}, asynq.Queue(QueueLow))
}

func (e *Enqueuer) EnqueueDecisionEmail(to, subject, body string) {
	e.enqueue(TypeDecisionEmail, DecisionEmailPayload{To: to, Subject: subject, Body: body},
		asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

func (e *Enqueuer) EnqueueImageProcess(listingID primitive.ObjectID, objectKey string) {
	e.enqueue(TypeImageProcess, ImageProcessPayload{ListingID: listingID, ObjectKey: objectKey},
		asynq.Queue(QueueImages), asynq.MaxRetry(2))
}
