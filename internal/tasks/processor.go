package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"bluestore/server/internal/config"
	"bluestore/server/internal/email"
	"bluestore/server/internal/services"
	"bluestore/server/internal/storage"

	"github.com/nfnt/resize"
)

// TaskProcessor holds the dependencies the background handlers need.
type TaskProcessor struct {
	cfg       *config.Config
	analytics services.IAnalyticsService
	search    services.ISearchService
	listings  services.IListingService
	products  services.IProductService
	store     storage.IObjectStorage
	sender    email.Sender
}

// NewTaskProcessor creates a TaskProcessor.
func NewTaskProcessor(cfg *config.Config, analytics services.IAnalyticsService, search services.ISearchService,
	listings services.IListingService, products services.IProductService,
	store storage.IObjectStorage, sender email.Sender) *TaskProcessor {
	return &TaskProcessor{
		cfg:       cfg,
		analytics: analytics,
		search:    search,
		listings:  listings,
		products:  products,
		store:     store,
		sender:    sender,
	}
}

// SetupServer builds the asynq server and mux with all handlers registered.
func SetupServer(rdb *redis.Client, p *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	opts := rdb.Options()
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueueDefault: 5,
				QueueImages:  3,
				QueueLow:     1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAnalyticsEvent, p.HandleAnalyticsEvent)
	mux.HandleFunc(TypeSearchRecord, p.HandleSearchRecord)
	mux.HandleFunc(TypeDecisionEmail, p.HandleDecisionEmail)
	mux.HandleFunc(TypeListingExpiry, p.HandleListingExpiry)
	mux.HandleFunc(TypeImageProcess, p.HandleImageProcess)
	return srv, mux
}

// SetupScheduler registers the periodic jobs. The expiry sweep runs on the
// low queue so a stuck image backlog cannot delay it past its interval.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	opts := rdb.Options()
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		nil,
	)
	spec := fmt.Sprintf("@every %s", cfg.ExpirySweepEvery)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeListingExpiry, nil), asynq.Queue(QueueLow)); err != nil {
		return nil, fmt.Errorf("failed to register expiry sweep: %w", err)
	}
	return scheduler, nil
}

// HandleAnalyticsEvent increments the per-day engagement counter for one event.
func (p *TaskProcessor) HandleAnalyticsEvent(ctx context.Context, t *asynq.Task) error {
	var payload AnalyticsEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analytics payload: %v: %w", err, asynq.SkipRetry)
	}
	if !payload.Kind.Valid() {
		return fmt.Errorf("unknown event kind %q: %w", payload.Kind, asynq.SkipRetry)
	}
	return p.analytics.RecordEvent(ctx, payload.ProductID, payload.Kind)
}

// HandleSearchRecord persists one search for the trend aggregations.
func (p *TaskProcessor) HandleSearchRecord(ctx context.Context, t *asynq.Task) error {
	var payload SearchRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal search record payload: %v: %w", err, asynq.SkipRetry)
	}
	record := payload.ToModel()
	return p.search.RecordSearch(ctx, record)
}

// HandleDecisionEmail delivers a moderation decision email.
func (p *TaskProcessor) HandleDecisionEmail(ctx context.Context, t *asynq.Task) error {
	var payload DecisionEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("failed to send decision email to %s: %w", payload.To, err)
	}
	return nil
}

// HandleListingExpiry sweeps approved listings past their expiry date.
func (p *TaskProcessor) HandleListingExpiry(ctx context.Context, t *asynq.Task) error {
	expired, err := p.listings.ExpireDueListings(ctx)
	if err != nil {
		return fmt.Errorf("expiry sweep failed: %w", err)
	}
	if expired > 0 {
		log.Printf("Expiry sweep marked %d listings expired", expired)
		p.products.InvalidateAll()
	}
	return nil
}

// HandleImageProcess downloads a raw upload, bounds it to the configured
// maximum dimension, stores the processed copy and attaches it to the listing.
func (p *TaskProcessor) HandleImageProcess(ctx context.Context, t *asynq.Task) error {
	var payload ImageProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image payload: %v: %w", err, asynq.SkipRetry)
	}

	body, err := p.store.Download(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", payload.ObjectKey, err)
	}
	defer body.Close()

	img, _, err := image.Decode(body)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %v: %w", payload.ObjectKey, err, asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	bounds := img.Bounds()
	if uint(bounds.Dx()) > maxDim || uint(bounds.Dy()) > maxDim {
		img = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode processed image: %w", err)
	}

	processedKey := processedImageKey(payload.ObjectKey)
	url, err := p.store.UploadPublic(ctx, processedKey, "image/jpeg", &buf)
	if err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	if err := p.listings.AddImageToListing(ctx, payload.ListingID, url); err != nil {
		return fmt.Errorf("failed to attach image to listing %s: %w", payload.ListingID.Hex(), err)
	}
	return nil
}

// processedImageKey rewrites uploads/... to processed/... and normalizes the
// extension to jpg.
func processedImageKey(rawKey string) string {
	key := rawKey
	if strings.HasPrefix(key, "uploads/") {
		key = "processed/" + strings.TrimPrefix(key, "uploads/")
	}
	if idx := strings.LastIndex(key, "."); idx > strings.LastIndex(key, "/") {
		key = key[:idx]
	}
	return key + ".jpg"
}
