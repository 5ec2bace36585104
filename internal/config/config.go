package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis (asynq broker)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	S3PublicBaseURL    string
	ImageMaxDimension  int

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// Marketplace defaults
	AppName            string
	DefaultCity        string
	DefaultPackageID   string
	ProductCacheTTL    time.Duration
	CacheSweepInterval time.Duration
	SearchRemoteLimit  int
	BrowseLimit        int
	ExpirySweepEvery   time.Duration

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	var err error

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "bluestore")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.S3PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", "")

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@bluestore.example.com")

	cfg.AppName = getEnv("APP_NAME", "BlueStore")
	cfg.DefaultCity = getEnv("DEFAULT_CITY", "Accra")
	cfg.DefaultPackageID = getEnv("DEFAULT_PACKAGE_ID", "free")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.ImageMaxDimension, err = strconv.Atoi(getEnv("IMAGE_MAX_DIMENSION", "2048"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_DIMENSION: %w", err)
	}

	cacheTTLSeconds, err := strconv.ParseInt(getEnv("PRODUCT_CACHE_TTL_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PRODUCT_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.ProductCacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	sweepSeconds, err := strconv.ParseInt(getEnv("CACHE_SWEEP_INTERVAL_SECONDS", "600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SWEEP_INTERVAL_SECONDS: %w", err)
	}
	cfg.CacheSweepInterval = time.Duration(sweepSeconds) * time.Second

	cfg.SearchRemoteLimit, err = strconv.Atoi(getEnv("SEARCH_REMOTE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_REMOTE_LIMIT: %w", err)
	}

	cfg.BrowseLimit, err = strconv.Atoi(getEnv("BROWSE_LIMIT", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSE_LIMIT: %w", err)
	}

	expirySweepMinutes, err := strconv.ParseInt(getEnv("EXPIRY_SWEEP_MINUTES", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_SWEEP_MINUTES: %w", err)
	}
	cfg.ExpirySweepEvery = time.Duration(expirySweepMinutes) * time.Minute

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
