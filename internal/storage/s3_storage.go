package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"bluestore/server/internal/config"
)

// IObjectStorage defines the object storage operations the services need:
// direct uploads with a public URL (KYC documents), presigned PUT URLs
// (listing images uploaded from clients) and raw downloads (image worker).
type IObjectStorage interface {
	UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	GeneratePresignedPutURL(ctx context.Context, key, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PublicURL(key string) string
}

type s3Storage struct {
	cfg           *config.Config
	client        *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates the S3-backed object storage service.
func NewS3Storage(cfg *config.Config) (IObjectStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		client:        client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

// UploadPublic stores the object and returns its public URL.
func (s *s3Storage) UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// GeneratePresignedPutURL creates a 15-minute presigned URL for a client-side
// upload to key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign PUT for key %s: %w", key, err)
	}
	return req.URL, nil
}

// Download fetches an object's body. The caller must close it.
func (s *s3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return out.Body, nil
}

// PublicURL derives the public URL for a key from the configured base URL,
// falling back to the standard bucket endpoint.
func (s *s3Storage) PublicURL(key string) string {
	if s.cfg.S3PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.S3PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AwsS3Bucket, s.cfg.AwsRegion, key)
}

// ListingImageKey builds the upload key for a raw listing image.
func ListingImageKey(userID, listingID, filename string) string {
	return path.Join("uploads", userID, listingID, uuid.NewString()+"_"+path.Base(filename))
}

// KYCDocumentKey builds the per-user, per-file-type key for a KYC upload.
func KYCDocumentKey(userID, fileType, filename string) string {
	return path.Join("kyc", userID, fileType+path.Ext(filename))
}
