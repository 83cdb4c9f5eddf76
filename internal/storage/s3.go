package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/beatcrate/backend/internal/config"
)

// Client issues short-lived presigned download URLs for the track bucket.
// Audio files never stream through the API process.
type Client struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// New builds a storage client from the app config. S3Endpoint may point at
// any S3-compatible store; path-style addressing keeps MinIO and friends
// working.
func New(ctx context.Context, cfg *appconfig.Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		presign: s3.NewPresignClient(s3Client),
		bucket:  cfg.S3Bucket,
		ttl:     time.Duration(cfg.S3URLExpiryMin) * time.Minute,
	}, nil
}

// DownloadURL presigns a GET for the stored object. filename sets the
// Content-Disposition so browsers save the track under its display name
// instead of the storage key.
func (c *Client) DownloadURL(ctx context.Context, key, filename string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if filename != "" {
		input.ResponseContentDisposition = aws.String(
			fmt.Sprintf("attachment; filename=%q", filename))
	}

	req, err := c.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("presign download for %s: %w", key, err)
	}
	return req.URL, nil
}
