package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store persists overflow blobs to S3, mirroring the original's
// boto3 `s3.Object(bucket, key).put()/.get()` calls.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Store builds an S3Store from the process's default AWS config
// (environment, shared config file, or instance role).
func NewS3Store(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (s *S3Store) Get(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer(nil)
	if _, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

func parseS3URL(url string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(url, prefix) {
		return "", "", fmt.Errorf("blobstore only supports the s3 protocol for fulfillment documents, got %q", url)
	}
	rest := strings.TrimPrefix(url, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 url %q", url)
	}
	return parts[0], parts[1], nil
}
