package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// MaxObjectBytes caps a single receipt download.
const MaxObjectBytes = 50 << 20

// ReceiptStore keeps uploaded receipt files in S3 or an S3-compatible store.
type ReceiptStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	maxBytes  int64
}

var _ port.ReceiptFileStore = (*ReceiptStore)(nil)

// NewReceiptStore builds a ReceiptStore. A non-empty Endpoint switches to
// path-style addressing for MinIO and LocalStack.
func NewReceiptStore(cfg *config.S3Config) (*ReceiptStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &ReceiptStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		maxBytes:  MaxObjectBytes,
	}, nil
}

func (c *ReceiptStore) Put(ctx context.Context, file port.ReceiptFile) (*port.StoredFile, error) {
	put := &s3.PutObjectInput{
		Bucket:      aws.String(file.Bucket),
		Key:         aws.String(file.Key),
		Body:        file.Body,
		ContentType: aws.String(file.ContentType),
		Metadata:    file.Metadata,
	}
	if file.Size > 0 {
		put.ContentLength = aws.Int64(file.Size)
	}

	result, err := c.uploader.Upload(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", file.Key, err)
	}
	return &port.StoredFile{
		Location: result.Location,
		ETag:     aws.ToString(result.ETag),
	}, nil
}

func (c *ReceiptStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 fetch %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 fetch %s: %w", key, err)
	}
	defer result.Body.Close()

	if n := aws.ToInt64(result.ContentLength); n > c.maxBytes {
		return nil, fmt.Errorf("s3 fetch %s: %d bytes: %w", key, n, domain.ErrFileTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(result.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("s3 fetch read: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("s3 fetch %s: %w", key, domain.ErrFileTooLarge)
	}
	return data, nil
}

func (c *ReceiptStore) Delete(ctx context.Context, bucket, key string) error {
	if _, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// SignedURL returns a time-limited GET link for a receipt file.
func (c *ReceiptStore) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return result.URL, nil
}
