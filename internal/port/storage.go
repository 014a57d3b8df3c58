package port

import (
	"context"
	"io"
	"time"
)

// ReceiptFile is one receipt upload on its way to the file store.
type ReceiptFile struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	// Metadata is kept with the object (x-amz-meta-* on S3).
	Metadata map[string]string
}

// StoredFile is where a receipt file ended up.
type StoredFile struct {
	Location string
	ETag     string
}

// ReceiptFileStore keeps the raw receipt files a session's batch is built
// from. Fetch returns domain.ErrNotFound for a missing key and
// domain.ErrFileTooLarge when the object exceeds the store's read cap.
type ReceiptFileStore interface {
	Put(ctx context.Context, file ReceiptFile) (*StoredFile, error)
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
