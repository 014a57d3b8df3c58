package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"claimintake/internal/port"
)

// MockReceiptFileStore is a mock implementation of port.ReceiptFileStore.
type MockReceiptFileStore struct {
	mock.Mock
}

func (m *MockReceiptFileStore) Put(ctx context.Context, file port.ReceiptFile) (*port.StoredFile, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.StoredFile), args.Error(1)
}

func (m *MockReceiptFileStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockReceiptFileStore) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *MockReceiptFileStore) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, ttl)
	return args.String(0), args.Error(1)
}
