package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

type mockService struct {
	storeFn      func(ctx context.Context, rec *domrec.Receipt) error
	searchMetaFn func(ctx context.Context, start, end time.Time, minAmount, maxAmount *float64) ([]domrec.Receipt, error)
	searchSimFn  func(ctx context.Context, query string, limit int) ([]domrec.Match, error)
	getFn        func(ctx context.Context, id string) (domrec.Receipt, error)
}

func (m *mockService) Store(ctx context.Context, rec *domrec.Receipt) error {
	if m.storeFn != nil {
		return m.storeFn(ctx, rec)
	}
	return nil
}

func (m *mockService) SearchByMetadata(
	ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
) ([]domrec.Receipt, error) {
	if m.searchMetaFn != nil {
		return m.searchMetaFn(ctx, start, end, minAmount, maxAmount)
	}
	return nil, nil
}

func (m *mockService) SearchBySimilarity(
	ctx context.Context, query string, limit int,
) ([]domrec.Match, error) {
	if m.searchSimFn != nil {
		return m.searchSimFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockService) GetByID(ctx context.Context, id string) (domrec.Receipt, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domrec.Receipt{}, domain.ErrReceiptNotFound
}

type mockResolver struct {
	resolveFn func(ctx context.Context, sessionID, ref string) (domain.Blob, error)
}

func (m *mockResolver) Resolve(ctx context.Context, sessionID, ref string) (domain.Blob, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID, ref)
	}
	return domain.Blob{Data: []byte("img"), MimeType: "image/jpeg"}, nil
}

type mockBlobWriter struct {
	putFn func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (m *mockBlobWriter) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, data, mimeType)
	}
	return "blob:sha256:" + domain.ImageRef(data), nil
}

func newTestRegistry(t *testing.T) (*Registry, *mockService, *mockResolver, *mockBlobWriter) {
	t.Helper()
	svc := &mockService{}
	resolver := &mockResolver{}
	blobs := &mockBlobWriter{}
	r := NewRegistry()
	RegisterReceiptTools(r, svc, resolver, blobs)
	return r, svc, resolver, blobs
}

func testRef(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func storeArgs(imageRef string) map[string]any {
	return map[string]any{
		"session_id":       "s1",
		"image_ref":        imageRef,
		"store_name":       "Corner Grocer",
		"transaction_time": "2026-03-14T09:26:53Z",
		"total_amount":     42.5,
		"currency":         "USD",
		"purchased_items": []any{
			map[string]any{"name": "milk", "price": 3.5},
			map[string]any{"name": "bread", "price": 2.0},
		},
	}
}
