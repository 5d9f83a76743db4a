package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

type mockRepo struct {
	insertFn        func(ctx context.Context, rec *domrec.Receipt) error
	getFn           func(ctx context.Context, id string) (domrec.Receipt, error)
	searchRangeFn   func(ctx context.Context, start, end time.Time, minAmount, maxAmount *float64) ([]domrec.Receipt, error)
	searchNearestFn func(ctx context.Context, vector []float32, k int) ([]domrec.Match, error)
}

func (m *mockRepo) Insert(ctx context.Context, rec *domrec.Receipt) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	return nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (domrec.Receipt, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domrec.Receipt{}, domain.ErrReceiptNotFound
}

func (m *mockRepo) SearchRange(
	ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
) ([]domrec.Receipt, error) {
	if m.searchRangeFn != nil {
		return m.searchRangeFn(ctx, start, end, minAmount, maxAmount)
	}
	return nil, nil
}

func (m *mockRepo) SearchNearest(ctx context.Context, vector []float32, k int) ([]domrec.Match, error) {
	if m.searchNearestFn != nil {
		return m.searchNearestFn(ctx, vector, k)
	}
	return nil, nil
}

// mockEmbedder is safe for concurrent use: Store is exercised from multiple
// goroutines in this package's tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)

	mu     sync.Mutex
	calls  int
	lastIn string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastIn = text
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) lastInput() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIn
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockEmbedder) {
	t.Helper()
	repo := &mockRepo{}
	embed := &mockEmbedder{}
	return New(repo, embed), repo, embed
}

func testRef(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func testReceipt(t *testing.T, seed string) domrec.Receipt {
	t.Helper()
	id := testRef(seed)
	rec, err := domrec.New(
		id, "Corner Grocer",
		time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		42.50, "USD",
		[]domrec.LineItem{{Name: "milk", Price: 3.50}, {Name: "bread", Price: 2.00}},
		"blob:sha256:"+id,
	)
	if err != nil {
		t.Fatalf("build test receipt: %v", err)
	}
	return rec
}

func amount(v float64) *float64 { return &v }
