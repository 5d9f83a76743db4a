package receipt

import (
	"context"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// Repository defines the storage contract for receipt records.
type Repository interface {
	// Insert persists a new record. Returns domain.ErrDuplicateReceipt when a
	// record with the same ID already exists; concurrent inserts of one ID
	// resolve to exactly one winner.
	Insert(ctx context.Context, rec *domrec.Receipt) error
	Get(ctx context.Context, id string) (domrec.Receipt, error)
	SearchRange(
		ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
	) ([]domrec.Receipt, error)
	SearchNearest(ctx context.Context, vector []float32, k int) ([]domrec.Match, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
