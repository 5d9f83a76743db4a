package session

import (
	"context"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// ReceiptReader reads receipt records for the store-side resolve path.
type ReceiptReader interface {
	Get(ctx context.Context, id string) (domrec.Receipt, error)
}

// BlobReader fetches archived image bytes by URI.
type BlobReader interface {
	Get(ctx context.Context, uri string) (domain.Blob, error)
}
