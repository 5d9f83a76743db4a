package receipt

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/logger"
)

// DefaultSimilarityLimit is the result count for similarity search when the
// caller does not ask for a specific k.
const DefaultSimilarityLimit = 5

// Service handles receipt storage and retrieval.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a receipt service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Store embeds the receipt's canonical text and persists the record.
// The canonical text is derived from structured fields only, so identical
// extractions always produce identical vectors. Duplicate IDs surface as
// domain.ErrDuplicateReceipt; the embedding cache makes the retried gateway
// call free.
func (s *Service) Store(ctx context.Context, rec *domrec.Receipt) error {
	text := rec.CanonicalText()

	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("vectorize receipt %s: %w", rec.ID(), err)
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	rec.SetEmbedding(embResult.Embedding)

	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Receipt stored",
		zap.String("receipt_id", rec.ID()),
		zap.String("store_name", rec.StoreName()),
		zap.Float64("total_amount", rec.TotalAmount()),
	)
	return nil
}

// SearchByMetadata returns every receipt whose transaction time falls inside
// [start, end] and whose total amount falls inside the optional bounds
// (nil = unbounded on that side). Matching is exact; no result cap. Results
// come back in transaction-time order.
func (s *Service) SearchByMetadata(
	ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
) ([]domrec.Receipt, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start %s is after end %s: %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), domain.ErrInvalidRange)
	}
	if minAmount != nil && *minAmount < 0 {
		return nil, fmt.Errorf("min amount must be non-negative, got %v: %w", *minAmount, domain.ErrInvalidRange)
	}
	if maxAmount != nil && *maxAmount < 0 {
		return nil, fmt.Errorf("max amount must be non-negative, got %v: %w", *maxAmount, domain.ErrInvalidRange)
	}
	if minAmount != nil && maxAmount != nil && *minAmount > *maxAmount {
		return nil, fmt.Errorf("min amount %v exceeds max amount %v: %w", *minAmount, *maxAmount, domain.ErrInvalidRange)
	}

	return s.repo.SearchRange(ctx, start, end, minAmount, maxAmount)
}

// SearchBySimilarity embeds the free-text query and returns the k nearest
// receipts ordered nearest first. limit <= 0 falls back to the default.
func (s *Service) SearchBySimilarity(
	ctx context.Context, query string, limit int,
) ([]domrec.Match, error) {
	if query == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSimilarityLimit
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	return s.repo.SearchNearest(ctx, embResult.Embedding, limit)
}

// GetByID returns a single receipt by its content-addressed identifier.
func (s *Service) GetByID(ctx context.Context, id string) (domrec.Receipt, error) {
	if !domain.IsImageRef(id) {
		return domrec.Receipt{}, fmt.Errorf("receipt ID must be a 64-char hex reference, got %q: %w",
			id, domain.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, id)
}
