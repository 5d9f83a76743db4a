package receipt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// store is the consumer interface for receipt persistence (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/receipt.Repository over the FT-indexed JSON store.
type Repo struct {
	store store
}

// New creates a receipt repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the receipts FT index if it does not exist yet.
// Safe to call on every startup.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int, hnsw HNSWConfig) error {
	name := indexName()
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := buildIndex(vectorDim, db.DistanceL2, hnsw)
	if err := r.store.CreateIndex(ctx, def); err != nil {
		// concurrent startup may have won the race
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Insert persists a new receipt record. The existence check and the write are
// a single server-side operation, so concurrent inserts of the same ID
// resolve to exactly one winner.
func (r *Repo) Insert(ctx context.Context, rec *domrec.Receipt) error {
	key := receiptKey(rec.ID())
	data, err := marshalReceipt(rec)
	if err != nil {
		return err
	}

	if err := r.store.JSONSetNX(ctx, key, "$", data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return domain.ErrDuplicateReceipt
		}
		return fmt.Errorf("json.set nx %s: %w", key, err)
	}
	return nil
}

// Get returns a receipt by its identifier.
func (r *Repo) Get(ctx context.Context, id string) (domrec.Receipt, error) {
	key := receiptKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.Receipt{}, domain.ErrReceiptNotFound
		}
		return domrec.Receipt{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	return unmarshalReceipt(raw)
}

// SearchRange returns all receipts whose transaction time falls inside
// [start, end] and whose total amount falls inside the optional amount bounds
// (nil bound = unbounded on that side). Results are ordered by transaction
// time ascending. No implicit result cap: the full match set is returned.
func (r *Repo) SearchRange(
	ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
) ([]domrec.Receipt, error) {
	query := buildRangeQuery(start, end, minAmount, maxAmount)

	total, err := r.store.SearchCount(ctx, indexName(), query)
	if err != nil {
		return nil, fmt.Errorf("search count: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName(),
		Query:        query,
		Offset:       0,
		Limit:        total,
		ReturnFields: []string{"$"},
		SortBy:       fieldTransactionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("search list: %w", err)
	}

	return parseEntries(result)
}

// SearchNearest returns the k receipts nearest to the query vector, ordered
// by ascending distance. Fewer than k records in the store yields all of them.
func (r *Repo) SearchNearest(ctx context.Context, vector []float32, k int) ([]domrec.Match, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"$"},
		ScoreField:   scoreField,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if result == nil || result.Total == 0 {
		return nil, nil
	}

	matches := make([]domrec.Match, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rec, err := unmarshalReceipt([]byte(entry.Fields["$"]))
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", entry.Key, err)
		}
		matches = append(matches, domrec.Match{Receipt: rec, Distance: entry.Score})
	}
	return matches, nil
}

// buildRangeQuery renders the FT numeric filter expression. FT numeric ranges
// are inclusive on both ends.
func buildRangeQuery(start, end time.Time, minAmount, maxAmount *float64) string {
	query := fmt.Sprintf("@%s:[%d %d]", fieldTransactionTime, start.Unix(), end.Unix())

	if minAmount != nil || maxAmount != nil {
		lo, hi := "-inf", "+inf"
		if minAmount != nil {
			lo = formatBound(*minAmount)
		}
		if maxAmount != nil {
			hi = formatBound(*maxAmount)
		}
		query += fmt.Sprintf(" @%s:[%s %s]", fieldTotalAmount, lo, hi)
	}
	return query
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseEntries(result *db.SearchResult) ([]domrec.Receipt, error) {
	records := make([]domrec.Receipt, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rec, err := unmarshalReceipt([]byte(entry.Fields["$"]))
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", entry.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
