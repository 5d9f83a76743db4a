package receipt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3,8}$`)

// LineItem is a single purchased item on a receipt.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Receipt is the receipt aggregate (immutable value object). Records are
// created once on successful extraction and never mutated afterwards.
type Receipt struct {
	id              string
	storeName       string
	transactionTime time.Time
	totalAmount     float64
	currency        string
	items           []LineItem
	embedding       []float32
	imageURI        string
}

// New validates and creates a Receipt.
// ID is the content-addressed image reference (hex SHA-256) and doubles as
// the sole deduplication key. The transaction time is normalized to UTC so
// range comparisons are absolute-instant comparisons.
func New(
	id, storeName string, transactionTime time.Time,
	totalAmount float64, currency string, items []LineItem, imageURI string,
) (Receipt, error) {
	if !domain.IsImageRef(id) {
		return Receipt{}, fmt.Errorf("receipt ID must be a 64-char hex content reference, got %q", id)
	}
	if strings.TrimSpace(storeName) == "" {
		return Receipt{}, fmt.Errorf("store name is required")
	}
	if transactionTime.IsZero() {
		return Receipt{}, fmt.Errorf("transaction time is required")
	}
	if totalAmount < 0 {
		return Receipt{}, fmt.Errorf("total amount must be non-negative, got %v", totalAmount)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyRegex.MatchString(currency) {
		return Receipt{}, fmt.Errorf("currency must be a 3-8 letter code, got %q", currency)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return Receipt{}, fmt.Errorf("item %d: name is required", i)
		}
		if item.Price < 0 {
			return Receipt{}, fmt.Errorf("item %d (%s): price must be non-negative", i, item.Name)
		}
	}
	if imageURI == "" {
		return Receipt{}, fmt.Errorf("image URI is required")
	}

	return Receipt{
		id:              id,
		storeName:       storeName,
		transactionTime: transactionTime.UTC(),
		totalAmount:     totalAmount,
		currency:        currency,
		items:           cloneItems(items),
		imageURI:        imageURI,
	}, nil
}

// Reconstruct creates a Receipt without validation (storage hydration).
func Reconstruct(
	id, storeName string, transactionTime time.Time,
	totalAmount float64, currency string, items []LineItem,
	embedding []float32, imageURI string,
) Receipt {
	return Receipt{
		id:              id,
		storeName:       storeName,
		transactionTime: transactionTime.UTC(),
		totalAmount:     totalAmount,
		currency:        currency,
		items:           items,
		embedding:       embedding,
		imageURI:        imageURI,
	}
}

// ID returns the receipt identifier (content-addressed image reference).
func (r *Receipt) ID() string { return r.id }

// StoreName returns the merchant name.
func (r *Receipt) StoreName() string { return r.storeName }

// TransactionTime returns the purchase instant in UTC.
func (r *Receipt) TransactionTime() time.Time { return r.transactionTime }

// TotalAmount returns the currency-agnostic total magnitude.
func (r *Receipt) TotalAmount() float64 { return r.totalAmount }

// Currency returns the ISO-4217-like currency code.
func (r *Receipt) Currency() string { return r.currency }

// Items returns the ordered purchased line items.
func (r *Receipt) Items() []LineItem { return r.items }

// Embedding returns the semantic embedding vector.
func (r *Receipt) Embedding() []float32 { return r.embedding }

// ImageURI returns the blob store URI of the source image.
func (r *Receipt) ImageURI() string { return r.imageURI }

// SetEmbedding sets the vector in place (mutation, pre-insert only).
func (r *Receipt) SetEmbedding(v []float32) { r.embedding = v }

// CanonicalText renders the deterministic textual serialization used as the
// embedding input. Derived from structured fields only, never from image bytes.
func (r *Receipt) CanonicalText() string {
	var b strings.Builder
	b.WriteString(r.storeName)
	b.WriteString(":")
	for i, item := range r.items {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " %s %s", item.Name, formatAmount(item.Price))
	}
	fmt.Fprintf(&b, "; total %s %s", formatAmount(r.totalAmount), r.currency)
	return b.String()
}

// formatAmount renders an amount without trailing zeros so the canonical text
// is stable across float formatting quirks.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	c := make([]LineItem, len(items))
	copy(c, items)
	return c
}
