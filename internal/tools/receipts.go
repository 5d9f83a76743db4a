package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// ReceiptService is the consumer interface over the receipt usecase.
type ReceiptService interface {
	Store(ctx context.Context, rec *domrec.Receipt) error
	SearchByMetadata(
		ctx context.Context, start, end time.Time, minAmount, maxAmount *float64,
	) ([]domrec.Receipt, error)
	SearchBySimilarity(ctx context.Context, query string, limit int) ([]domrec.Match, error)
	GetByID(ctx context.Context, id string) (domrec.Receipt, error)
}

// ImageResolver turns a conversation image reference back into bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, sessionID, ref string) (domain.Blob, error)
}

// BlobWriter archives image bytes and returns a retrieval URI.
type BlobWriter interface {
	Put(ctx context.Context, data []byte, mimeType string) (string, error)
}

type receiptPayload struct {
	ReceiptID       string        `json:"receipt_id"`
	StoreName       string        `json:"store_name"`
	TransactionTime string        `json:"transaction_time"`
	TotalAmount     float64       `json:"total_amount"`
	Currency        string        `json:"currency"`
	PurchasedItems  []itemPayload `json:"purchased_items"`
}

type itemPayload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type matchPayload struct {
	receiptPayload
	Distance float64 `json:"distance"`
}

func toPayload(rec *domrec.Receipt) receiptPayload {
	items := make([]itemPayload, 0, len(rec.Items()))
	for _, it := range rec.Items() {
		items = append(items, itemPayload{Name: it.Name, Price: it.Price})
	}
	return receiptPayload{
		ReceiptID:       rec.ID(),
		StoreName:       rec.StoreName(),
		TransactionTime: rec.TransactionTime().Format(time.RFC3339),
		TotalAmount:     rec.TotalAmount(),
		Currency:        rec.Currency(),
		PurchasedItems:  items,
	}
}

// RegisterReceiptTools wires the receipt tool surface into the registry.
func RegisterReceiptTools(r *Registry, svc ReceiptService, resolver ImageResolver, blobs BlobWriter) {
	r.Register(storeReceiptTool(svc, resolver, blobs))
	r.Register(searchByRangeTool(svc))
	r.Register(searchByTextTool(svc))
	r.Register(getReceiptTool(svc))
}

func storeReceiptTool(svc ReceiptService, resolver ImageResolver, blobs BlobWriter) Tool {
	return Tool{
		Name: "store_receipt",
		Description: "Store an extracted receipt. image_ref is the [IMAGE-ID] reference of the " +
			"receipt photo in the conversation; the structured fields are the extraction result. " +
			"The image becomes the permanent record key, so re-sending the same photo is rejected " +
			"as a duplicate.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"session_id":       StringProperty("Conversation session the image reference belongs to"),
			"image_ref":        StringProperty("Content reference of the receipt image (64-char hex)"),
			"store_name":       StringProperty("Merchant name as printed on the receipt"),
			"transaction_time": StringProperty("Purchase instant, RFC 3339"),
			"total_amount":     NumberProperty("Receipt total, non-negative"),
			"currency":         StringProperty("Currency code, e.g. USD"),
			"purchased_items": ArrayProperty("Line items in receipt order", ObjectSchema(map[string]interface{}{
				"name":  StringProperty("Item name"),
				"price": NumberProperty("Item price, non-negative"),
			}, "name", "price")),
		}, "session_id", "image_ref", "store_name", "transaction_time", "total_amount", "currency"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			sessionID, err := stringArg(args, "session_id", true)
			if err != nil {
				return nil, err
			}
			imageRef, err := stringArg(args, "image_ref", true)
			if err != nil {
				return nil, err
			}
			storeName, err := stringArg(args, "store_name", true)
			if err != nil {
				return nil, err
			}
			txTime, err := timeArg(args, "transaction_time", true)
			if err != nil {
				return nil, err
			}
			totalAmount, _, err := numberArg(args, "total_amount", true)
			if err != nil {
				return nil, err
			}
			currency, err := stringArg(args, "currency", true)
			if err != nil {
				return nil, err
			}
			items, err := itemsArg(args)
			if err != nil {
				return nil, err
			}

			blob, err := resolver.Resolve(ctx, sessionID, imageRef)
			if err != nil {
				return nil, err
			}

			uri, err := blobs.Put(ctx, blob.Data, blob.MimeType)
			if err != nil {
				return nil, fmt.Errorf("archive image %s: %w", imageRef, err)
			}

			rec, err := domrec.New(imageRef, storeName, txTime, totalAmount, currency, items, uri)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
			}

			if err := svc.Store(ctx, &rec); err != nil {
				return nil, err
			}
			return toPayload(&rec), nil
		},
	}
}

func searchByRangeTool(svc ReceiptService) Tool {
	return Tool{
		Name: "search_receipts_by_range",
		Description: "Find every receipt whose purchase time falls inside [start_time, end_time] " +
			"and whose total falls inside the optional amount bounds. Bounds are inclusive; " +
			"pass -1 (or omit) an amount bound to leave it open. Returns the full match set " +
			"ordered by purchase time.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"start_time": StringProperty("Range start, RFC 3339, inclusive"),
			"end_time":   StringProperty("Range end, RFC 3339, inclusive"),
			"min_amount": NumberProperty("Minimum total, inclusive; -1 for unbounded"),
			"max_amount": NumberProperty("Maximum total, inclusive; -1 for unbounded"),
		}, "start_time", "end_time"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			start, err := timeArg(args, "start_time", true)
			if err != nil {
				return nil, err
			}
			end, err := timeArg(args, "end_time", true)
			if err != nil {
				return nil, err
			}
			minAmount, err := amountBound(args, "min_amount")
			if err != nil {
				return nil, err
			}
			maxAmount, err := amountBound(args, "max_amount")
			if err != nil {
				return nil, err
			}

			records, err := svc.SearchByMetadata(ctx, start, end, minAmount, maxAmount)
			if err != nil {
				return nil, err
			}

			payloads := make([]receiptPayload, 0, len(records))
			for i := range records {
				payloads = append(payloads, toPayload(&records[i]))
			}
			return map[string]any{"receipts": payloads, "count": len(payloads)}, nil
		},
	}
}

func searchByTextTool(svc ReceiptService) Tool {
	return Tool{
		Name: "search_receipts_by_text",
		Description: "Find the receipts semantically closest to a free-text query " +
			"(e.g. \"groceries last week\", \"that coffee place\"). Returns up to limit " +
			"matches, nearest first, each with its raw distance score.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"query": StringProperty("Free-text search query"),
			"limit": IntegerProperty("Maximum matches to return (default 5)"),
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := stringArg(args, "query", true)
			if err != nil {
				return nil, err
			}
			limit, limitSet, err := intArg(args, "limit")
			if err != nil {
				return nil, err
			}
			if limitSet && limit <= 0 {
				return nil, fmt.Errorf("limit must be positive, got %d: %w", limit, domain.ErrInvalidArgument)
			}

			matches, err := svc.SearchBySimilarity(ctx, query, limit)
			if err != nil {
				return nil, err
			}

			payloads := make([]matchPayload, 0, len(matches))
			for i := range matches {
				payloads = append(payloads, matchPayload{
					receiptPayload: toPayload(&matches[i].Receipt),
					Distance:       matches[i].Distance,
				})
			}
			return map[string]any{"matches": payloads, "count": len(payloads)}, nil
		},
	}
}

func getReceiptTool(svc ReceiptService) Tool {
	return Tool{
		Name:        "get_receipt",
		Description: "Fetch one receipt by its identifier (the image reference it was stored under).",
		InputSchema: ObjectSchema(map[string]interface{}{
			"receipt_id": StringProperty("Receipt identifier (64-char hex)"),
		}, "receipt_id"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			id, err := stringArg(args, "receipt_id", true)
			if err != nil {
				return nil, err
			}

			rec, err := svc.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return toPayload(&rec), nil
		},
	}
}

func itemsArg(args map[string]any) ([]domrec.LineItem, error) {
	raw, ok := args["purchased_items"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("purchased_items must be an array, got %T: %w", raw, domain.ErrInvalidArgument)
	}

	items := make([]domrec.LineItem, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("purchased_items[%d] must be an object, got %T: %w",
				i, entry, domain.ErrInvalidArgument)
		}
		name, err := stringArg(m, "name", true)
		if err != nil {
			return nil, fmt.Errorf("purchased_items[%d]: %w", i, err)
		}
		price, _, err := numberArg(m, "price", true)
		if err != nil {
			return nil, fmt.Errorf("purchased_items[%d]: %w", i, err)
		}
		items = append(items, domrec.LineItem{Name: name, Price: price})
	}
	return items, nil
}
