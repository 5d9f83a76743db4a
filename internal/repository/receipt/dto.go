package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// jsonReceipt is the storage layout of a receipt record. transaction_time is
// unix seconds (UTC) so the FT numeric index can range-scan it.
type jsonReceipt struct {
	ReceiptID       string            `json:"receipt_id"`
	StoreName       string            `json:"store_name"`
	TransactionTime int64             `json:"transaction_time"`
	TotalAmount     float64           `json:"total_amount"`
	Currency        string            `json:"currency"`
	PurchasedItems  []domrec.LineItem `json:"purchased_items"`
	Embedding       []float32         `json:"embedding"`
	ImageURI        string            `json:"image_uri"`
}

// marshalReceipt converts a domain Receipt into its storage JSON.
func marshalReceipt(rec *domrec.Receipt) ([]byte, error) {
	doc := jsonReceipt{
		ReceiptID:       rec.ID(),
		StoreName:       rec.StoreName(),
		TransactionTime: rec.TransactionTime().Unix(),
		TotalAmount:     rec.TotalAmount(),
		Currency:        rec.Currency(),
		PurchasedItems:  rec.Items(),
		Embedding:       rec.Embedding(),
		ImageURI:        rec.ImageURI(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt %s: %w", rec.ID(), err)
	}
	return data, nil
}

// unmarshalReceipt hydrates a domain Receipt from storage JSON.
// JSON.GET with path $ wraps the document in an array; FT.SEARCH RETURN $
// yields the bare object. Both shapes are accepted.
func unmarshalReceipt(raw []byte) (domrec.Receipt, error) {
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t') {
		trimmed = trimmed[1:]
	}

	var doc jsonReceipt
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []jsonReceipt
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return domrec.Receipt{}, fmt.Errorf("unmarshal receipt: %w", err)
		}
		if len(docs) == 0 {
			return domrec.Receipt{}, fmt.Errorf("unmarshal receipt: empty document array")
		}
		doc = docs[0]
	} else if err := json.Unmarshal(trimmed, &doc); err != nil {
		return domrec.Receipt{}, fmt.Errorf("unmarshal receipt: %w", err)
	}

	return domrec.Reconstruct(
		doc.ReceiptID,
		doc.StoreName,
		time.Unix(doc.TransactionTime, 0).UTC(),
		doc.TotalAmount,
		doc.Currency,
		doc.PurchasedItems,
		doc.Embedding,
		doc.ImageURI,
	), nil
}
