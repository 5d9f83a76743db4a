package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// --- registry ---

func TestRegistry_FourTools(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	want := []string{"get_receipt", "search_receipts_by_range", "search_receipts_by_text", "store_receipt"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tool %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	_, err := r.Invoke(context.Background(), "delete_everything", nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// --- store_receipt ---

func TestStoreReceipt_HappyPath(t *testing.T) {
	r, svc, resolver, _ := newTestRegistry(t)
	ctx := context.Background()
	ref := testRef("receipt-image")

	resolver.resolveFn = func(_ context.Context, sessionID, gotRef string) (domain.Blob, error) {
		if sessionID != "s1" || gotRef != ref {
			t.Errorf("unexpected resolve: %s %s", sessionID, gotRef)
		}
		return domain.Blob{Data: []byte("receipt-image"), MimeType: "image/jpeg"}, nil
	}

	var stored *domrec.Receipt
	svc.storeFn = func(_ context.Context, rec *domrec.Receipt) error {
		stored = rec
		return nil
	}

	out, err := r.Invoke(ctx, "store_receipt", storeArgs(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored == nil {
		t.Fatal("expected store call")
	}
	if stored.ID() != ref {
		t.Errorf("receipt ID must equal the image ref, got %s", stored.ID())
	}
	if stored.ImageURI() == "" {
		t.Error("archived image URI must be set")
	}

	payload, ok := out.(receiptPayload)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if payload.ReceiptID != ref || payload.StoreName != "Corner Grocer" {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if len(payload.PurchasedItems) != 2 {
		t.Errorf("items: %+v", payload.PurchasedItems)
	}
}

func TestStoreReceipt_MissingRequired(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, field := range []string{"session_id", "image_ref", "store_name", "transaction_time", "total_amount", "currency"} {
		args := storeArgs(testRef("x"))
		delete(args, field)

		_, err := r.Invoke(ctx, "store_receipt", args)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("missing %s: expected ErrInvalidArgument, got %v", field, err)
		}
	}
}

func TestStoreReceipt_UnknownFieldsIgnored(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	args := storeArgs(testRef("x"))
	args["confidence"] = 0.97
	args["notes"] = "extracted by model"

	if _, err := r.Invoke(context.Background(), "store_receipt", args); err != nil {
		t.Fatalf("unknown fields must be ignored, got %v", err)
	}
}

func TestStoreReceipt_BadTimestamp(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	args := storeArgs(testRef("x"))
	args["transaction_time"] = "last tuesday"

	_, err := r.Invoke(context.Background(), "store_receipt", args)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStoreReceipt_ImageUnavailable(t *testing.T) {
	r, svc, resolver, _ := newTestRegistry(t)

	resolver.resolveFn = func(_ context.Context, _, _ string) (domain.Blob, error) {
		return domain.Blob{}, domain.ErrImageUnavailable
	}
	svc.storeFn = func(_ context.Context, _ *domrec.Receipt) error {
		t.Fatal("store must not run when the image is unrecoverable")
		return nil
	}

	_, err := r.Invoke(context.Background(), "store_receipt", storeArgs(testRef("gone")))
	if !errors.Is(err, domain.ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable, got %v", err)
	}
}

func TestStoreReceipt_DuplicatePassthrough(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	svc.storeFn = func(_ context.Context, _ *domrec.Receipt) error {
		return domain.ErrDuplicateReceipt
	}

	_, err := r.Invoke(context.Background(), "store_receipt", storeArgs(testRef("dup")))
	if !errors.Is(err, domain.ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}
}

// --- search_receipts_by_range ---

func TestSearchByRange_SentinelUnbounded(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	var gotMin, gotMax *float64
	svc.searchMetaFn = func(
		_ context.Context, _, _ time.Time, minAmount, maxAmount *float64,
	) ([]domrec.Receipt, error) {
		gotMin, gotMax = minAmount, maxAmount
		return nil, nil
	}

	args := map[string]any{
		"start_time": "2026-03-01T00:00:00Z",
		"end_time":   "2026-03-31T23:59:59Z",
		"min_amount": float64(-1),
		"max_amount": 100.0,
	}
	if _, err := r.Invoke(context.Background(), "search_receipts_by_range", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMin != nil {
		t.Errorf("-1 must mean unbounded, got %v", *gotMin)
	}
	if gotMax == nil || *gotMax != 100 {
		t.Errorf("max bound lost: %v", gotMax)
	}
}

func TestSearchByRange_OmittedAmountsUnbounded(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	svc.searchMetaFn = func(
		_ context.Context, _, _ time.Time, minAmount, maxAmount *float64,
	) ([]domrec.Receipt, error) {
		if minAmount != nil || maxAmount != nil {
			t.Errorf("omitted bounds must be nil: %v %v", minAmount, maxAmount)
		}
		return nil, nil
	}

	args := map[string]any{
		"start_time": "2026-03-01T00:00:00Z",
		"end_time":   "2026-03-02T00:00:00Z",
	}
	out, err := r.Invoke(context.Background(), "search_receipts_by_range", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if result["count"] != 0 {
		t.Errorf("empty match set must report count 0, got %v", result["count"])
	}
}

func TestSearchByRange_InvalidRangePassthrough(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	svc.searchMetaFn = func(
		_ context.Context, _, _ time.Time, _, _ *float64,
	) ([]domrec.Receipt, error) {
		return nil, domain.ErrInvalidRange
	}

	args := map[string]any{
		"start_time": "2026-04-01T00:00:00Z",
		"end_time":   "2026-03-01T00:00:00Z",
	}
	_, err := r.Invoke(context.Background(), "search_receipts_by_range", args)
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

// --- search_receipts_by_text ---

func TestSearchByText_DefaultsLimit(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	var gotLimit int
	svc.searchSimFn = func(_ context.Context, query string, limit int) ([]domrec.Match, error) {
		if query != "coffee last week" {
			t.Errorf("query: %s", query)
		}
		gotLimit = limit
		return nil, nil
	}

	args := map[string]any{"query": "coffee last week"}
	if _, err := r.Invoke(context.Background(), "search_receipts_by_text", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 0 {
		t.Errorf("omitted limit should pass zero through to the service default, got %d", gotLimit)
	}
}

func TestSearchByText_NonPositiveLimit(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	svc.searchSimFn = func(_ context.Context, _ string, _ int) ([]domrec.Match, error) {
		t.Fatal("service must not run for an explicit non-positive limit")
		return nil, nil
	}

	for _, limit := range []float64{-3, 0} {
		args := map[string]any{"query": "coffee", "limit": limit}
		_, err := r.Invoke(context.Background(), "search_receipts_by_text", args)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("limit=%v: expected ErrInvalidArgument, got %v", limit, err)
		}
	}
}

func TestSearchByText_ResultsCarryDistance(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	ref := testRef("match")
	rec := domrec.Reconstruct(
		ref, "Bean There", time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		4.20, "USD", []domrec.LineItem{{Name: "latte", Price: 4.20}},
		nil, "blob:sha256:"+ref,
	)
	svc.searchSimFn = func(_ context.Context, _ string, _ int) ([]domrec.Match, error) {
		return []domrec.Match{{Receipt: rec, Distance: 0.37}}, nil
	}

	out, err := r.Invoke(context.Background(), "search_receipts_by_text", map[string]any{"query": "latte"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := out.(map[string]any)
	matches := result["matches"].([]matchPayload)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Distance != 0.37 || matches[0].StoreName != "Bean There" {
		t.Errorf("unexpected match: %+v", matches[0])
	}
}

func TestSearchByText_MissingQuery(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	_, err := r.Invoke(context.Background(), "search_receipts_by_text", map[string]any{})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// --- get_receipt ---

func TestGetReceipt_HappyPath(t *testing.T) {
	r, svc, _, _ := newTestRegistry(t)

	ref := testRef("stored")
	rec := domrec.Reconstruct(
		ref, "Corner Grocer", time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		42.50, "USD", nil, nil, "blob:sha256:"+ref,
	)
	svc.getFn = func(_ context.Context, id string) (domrec.Receipt, error) {
		if id != ref {
			t.Errorf("unexpected id: %s", id)
		}
		return rec, nil
	}

	out, err := r.Invoke(context.Background(), "get_receipt", map[string]any{"receipt_id": ref})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := out.(receiptPayload)
	if payload.ReceiptID != ref || payload.TransactionTime != "2026-03-14T09:26:53Z" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestGetReceipt_NotFoundPassthrough(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)

	_, err := r.Invoke(context.Background(), "get_receipt", map[string]any{"receipt_id": testRef("missing")})
	if !errors.Is(err, domain.ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
}
