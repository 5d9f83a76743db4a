package domain

import "errors"

var (
	// ErrDuplicateReceipt signals a rejected insert for an existing receipt_id.
	// The store is unchanged; callers may treat it as success for idempotent retries.
	ErrDuplicateReceipt = errors.New("duplicate receipt")
	// ErrReceiptNotFound signals a missing receipt.
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrInvalidRange signals a malformed time or amount range.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidArgument signals a caller error at the tool boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmbeddingUnavailable signals an embedding gateway failure.
	// Never retried internally: embedding calls are billed, retry is the caller's decision.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrGatewayTimeout signals an external gateway call that exceeded its deadline.
	ErrGatewayTimeout = errors.New("gateway timeout")
	// ErrImageUnavailable signals a reference whose payload is recoverable from
	// neither live history nor the receipt store. Data-loss signal.
	ErrImageUnavailable = errors.New("image unavailable")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrBlobNotFound signals a missing blob object.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrSessionNotFound signals an unknown conversation session.
	ErrSessionNotFound = errors.New("session not found")
)
