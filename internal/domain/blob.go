package domain

import "context"

// Blob is a stored binary object with its content type.
type Blob struct {
	Data     []byte
	MimeType string
}

// BlobStore is the object storage contract. The in-tree implementation keeps
// blobs in the database; production deployments swap in object storage behind
// the same interface.
type BlobStore interface {
	// Put stores bytes and returns a stable retrieval URI.
	Put(ctx context.Context, data []byte, mimeType string) (string, error)
	// Get retrieves a blob by URI. Returns ErrBlobNotFound for unknown URIs.
	Get(ctx context.Context, uri string) (Blob, error)
}
