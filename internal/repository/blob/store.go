package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
)

const uriScheme = "blob:sha256:"

// store is the consumer interface for blob persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store implements domain.BlobStore on top of the key-value store. Blobs are
// content-addressed: the URI embeds the hex SHA-256 of the payload, so Put is
// idempotent and an overwrite can only ever rewrite identical bytes.
type Store struct {
	store store
}

// New creates a blob store.
func New(s store) *Store {
	return &Store{store: s}
}

// jsonBlob is the storage envelope pairing payload bytes with content type.
// encoding/json renders Data as base64.
type jsonBlob struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Put stores the bytes and returns the content-addressed URI.
func (s *Store) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	ref := domain.ImageRef(data)
	envelope, err := json.Marshal(jsonBlob{MimeType: mimeType, Data: data})
	if err != nil {
		return "", fmt.Errorf("marshal blob %s: %w", ref, err)
	}

	if err := s.store.Set(ctx, blobKey(ref), envelope); err != nil {
		return "", fmt.Errorf("set blob %s: %w", ref, err)
	}
	return uriScheme + ref, nil
}

// Get retrieves a blob by its URI.
func (s *Store) Get(ctx context.Context, uri string) (domain.Blob, error) {
	ref, ok := parseURI(uri)
	if !ok {
		return domain.Blob{}, fmt.Errorf("malformed blob URI %q: %w", uri, domain.ErrBlobNotFound)
	}

	raw, err := s.store.Get(ctx, blobKey(ref))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Blob{}, domain.ErrBlobNotFound
		}
		return domain.Blob{}, fmt.Errorf("get blob %s: %w", ref, err)
	}

	var envelope jsonBlob
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.Blob{}, fmt.Errorf("unmarshal blob %s: %w", ref, err)
	}
	return domain.Blob{Data: envelope.Data, MimeType: envelope.MimeType}, nil
}

func parseURI(uri string) (string, bool) {
	ref, ok := strings.CutPrefix(uri, uriScheme)
	if !ok || !domain.IsImageRef(ref) {
		return "", false
	}
	return ref, true
}

func blobKey(ref string) string {
	return domain.KeyPrefix + "blobs:" + ref
}
