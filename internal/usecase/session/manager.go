package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/conversation"
	"github.com/kailas-cloud/receiptdex/internal/logger"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// IncomingImage is an image payload attached to a new turn, before a
// reference has been assigned.
type IncomingImage struct {
	Data     []byte
	MimeType string
}

// session is one conversation's history. The per-session mutex serializes
// appends and resolves within a session; distinct sessions never contend.
type session struct {
	mu    sync.Mutex
	turns []conversation.Turn
}

// Manager owns conversation sessions: appending turns, enforcing the image
// retention window, and resolving [IMAGE-ID] references back to bytes.
//
// Resolve is dual-path. References inside the retention window come straight
// from history; older references fall back to the receipt store, where the
// archived original lives under the same content-addressed key. A small
// in-process byte cache absorbs repeated store-side resolves.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	receipts      ReceiptReader
	blobs         BlobReader
	window        int
	maxImageBytes int
	cache         *ristretto.Cache
	logger        *zap.Logger
}

// New creates a session manager. cacheBytes bounds the resolve byte cache.
func New(
	receipts ReceiptReader, blobs BlobReader,
	window, maxImageBytes int, cacheBytes int64, log *zap.Logger,
) (*Manager, error) {
	if window <= 0 {
		window = conversation.DefaultRetentionWindow
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     cacheBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create resolve cache: %w", err)
	}

	return &Manager{
		sessions:      make(map[string]*session),
		receipts:      receipts,
		blobs:         blobs,
		window:        window,
		maxImageBytes: maxImageBytes,
		cache:         cache,
		logger:        log,
	}, nil
}

// NewSessionID mints a fresh session identifier.
func (m *Manager) NewSessionID() string { return uuid.NewString() }

// AppendTurn adds a turn to the session (created on first use), assigns
// content-addressed references to its images, and re-applies the retention
// window to the whole history. Returns the appended turn with references set.
func (m *Manager) AppendTurn(
	ctx context.Context, sessionID string,
	role conversation.Role, text string, images []IncomingImage,
) (conversation.Turn, error) {
	if sessionID == "" {
		return conversation.Turn{}, fmt.Errorf("session ID is required: %w", domain.ErrInvalidArgument)
	}
	if !role.Valid() {
		return conversation.Turn{}, fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidArgument)
	}

	attachments := make([]conversation.Attachment, 0, len(images))
	for i, img := range images {
		if len(img.Data) == 0 {
			return conversation.Turn{}, fmt.Errorf("image %d is empty: %w", i, domain.ErrInvalidArgument)
		}
		if m.maxImageBytes > 0 && len(img.Data) > m.maxImageBytes {
			return conversation.Turn{}, fmt.Errorf("image %d exceeds %d bytes: %w",
				i, m.maxImageBytes, domain.ErrInvalidArgument)
		}
		attachments = append(attachments, conversation.Attachment{
			Ref:      domain.ImageRef(img.Data),
			MimeType: img.MimeType,
			Data:     img.Data,
		})
	}

	turn := conversation.Turn{Role: role, Text: text, Images: attachments}

	s := m.getOrCreate(sessionID)
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	before := countLivePayloads(s.turns)
	s.turns = conversation.Prune(s.turns, m.window)
	pruned := before - countLivePayloads(s.turns)
	s.mu.Unlock()

	metrics.SessionTurnsTotal.WithLabelValues(string(role)).Inc()
	if pruned > 0 {
		metrics.SessionImagesPrunedTotal.Add(float64(pruned))
		logger.FromContext(ctx).Debug("Pruned image payloads",
			zap.String("session_id", sessionID),
			zap.Int("pruned", pruned),
		)
	}

	return turn, nil
}

// History returns a snapshot of the session's turns.
func (m *Manager) History(_ context.Context, sessionID string) ([]conversation.Turn, error) {
	s, ok := m.get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conversation.Turn, len(s.turns))
	copy(out, s.turns)
	return out, nil
}

// Resolve turns an image reference back into bytes. In-window references
// come from live history; pruned references fall back to the receipt store's
// archived original. A reference that was never stored as a receipt, or whose
// archived blob is gone, is unrecoverable.
func (m *Manager) Resolve(ctx context.Context, sessionID, ref string) (domain.Blob, error) {
	if !domain.IsImageRef(ref) {
		return domain.Blob{}, fmt.Errorf("malformed image reference %q: %w", ref, domain.ErrInvalidArgument)
	}

	s, ok := m.get(sessionID)
	if !ok {
		return domain.Blob{}, domain.ErrSessionNotFound
	}

	s.mu.Lock()
	att, live := conversation.FindLivePayload(s.turns, ref)
	s.mu.Unlock()
	if live {
		metrics.SessionResolveTotal.WithLabelValues("history").Inc()
		return domain.Blob{Data: att.Data, MimeType: att.MimeType}, nil
	}

	if cached, ok := m.cache.Get(ref); ok {
		if blob, ok := cached.(domain.Blob); ok {
			metrics.SessionResolveTotal.WithLabelValues("cache").Inc()
			return blob, nil
		}
	}

	blob, err := m.resolveFromStore(ctx, ref)
	if err != nil {
		metrics.SessionResolveTotal.WithLabelValues("miss").Inc()
		logger.FromContext(ctx).Warn("Image reference unrecoverable",
			zap.String("session_id", sessionID),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return domain.Blob{}, err
	}

	m.cache.Set(ref, blob, int64(len(blob.Data)))
	metrics.SessionResolveTotal.WithLabelValues("store").Inc()
	return blob, nil
}

func (m *Manager) resolveFromStore(ctx context.Context, ref string) (domain.Blob, error) {
	rec, err := m.receipts.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrReceiptNotFound) {
			return domain.Blob{}, fmt.Errorf("no receipt archived for reference %s: %w",
				ref, domain.ErrImageUnavailable)
		}
		return domain.Blob{}, fmt.Errorf("load receipt %s: %w", ref, err)
	}

	blob, err := m.blobs.Get(ctx, rec.ImageURI())
	if err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			return domain.Blob{}, fmt.Errorf("archived blob missing for %s: %w",
				ref, domain.ErrImageUnavailable)
		}
		return domain.Blob{}, fmt.Errorf("load blob %s: %w", rec.ImageURI(), err)
	}
	return blob, nil
}

func (m *Manager) get(sessionID string) (*session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *Manager) getOrCreate(sessionID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s = &session{}
	m.sessions[sessionID] = s
	return s
}

func countLivePayloads(turns []conversation.Turn) int {
	n := 0
	for i := range turns {
		for j := range turns[i].Images {
			if turns[i].Images[j].Live() {
				n++
			}
		}
	}
	return n
}
