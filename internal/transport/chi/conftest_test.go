package chi

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	domrec "github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/tools"
	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/receiptdex/internal/usecase/session"
	usageuc "github.com/kailas-cloud/receiptdex/internal/usecase/usage"
)

type mockReceipts struct {
	getFn func(ctx context.Context, id string) (domrec.Receipt, error)
}

func (m *mockReceipts) Get(ctx context.Context, id string) (domrec.Receipt, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domrec.Receipt{}, domain.ErrReceiptNotFound
}

type mockBlobs struct {
	getFn func(ctx context.Context, uri string) (domain.Blob, error)
}

func (m *mockBlobs) Get(ctx context.Context, uri string) (domain.Blob, error) {
	if m.getFn != nil {
		return m.getFn(ctx, uri)
	}
	return domain.Blob{}, domain.ErrBlobNotFound
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type testServer struct {
	router   chi.Router
	sessions *sessionuc.Manager
	registry *tools.Registry
}

func newTestServer(t *testing.T, opts ...func(*testDeps)) *testServer {
	t.Helper()

	deps := &testDeps{
		receipts: &mockReceipts{},
		blobs:    &mockBlobs{},
		pinger:   &mockPinger{},
		registry: tools.NewRegistry(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	sessions, err := sessionuc.New(deps.receipts, deps.blobs, 3, 1<<20, 1<<20, zap.NewNop())
	if err != nil {
		t.Fatalf("create session manager: %v", err)
	}

	srv := NewServer(
		sessions,
		deps.registry,
		usageuc.New(nil),
		healthuc.New(deps.pinger, nil),
		zap.NewNop(),
	)

	r := chi.NewRouter()
	srv.Routes(r)

	return &testServer{router: r, sessions: sessions, registry: deps.registry}
}

type testDeps struct {
	receipts *mockReceipts
	blobs    *mockBlobs
	pinger   *mockPinger
	registry *tools.Registry
}

func withReceipts(m *mockReceipts) func(*testDeps) { return func(d *testDeps) { d.receipts = m } }
func withBlobs(m *mockBlobs) func(*testDeps)       { return func(d *testDeps) { d.blobs = m } }
func withPinger(m *mockPinger) func(*testDeps)     { return func(d *testDeps) { d.pinger = m } }
func withTool(tool tools.Tool) func(*testDeps) {
	return func(d *testDeps) { d.registry.Register(tool) }
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
