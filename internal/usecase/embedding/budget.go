package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
// Implementations must be idempotent (IncrBy can be called repeatedly).
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// budgetWindow is one rolling accounting period (a day or a month).
// A zero limit means the window never rejects.
type budgetWindow struct {
	label     string // key segment and log field prefix
	keyLayout string // time layout for the key suffix
	limit     int64
	used      int64
	start     time.Time                 // current window start, UTC
	truncate  func(time.Time) time.Time // maps any instant to its window start
}

// rollOver zeroes the counter when the window has moved past start.
// Caller holds the tracker mutex.
func (w *budgetWindow) rollOver(now time.Time) {
	if cur := w.truncate(now); cur.After(w.start) {
		w.used = 0
		w.start = cur
	}
}

func (w *budgetWindow) exceeded() bool {
	return w.limit > 0 && w.used >= w.limit
}

// remaining returns tokens left in the window, -1 when unlimited.
func (w *budgetWindow) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	if left := w.limit - w.used; left > 0 {
		return left
	}
	return 0
}

func (w *budgetWindow) key(provider string) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, provider, w.label, w.start.Format(w.keyLayout))
}

// BudgetTracker enforces daily and monthly token budgets.
// Check is in-memory only so the hot path never does a store round-trip;
// Record updates counters first and then writes behind to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	day      budgetWindow
	month    budgetWindow
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits.
// A zero limit disables the corresponding window.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		day: budgetWindow{
			label:     "daily",
			keyLayout: "2006-01-02",
			limit:     dailyLimit,
			start:     truncateToDay(now),
			truncate:  truncateToDay,
		},
		month: budgetWindow{
			label:     "monthly",
			keyLayout: "2006-01",
			limit:     monthlyLimit,
			start:     truncateToMonth(now),
			truncate:  truncateToMonth,
		},
		action:   action,
		provider: provider,
		logger:   logger,
	}
}

// WithStore attaches a persistence store and loads current counters, so a
// restart does not forget what was already spent today and this month.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	for _, w := range []*budgetWindow{&b.day, &b.month} {
		val, err := store.Get(ctx, w.key(b.provider))
		if err != nil {
			b.logger.Warn("Failed to load budget counter from store",
				zap.String("window", w.label), zap.Error(err))
			continue
		}
		w.used = val
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

// Check verifies the budget allows a new request. In-memory only (hot path).
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	b.day.rollOver(now)
	b.month.rollOver(now)

	if !b.day.exceeded() && !b.month.exceeded() {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	// action=warn: log but allow the request through
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.used),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record registers consumed tokens after a request.
// Updates in-memory counters, then write-behind to store (if attached).
func (b *BudgetTracker) Record(tokens int64) {
	now := time.Now().UTC()

	b.mu.Lock()
	store := b.store
	keys := make([]string, 0, 2)
	for _, w := range []*budgetWindow{&b.day, &b.month} {
		w.rollOver(now)
		w.used += tokens
		keys = append(keys, w.key(b.provider))
	}
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind: store writes must not block the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.day.rollOver(time.Now().UTC())
	return b.day.remaining()
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.month.rollOver(time.Now().UTC())
	return b.month.remaining()
}

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.day.limit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.month.limit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.day.rollOver(time.Now().UTC())
	return b.day.used
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.month.rollOver(time.Now().UTC())
	return b.month.used
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
