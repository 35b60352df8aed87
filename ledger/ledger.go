// Package ledger reads per-user daily usage with layered fallbacks.
//
// The count is always derived from logged interactions, never settable:
// a successful interaction log is what advances it. Reads fail open so
// a read-side outage never blocks a legitimate request.
package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantagecrm/guru/fallback"
	"github.com/vantagecrm/guru/policy"
	"github.com/vantagecrm/guru/store"
)

// UsageReader is the platform RPC surface the ledger depends on.
type UsageReader interface {
	DailyUsage(ctx context.Context, userID string) (int, error)
	HasReachedLimit(ctx context.Context, userID string, limit int) (bool, error)
}

// Ledger resolves daily usage counts and limit checks.
type Ledger struct {
	rpc    UsageReader
	store  store.Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastCount map[string]int
}

// New creates a ledger.
func New(rpc UsageReader, st store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		rpc:       rpc,
		store:     st,
		logger:    logger,
		now:       time.Now,
		lastCount: map[string]int{},
	}
}

// CountToday returns the user's interaction count for the current UTC
// day. Primary: platform RPC. Fallback: direct range count. If both
// fail the ledger reports 0 and logs a warning; a read outage must not
// block requests.
func (l *Ledger) CountToday(ctx context.Context, userID string) int {
	from, to := l.dayWindow()

	count, err := fallback.Try(ctx,
		func(ctx context.Context) (int, error) {
			return l.rpc.DailyUsage(ctx, userID)
		},
		func(ctx context.Context) (int, error) {
			return l.store.CountInteractionsBetween(ctx, userID, from, to)
		},
	)
	if err != nil {
		l.logger.Warn("usage read degraded, assuming zero",
			zap.String("user_id", userID),
			zap.Error(err))
		return 0
	}

	l.mu.Lock()
	l.lastCount[userID] = count
	l.mu.Unlock()
	return count
}

// HasReachedLimit reports whether the user is at or over the limit.
// Unlimited tiers short-circuit without any network call. Primary: one
// server-side predicate RPC. Fallback: compare the cached count (or a
// fresh direct count) against the limit. Both-failed reads fail open.
func (l *Ledger) HasReachedLimit(ctx context.Context, userID string, limit int) bool {
	if policy.Unlimited(limit) {
		return false
	}

	reached, err := l.rpc.HasReachedLimit(ctx, userID, limit)
	if err == nil {
		return reached
	}

	l.logger.Warn("limit check RPC failed, using local count",
		zap.String("user_id", userID),
		zap.Error(err))

	l.mu.Lock()
	cached, ok := l.lastCount[userID]
	l.mu.Unlock()
	if !ok {
		cached = l.CountToday(ctx, userID)
	}
	return cached >= limit
}

// dayWindow returns [00:00, 24:00) of the current UTC day.
func (l *Ledger) dayWindow() (time.Time, time.Time) {
	now := l.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}
