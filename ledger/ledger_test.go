package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/policy"
	"github.com/vantagecrm/guru/store"
	"github.com/vantagecrm/guru/tests/helpers"
)

// fakeRPC counts calls and can be forced to fail.
type fakeRPC struct {
	usage        int
	reached      bool
	fail         bool
	usageCalls   int
	reachedCalls int
}

func (f *fakeRPC) DailyUsage(ctx context.Context, userID string) (int, error) {
	f.usageCalls++
	if f.fail {
		return 0, errors.New("rpc down")
	}
	return f.usage, nil
}

func (f *fakeRPC) HasReachedLimit(ctx context.Context, userID string, limit int) (bool, error) {
	f.reachedCalls++
	if f.fail {
		return false, errors.New("rpc down")
	}
	return f.reached, nil
}

func TestCountTodayPrimary(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	rpc := &fakeRPC{usage: 4}
	l := New(rpc, s, zap.NewNop())

	assert.Equal(t, 4, l.CountToday(context.Background(), "u1"))
	assert.Equal(t, 1, rpc.usageCalls)
}

func TestCountTodayFallsBackToDirectCount(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{now.Add(-time.Hour), now.Add(-2 * time.Hour), now.Add(-30 * time.Hour)} {
		rec := &domain.InteractionLog{
			LogID: "l" + string(rune('1'+i)), UserID: "u1",
			Prompt: "q", Response: "a", Page: "deals", CreatedAt: at,
		}
		if err := s.InsertInteraction(ctx, rec); err != nil {
			t.Fatalf("InsertInteraction failed: %v", err)
		}
	}

	rpc := &fakeRPC{fail: true}
	l := New(rpc, s, zap.NewNop())
	l.now = func() time.Time { return now }

	// Two interactions fall inside today's UTC window, one is yesterday.
	assert.Equal(t, 2, l.CountToday(ctx, "u1"))
	assert.Equal(t, 1, rpc.usageCalls)
}

// failingCountStore fails every direct count.
type failingCountStore struct {
	store.Store
}

func (failingCountStore) CountInteractionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return 0, errors.New("table gone")
}

func TestCountTodayBothPathsFailOpen(t *testing.T) {
	rpc := &fakeRPC{fail: true}
	l := New(rpc, failingCountStore{helpers.NewTestSQLiteStore(t)}, zap.NewNop())

	assert.Equal(t, 0, l.CountToday(context.Background(), "u1"),
		"double read failure must fail open as zero usage")
}

func TestHasReachedLimitPrimary(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	rpc := &fakeRPC{reached: true}
	l := New(rpc, s, zap.NewNop())

	assert.True(t, l.HasReachedLimit(context.Background(), "u1", 10))
}

func TestHasReachedLimitUnlimitedSkipsNetwork(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	rpc := &fakeRPC{reached: true}
	l := New(rpc, s, zap.NewNop())

	assert.False(t, l.HasReachedLimit(context.Background(), "u1", policy.UnlimitedDailyLimit))
	assert.Equal(t, 0, rpc.reachedCalls, "unlimited tier must not call the RPC")
	assert.Equal(t, 0, rpc.usageCalls)
}

func TestHasReachedLimitFallsBackToCachedCount(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	rpc := &fakeRPC{usage: 10}
	l := New(rpc, s, zap.NewNop())
	ctx := context.Background()

	// Prime the cache through a successful read, then break the RPC.
	assert.Equal(t, 10, l.CountToday(ctx, "u1"))
	rpc.fail = true

	assert.True(t, l.HasReachedLimit(ctx, "u1", 10))
	assert.False(t, l.HasReachedLimit(ctx, "u1", 11))
}

func TestHasReachedLimitAllPathsFailOpen(t *testing.T) {
	rpc := &fakeRPC{fail: true}
	l := New(rpc, failingCountStore{helpers.NewTestSQLiteStore(t)}, zap.NewNop())

	assert.False(t, l.HasReachedLimit(context.Background(), "u1", 1),
		"read-side outage must never block a request")
}
