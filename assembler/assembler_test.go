package assembler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/store"
	"github.com/vantagecrm/guru/tests/helpers"
)

func seedCRM(t *testing.T, s *store.SQLiteStore, now time.Time) {
	t.Helper()
	ctx := context.Background()

	if err := s.InsertContact(ctx, &domain.Contact{ContactID: "c1", Name: "Ada Byron", Company: "Analytical", CreatedAt: now}); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}
	if err := s.InsertDeal(ctx, &domain.Deal{DealID: "d1", Title: "Analytical renewal", Stage: "negotiation", Value: 12000, ContactID: "c1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("InsertDeal failed: %v", err)
	}
	if err := s.InsertStageTransition(ctx, &domain.StageTransition{TransitionID: "tr1", DealID: "d1", FromStage: "qualified", ToStage: "negotiation", ChangedAt: now}); err != nil {
		t.Fatalf("InsertStageTransition failed: %v", err)
	}

	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	if err := s.InsertTask(ctx, &domain.Task{TaskID: "t1", Title: "overdue call", DueAt: &past, CreatedAt: now}); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
	if err := s.InsertTask(ctx, &domain.Task{TaskID: "t2", Title: "future demo", DueAt: &future, CreatedAt: now}); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
}

func TestPageIsolation(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedCRM(t, s, now)

	a := New(s, zap.NewNop())
	ctx := context.Background()

	deals := a.Assemble(ctx, "deals", "u1")
	assert.Contains(t, deals.Data, "recent_deals")
	assert.Contains(t, deals.Data, "stage_history")
	assert.NotContains(t, deals.Data, "open_tasks")
	assert.NotContains(t, deals.Data, "overdue_tasks")

	tasks := a.Assemble(ctx, "tasks", "u1")
	assert.Contains(t, tasks.Data, "open_tasks")
	assert.Contains(t, tasks.Data, "overdue_tasks")
	assert.NotContains(t, tasks.Data, "recent_deals")
	assert.NotContains(t, tasks.Data, "stage_history")
}

func TestOverdueSubset(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedCRM(t, s, now)

	a := New(s, zap.NewNop())
	a.now = func() time.Time { return now }

	snap := a.Assemble(context.Background(), "tasks", "u1")

	overdue, ok := snap.Data["overdue_tasks"].([]domain.Task)
	if !ok {
		t.Fatalf("overdue_tasks has unexpected type: %T", snap.Data["overdue_tasks"])
	}
	assert.Len(t, overdue, 1)
	assert.Equal(t, "t1", overdue[0].TaskID)
	for _, task := range overdue {
		assert.False(t, task.Done)
		assert.True(t, task.DueAt.Before(now))
	}
}

func TestUnknownPageFallsThroughToGeneric(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedCRM(t, s, now)

	a := New(s, zap.NewNop())
	snap := a.Assemble(context.Background(), "settings", "u1")

	assert.Equal(t, "settings", snap.Page)
	assert.Contains(t, snap.Data, "recent_deals")
	assert.Contains(t, snap.Data, "open_tasks")
	assert.NotEmpty(t, a.SuggestedQueries("settings"))
}

// failingStore errors on deal reads only.
type failingStore struct {
	store.Store
}

func (f *failingStore) RecentDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	return nil, errors.New("deals table unavailable")
}

func TestPartialDegradation(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedCRM(t, s, now)

	a := New(&failingStore{Store: s}, zap.NewNop())
	snap := a.Assemble(context.Background(), "deals", "u1")

	assert.NotContains(t, snap.Data, "recent_deals", "failed sub-fetch must be omitted")
	assert.Contains(t, snap.Data, "stage_history", "healthy sub-fetch must survive")
}

func TestSnapshotFreshPerRequest(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	a := New(s, zap.NewNop())

	first := a.Assemble(context.Background(), "deals", "u1")
	second := a.Assemble(context.Background(), "deals", "u1")

	first.Data["poisoned"] = true
	assert.NotContains(t, second.Data, "poisoned")
}
