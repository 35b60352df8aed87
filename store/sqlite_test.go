package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/store"
	"github.com/vantagecrm/guru/tests/helpers"
)

func TestGetProfileNotFound(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)

	_, err := s.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUpsertAndGetProfile(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	p := &domain.Profile{UserID: "u1", FullName: "Dana Reeve", Role: "power"}
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	assert.Equal(t, "power", got.Role)

	p.Role = "admin"
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile (update) failed: %v", err)
	}
	got, err = s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	assert.Equal(t, "admin", got.Role)
}

func TestRecentDealsOrderAndLimit(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d := &domain.Deal{
			DealID:    "d" + string(rune('1'+i)),
			Title:     "Deal",
			Stage:     "qualified",
			Value:     1000,
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.InsertDeal(ctx, d); err != nil {
			t.Fatalf("InsertDeal failed: %v", err)
		}
	}

	deals, err := s.RecentDeals(ctx, 3)
	if err != nil {
		t.Fatalf("RecentDeals failed: %v", err)
	}
	assert.Len(t, deals, 3)
	assert.Equal(t, "d5", deals[0].DealID)
	assert.Equal(t, "d3", deals[2].DealID)
}

func TestOpenTasksExcludesDone(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)

	tasks := []*domain.Task{
		{TaskID: "t1", Title: "call back", Done: false, DueAt: &due, CreatedAt: now},
		{TaskID: "t2", Title: "send quote", Done: true, DueAt: &due, CreatedAt: now},
		{TaskID: "t3", Title: "no due date", Done: false, CreatedAt: now},
	}
	for _, task := range tasks {
		if err := s.InsertTask(ctx, task); err != nil {
			t.Fatalf("InsertTask failed: %v", err)
		}
	}

	open, err := s.OpenTasks(ctx, 10)
	if err != nil {
		t.Fatalf("OpenTasks failed: %v", err)
	}
	assert.Len(t, open, 2)
	// Dated tasks sort before undated ones.
	assert.Equal(t, "t1", open[0].TaskID)
	assert.Equal(t, "t3", open[1].TaskID)
	assert.Nil(t, open[1].DueAt)
}

func TestCountInteractionsBetween(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	insert := func(id, userID string, at time.Time) {
		rec := &domain.InteractionLog{
			LogID:     id,
			UserID:    userID,
			Prompt:    "q",
			Response:  "a",
			Page:      "deals",
			Model:     "gpt-4o-mini",
			CreatedAt: at,
		}
		if err := s.InsertInteraction(ctx, rec); err != nil {
			t.Fatalf("InsertInteraction failed: %v", err)
		}
	}

	insert("l1", "u1", day.Add(1*time.Hour))
	insert("l2", "u1", day.Add(23*time.Hour))
	insert("l3", "u1", day.Add(24*time.Hour)) // next day, excluded
	insert("l4", "u2", day.Add(2*time.Hour))  // other user, excluded

	count, err := s.CountInteractionsBetween(ctx, "u1", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CountInteractionsBetween failed: %v", err)
	}
	assert.Equal(t, 2, count)
}

func TestStoreSatisfiesInterface(t *testing.T) {
	var _ store.Store = helpers.NewTestSQLiteStore(t)
}
