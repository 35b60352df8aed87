// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/vantagecrm/guru/domain"
)

// Store is the relational surface the gateway reads and, for the
// interaction log fallback path, writes.
type Store interface {
	// Profile reads
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// Bounded, recency-ordered CRM reads for context assembly
	RecentDeals(ctx context.Context, limit int) ([]domain.Deal, error)
	RecentStageTransitions(ctx context.Context, limit int) ([]domain.StageTransition, error)
	OpenTasks(ctx context.Context, limit int) ([]domain.Task, error)
	RecentContacts(ctx context.Context, limit int) ([]domain.Contact, error)

	// Interaction log fallback paths
	InsertInteraction(ctx context.Context, rec *domain.InteractionLog) error
	CountInteractionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error)

	// Lifecycle
	Close() error
}
