// Package interactionlog persists completed exchanges.
//
// Writes go through the platform RPC first and degrade to a direct
// table insert. When both fail the loss is bookkeeping only: the user
// already has their answer, so the error is logged and swallowed.
package interactionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/fallback"
	"github.com/vantagecrm/guru/store"
)

// InteractionWriter is the platform RPC surface the logger depends on.
type InteractionWriter interface {
	LogInteraction(ctx context.Context, rec *domain.InteractionLog) error
}

// Logger writes interaction log records.
type Logger struct {
	rpc    InteractionWriter
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an interaction logger.
func New(rpc InteractionWriter, st store.Store, logger *zap.Logger) *Logger {
	return &Logger{
		rpc:    rpc,
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Log persists one exchange. Returns whether any write path succeeded;
// callers must not surface a failure to the user.
func (l *Logger) Log(ctx context.Context, rec *domain.InteractionLog) bool {
	if rec.LogID == "" {
		rec.LogID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now().UTC()
	}

	err := fallback.TryVoid(ctx,
		func(ctx context.Context) error {
			return l.rpc.LogInteraction(ctx, rec)
		},
		func(ctx context.Context) error {
			return l.store.InsertInteraction(ctx, rec)
		},
	)
	if err != nil {
		l.logger.Warn("interaction log dropped",
			zap.String("user_id", rec.UserID),
			zap.String("page", rec.Page),
			zap.Error(err))
		return false
	}
	return true
}
