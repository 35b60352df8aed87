// Package fallback provides a primary/secondary operation combinator.
//
// The gateway reaches the platform backend through an RPC first and
// degrades to a direct table operation when the RPC errors; the same
// shape recurs for usage counts, limit checks, and log writes.
package fallback

import (
	"context"
	"fmt"
)

// Try runs primary and, if it errors, runs secondary. When both fail
// the returned error carries both causes, the secondary's wrapped for
// unwrapping.
func Try[T any](ctx context.Context, primary, secondary func(context.Context) (T, error)) (T, error) {
	v, err := primary(ctx)
	if err == nil {
		return v, nil
	}

	v, ferr := secondary(ctx)
	if ferr == nil {
		return v, nil
	}

	var zero T
	return zero, fmt.Errorf("primary: %v; fallback: %w", err, ferr)
}

// TryVoid is Try for operations without a result.
func TryVoid(ctx context.Context, primary, secondary func(context.Context) error) error {
	_, err := Try(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, primary(ctx)
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, secondary(ctx)
	})
	return err
}
