package engine

import (
	"context"
	"fmt"

	"github.com/pulsetrace/pulsetrace/internal/models"
)

// Stats computes the tenant-scoped summary aggregate: total events,
// distinct user and event-name cardinalities, and the time bounds of
// the event set. An empty scope yields zero counts and null bounds.
// Recomputed from current state on every call; no caching.
func (e *Engine) Stats(ctx context.Context, tc models.TenantContext) (models.EventStats, error) {
	if !tc.Resolved() {
		return models.EventStats{}, ErrUnauthenticated
	}

	stats, err := e.store.Stats(ctx, tc)
	if err != nil {
		return models.EventStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}
