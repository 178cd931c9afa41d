package revision

import (
	"context"
	"fmt"
	"time"
)

// Prune deletes history older than the retention window, measured from
// the platform clock.
func (m *Module) Prune(ctx context.Context, retain time.Duration) (int64, error) {
	if retain < 0 {
		return 0, fmt.Errorf("prune: retention must be non-negative, got %s", retain)
	}
	horizon := m.platform.Clock().Now().Add(-retain)
	n, err := m.store.Prune(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if n > 0 {
		m.platform.Logger().Info("pruned revision history", "events", n, "horizon", horizon)
	}
	return n, nil
}

// PruneToDepth keeps at most depth events per (page, field) pair.
func (m *Module) PruneToDepth(ctx context.Context, depth int) (int64, error) {
	n, err := m.store.PruneToDepth(ctx, depth)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if n > 0 {
		m.platform.Logger().Info("pruned revision history to depth", "events", n, "depth", depth)
	}
	return n, nil
}
