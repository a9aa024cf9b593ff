package service

import (
	"context"
	"fmt"

	"handover/internal/domain"
)

// CounterDrift reports one item whose stored request counter diverges from
// the recount of its non-withdrawn requests.
type CounterDrift struct {
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	RequestCount   int64  `json:"request_count"`
	ActiveRequests int64  `json:"active_requests"`
	Drift          int64  `json:"drift"`
}

// AuditCounters recomputes request counts per item and reports divergence.
// Read-only: drift is reported, never corrected, because the transactional
// submission path is the only supported counter writer.
func AuditCounters(ctx context.Context, store domain.Store) ([]CounterDrift, error) {
	items, err := store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var drifts []CounterDrift
	for _, item := range items {
		requests, err := store.ListRequests(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list requests for item %s: %w", item.ID, err)
		}

		var active int64
		for _, req := range requests {
			if req.Active() {
				active++
			}
		}

		if active != item.RequestCount {
			drifts = append(drifts, CounterDrift{
				ItemID:         item.ID,
				ItemName:       item.Name,
				RequestCount:   item.RequestCount,
				ActiveRequests: active,
				Drift:          item.RequestCount - active,
			})
		}
	}
	return drifts, nil
}
