package tracker

import "ReversalSentinel/internal/model"

// Reconcile merges a fresh scan result with previously held signals. For every
// fresh signal the old record with the same timestamp wins, so confirmation
// results survive rescans. Old signals absent from the fresh scan are dropped.
// added holds the fresh signals whose timestamps were not seen before.
func Reconcile(old, fresh []model.Signal) (merged, added []model.Signal) {
	byTime := make(map[int64]model.Signal, len(old))
	for _, s := range old {
		byTime[s.Timestamp] = s
	}

	merged = make([]model.Signal, 0, len(fresh))
	for _, s := range fresh {
		if prev, ok := byTime[s.Timestamp]; ok {
			merged = append(merged, prev)
			continue
		}
		merged = append(merged, s)
		added = append(added, s)
	}
	return merged, added
}
