package queue

import (
	"sort"

	"github.com/fanline/fanline/internal/domain"
)

// PositionChange describes one entry moved by a renumbering pass.
type PositionChange struct {
	Entry       domain.QueueEntry
	OldPosition int
	NewPosition int
	Update      PositionUpdate
	// Notify is set when the position improved by at least the configured
	// delta; single-slot shifts stay quiet.
	Notify bool
}

// recompute compacts the waiting pool to positions 1..N and rederives every
// estimated call time. Entries are ordered by current position with joinedAt
// as the tiebreak; positions should already be unique, the tiebreak guards
// against drift. Only entries whose position actually changed are returned,
// so running it twice in a row yields nothing the second time.
//
// Duplicate positions mean the invariant is already broken; recompute returns
// ErrPositionConflict and the caller must abort the pass rather than write
// on top of inconsistent data.
func recompute(event *domain.Event, waiting []domain.QueueEntry, notifyDelta int) ([]PositionChange, error) {
	sorted := make([]domain.QueueEntry, len(waiting))
	copy(sorted, waiting)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Position == sorted[i-1].Position {
			return nil, ErrPositionConflict
		}
	}

	changes := make([]PositionChange, 0)
	for i := range sorted {
		newPosition := i + 1
		if sorted[i].Position == newPosition {
			continue
		}

		change := PositionChange{
			Entry:       sorted[i],
			OldPosition: sorted[i].Position,
			NewPosition: newPosition,
			Update: PositionUpdate{
				EntryID:           sorted[i].ID,
				Position:          newPosition,
				EstimatedCallTime: event.EstimatedCallTime(newPosition),
			},
			Notify: sorted[i].Position-newPosition >= notifyDelta,
		}
		changes = append(changes, change)
	}

	return changes, nil
}
