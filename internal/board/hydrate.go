package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/plankhq/plank/internal/domain"
)

// Hydrator populates an empty model from the durable snapshot, at most once
// per session. A board that was already populated (by a concurrent hydration
// or by remote edits arriving first) is left untouched.
type Hydrator struct {
	repo domain.SnapshotRepository
}

func NewHydrator(repo domain.SnapshotRepository) *Hydrator {
	return &Hydrator{repo: repo}
}

// Hydrate loads the snapshot for boardID into m when m is still empty.
//
// Outcomes:
//   - no snapshot row: the board simply starts empty, nil error;
//   - model already populated (before the fetch, or at write time after a
//     concurrent hydration won the race): no-op, nil error;
//   - fetch failure: returned to the caller, who continues the session with
//     an empty board. Hydration errors are never session-fatal.
func (h *Hydrator) Hydrate(ctx context.Context, boardID uuid.UUID, m *Model) error {
	if m.Len() > 0 {
		log.Debug().Stringer("board", boardID).Msg("hydration skipped: board already populated")
		return nil
	}

	cols, err := h.repo.Fetch(ctx, boardID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Debug().Stringer("board", boardID).Msg("no snapshot: board starts empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("hydrator.Hydrate: fetch %s: %w", boardID, err)
	}

	// The emptiness re-check happens atomically inside ApplySnapshot: if a
	// remote participant populated the board between fetch and write, abort
	// rather than double-insert.
	if err := m.ApplySnapshot(cols); err != nil {
		if errors.Is(err, domain.ErrNotEmpty) {
			log.Debug().Stringer("board", boardID).Msg("hydration raced: board populated concurrently")
			return nil
		}
		return fmt.Errorf("hydrator.Hydrate: apply %s: %w", boardID, err)
	}

	log.Info().Stringer("board", boardID).Int("columns", len(cols)).Msg("board hydrated")
	return nil
}
