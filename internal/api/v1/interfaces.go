package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/board"
	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/room"
)

// Rooms is the slice of the room registry the handlers need: open a board's
// live session for mutations, or peek at one for reads.
type Rooms interface {
	Acquire(ctx context.Context, boardID uuid.UUID) (*room.Room, error)
	Peek(boardID uuid.UUID) (*board.Model, bool)
}

// SnapshotStore is the durable snapshot access the handlers need: the domain
// port plus atomic creation of a new board row.
type SnapshotStore interface {
	domain.SnapshotRepository
	Insert(ctx context.Context, boardID uuid.UUID, cols []domain.Column) error
}

// PresenceLister reads a board's online roster.
type PresenceLister interface {
	List(ctx context.Context, boardID uuid.UUID) ([]domain.Participant, error)
}
