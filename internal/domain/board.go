package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// TitleMaxLen bounds column titles at the API edge.
	TitleMaxLen = 200
	// TextMaxLen bounds note text at the API edge.
	TextMaxLen = 4000
)

// Note is a single card inside a column. ID is assigned once at creation
// and never changes; Text is mutable by any participant.
type Note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Column is an ordered list of notes under a title. Order is insertion
// order; there is no sort key and no reorder operation.
type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes []Note `json:"notes"`
}

// Participant is a connected session contributing presence to a board.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SnapshotRepository persists the denormalized board state, one row per
// board. The snapshot is derived, never authoritative: the live replicated
// document is the source of truth while any participant is connected.
type SnapshotRepository interface {
	// Fetch returns the stored columns for a board, or ErrNotFound when the
	// board has never been persisted.
	Fetch(ctx context.Context, boardID uuid.UUID) ([]Column, error)
	// Upsert overwrites the stored columns for a board. Last write wins.
	Upsert(ctx context.Context, boardID uuid.UUID, cols []Column) error
}

// ValidateTitle checks a column title against length bounds.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if len(title) > TitleMaxLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, TitleMaxLen)
	}
	return nil
}

// ValidateText checks note text against length bounds. Empty text is
// allowed: notes are created blank and filled in afterwards.
func ValidateText(text string) error {
	if len(text) > TextMaxLen {
		return fmt.Errorf("%w: text exceeds %d characters", ErrValidation, TextMaxLen)
	}
	return nil
}

// CloneColumns returns a deep copy so callers can hold snapshot results
// without aliasing the source slice.
func CloneColumns(cols []Column) []Column {
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{ID: c.ID, Title: c.Title, Notes: make([]Note, len(c.Notes))}
		copy(out[i].Notes, c.Notes)
	}
	return out
}
