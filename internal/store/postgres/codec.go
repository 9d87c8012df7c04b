package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/plankhq/plank/internal/domain"
)

// encodeSnapshot serializes columns as the snapshot payload. A nil slice is
// stored as an empty array so a created-but-empty board round-trips cleanly.
func encodeSnapshot(cols []domain.Column) ([]byte, error) {
	if cols == nil {
		cols = []domain.Column{}
	}
	b, err := json.Marshal(cols)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// decodeSnapshot parses a stored payload. Malformed rows surface as errors so
// hydration can skip them without crashing the session.
func decodeSnapshot(payload []byte) ([]domain.Column, error) {
	var cols []domain.Column
	if err := json.Unmarshal(payload, &cols); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if cols == nil {
		cols = []domain.Column{}
	}
	for i := range cols {
		if cols[i].Notes == nil {
			cols[i].Notes = []domain.Note{}
		}
	}
	return cols, nil
}
