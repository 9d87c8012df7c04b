package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plankhq/plank/internal/domain"
)

// SnapshotRepo stores one denormalized snapshot row per board. The row is a
// derived cold-start cache: upserts are last-write-wins overwrites.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) Fetch(ctx context.Context, boardID uuid.UUID) ([]domain.Column, error) {
	var payload []byte

	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM board_snapshots WHERE board_id = $1`,
		boardID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("snapshotRepo.Fetch: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Fetch: %w", err)
	}

	cols, err := decodeSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Fetch: %w", err)
	}

	return cols, nil
}

// Insert creates the snapshot row only when the board does not exist yet.
// The conflict check is atomic at the database, so two concurrent creates of
// the same id cannot both succeed.
func (r *SnapshotRepo) Insert(ctx context.Context, boardID uuid.UUID, cols []domain.Column) error {
	payload, err := encodeSnapshot(cols)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Insert: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO board_snapshots (board_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (board_id) DO NOTHING`,
		boardID, payload,
	)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("snapshotRepo.Insert: %w", domain.ErrAlreadyExists)
	}

	return nil
}

func (r *SnapshotRepo) Upsert(ctx context.Context, boardID uuid.UUID, cols []domain.Column) error {
	payload, err := encodeSnapshot(cols)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Upsert: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO board_snapshots (board_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (board_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		boardID, payload,
	)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Upsert: %w", err)
	}

	return nil
}
