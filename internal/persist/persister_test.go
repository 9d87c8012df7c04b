package persist_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plankhq/plank/internal/board"
	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/persist"
)

// recordingRepo captures every upsert and can be made to fail on demand.
type recordingRepo struct {
	mu      sync.Mutex
	history [][]domain.Column
	failing bool
}

func (r *recordingRepo) Fetch(_ context.Context, _ uuid.UUID) ([]domain.Column, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingRepo) Upsert(_ context.Context, _ uuid.UUID, cols []domain.Column) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("storage unreachable")
	}
	r.history = append(r.history, domain.CloneColumns(cols))
	return nil
}

func (r *recordingRepo) setFailing(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = v
}

func (r *recordingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

func (r *recordingRepo) last() []domain.Column {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

func TestPersisterWritesAfterMutation(t *testing.T) {
	t.Parallel()

	m := board.New()
	repo := &recordingRepo{}
	p := persist.New(uuid.New(), m, repo, 0, nil)
	p.Start(context.Background())
	defer p.Close()

	col, err := m.AppendColumn("Todo")
	require.NoError(t, err)
	note, err := m.AppendNote(col)
	require.NoError(t, err)
	require.NoError(t, m.SetNoteText(note, "task"))

	want, err := m.ReadAll()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		last := repo.last()
		return last != nil && assert.ObjectsAreEqual(want, last)
	}, 2*time.Second, 10*time.Millisecond, "persister must upsert a payload matching the final state")
}

func TestPersisterCoalescesBursts(t *testing.T) {
	t.Parallel()

	m := board.New()
	repo := &recordingRepo{}
	p := persist.New(uuid.New(), m, repo, 50*time.Millisecond, nil)
	p.Start(context.Background())

	col, err := m.AppendColumn("Todo")
	require.NoError(t, err)
	note, err := m.AppendNote(col)
	require.NoError(t, err)

	// Rapid typing: many edits well inside the debounce window.
	const edits = 50
	for i := 0; i < edits; i++ {
		require.NoError(t, m.SetNoteText(note, "draft"))
	}
	require.NoError(t, m.SetNoteText(note, "final"))

	want, err := m.ReadAll()
	require.NoError(t, err)

	p.Close()

	assert.Less(t, repo.count(), edits, "burst must coalesce into fewer upserts than edits")
	assert.Equal(t, want, repo.last(), "last upsert must carry the final state")
}

func TestPersisterFailureSelfHeals(t *testing.T) {
	t.Parallel()

	m := board.New()
	repo := &recordingRepo{}
	repo.setFailing(true)

	p := persist.New(uuid.New(), m, repo, 0, nil)
	p.Start(context.Background())
	defer p.Close()

	_, err := m.AppendColumn("lost to the outage")
	require.NoError(t, err)

	// Give the consumer a moment to attempt (and fail) the write.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, repo.count())

	repo.setFailing(false)
	_, err = m.AppendColumn("second column")
	require.NoError(t, err)

	want, err := m.ReadAll()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, repo.last())
	}, 2*time.Second, 10*time.Millisecond, "next mutation must carry the full state forward")
}

func TestPersisterCloseFlushesPending(t *testing.T) {
	t.Parallel()

	m := board.New()
	repo := &recordingRepo{}
	// Long debounce: the mutation signal is still pending when Close runs.
	p := persist.New(uuid.New(), m, repo, time.Hour, nil)
	p.Start(context.Background())

	_, err := m.AppendColumn("Todo")
	require.NoError(t, err)

	want, err := m.ReadAll()
	require.NoError(t, err)

	p.Close()

	require.NotZero(t, repo.count(), "close must flush the unpersisted change")
	assert.Equal(t, want, repo.last())
}

func TestPersisterCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m := board.New()
	p := persist.New(uuid.New(), m, &recordingRepo{}, 0, nil)
	p.Start(context.Background())
	p.Close()
	p.Close()
}

func TestPersisterNotifierFiresAfterUpsert(t *testing.T) {
	t.Parallel()

	m := board.New()
	repo := &recordingRepo{}
	boardID := uuid.New()

	var mu sync.Mutex
	notified := 0
	notify := func(_ context.Context, id uuid.UUID) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, boardID, id)
		notified++
	}

	p := persist.New(boardID, m, repo, 0, notify)
	p.Start(context.Background())

	_, err := m.AppendColumn("Todo")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return notified > 0
	}, 2*time.Second, 10*time.Millisecond)

	p.Close()
}
