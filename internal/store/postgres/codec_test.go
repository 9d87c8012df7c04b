package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plankhq/plank/internal/domain"
)

func TestSnapshotCodec(t *testing.T) {
	t.Parallel()

	t.Run("round-trips full board state", func(t *testing.T) {
		t.Parallel()

		cols := []domain.Column{
			{ID: "c1", Title: "Todo", Notes: []domain.Note{{ID: "n1", Text: "task"}, {ID: "n2", Text: ""}}},
			{ID: "c2", Title: "Done", Notes: []domain.Note{}},
		}

		payload, err := encodeSnapshot(cols)
		require.NoError(t, err)

		got, err := decodeSnapshot(payload)
		require.NoError(t, err)
		assert.Equal(t, cols, got)
	})

	t.Run("nil encodes as empty array", func(t *testing.T) {
		t.Parallel()

		payload, err := encodeSnapshot(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(payload))

		got, err := decodeSnapshot(payload)
		require.NoError(t, err)
		assert.Equal(t, []domain.Column{}, got)
	})

	t.Run("missing notes decode as empty list", func(t *testing.T) {
		t.Parallel()

		got, err := decodeSnapshot([]byte(`[{"id":"c1","title":"Todo"}]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotNil(t, got[0].Notes)
		assert.Empty(t, got[0].Notes)
	})

	t.Run("malformed payload errors", func(t *testing.T) {
		t.Parallel()

		_, err := decodeSnapshot([]byte(`{"not":"a list"}`))
		assert.Error(t, err)
	})

	t.Run("stored field names are stable", func(t *testing.T) {
		t.Parallel()

		payload, err := encodeSnapshot([]domain.Column{
			{ID: "c1", Title: "Todo", Notes: []domain.Note{{ID: "n1", Text: "task"}}},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"c1","title":"Todo","notes":[{"id":"n1","text":"task"}]}]`, string(payload))
	})
}
