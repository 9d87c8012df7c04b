package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/board"
	"github.com/plankhq/plank/internal/domain"
)

type CreateBoardInput struct {
	Body struct {
		// ID lets callers bring their own board id; one is generated when
		// omitted.
		ID *uuid.UUID `json:"id,omitempty" doc:"Optional caller-generated board ID"`
	}
}

type CreateBoardOutput struct {
	Status int
	Body   struct {
		ID uuid.UUID `json:"id"`
	}
}

type GetBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body []domain.Column
}

type AppendColumnInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Body    struct {
		Title string `json:"title" doc:"Column title"`
	}
}

type AppendColumnOutput struct {
	Status int
	Body   domain.Column
}

type AppendNoteInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID string    `path:"columnID" doc:"Column ID"`
}

type AppendNoteOutput struct {
	Status int
	Body   domain.Note
}

type SetColumnTitleInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID string    `path:"columnID" doc:"Column ID"`
	Body     struct {
		Title string `json:"title" doc:"New column title"`
	}
}

type SetColumnTitleOutput struct {
	Body domain.Column
}

type SetNoteTextInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID string    `path:"columnID" doc:"Column ID"`
	NoteID   string    `path:"noteID" doc:"Note ID"`
	Body     struct {
		Text string `json:"text" doc:"New note text"`
	}
}

type SetNoteTextOutput struct {
	Body domain.Note
}

// RegisterBoardRoutes wires the board CRUD surface. Mutations go through the
// live room model so they take the same replication and persistence path as
// WebSocket participants; the room is held only for the duration of the
// request, and releasing it flushes the snapshot.
func RegisterBoardRoutes(api huma.API, rooms Rooms, repo SnapshotStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-board",
		Method:        http.MethodPost,
		Path:          "/boards",
		Summary:       "Create a board",
		Tags:          []string{"Boards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		id := uuid.New()
		if input.Body.ID != nil {
			id = *input.Body.ID
		}

		// Refuse to clobber an existing board with a caller-supplied id. The
		// existence check is atomic in the store, so concurrent creates of
		// the same id resolve to exactly one winner.
		err := repo.Insert(ctx, id, []domain.Column{})
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, huma.Error409Conflict("board already exists")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		out := &CreateBoardOutput{Status: http.StatusCreated}
		out.Body.ID = id
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Read the full board state",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		// Prefer the live model when a session is open; it carries edits the
		// snapshot may not have yet.
		if m, live := rooms.Peek(input.BoardID); live {
			cols, err := m.ReadAll()
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to read board", err)
			}
			return &GetBoardOutput{Body: cols}, nil
		}

		cols, err := repo.Fetch(ctx, input.BoardID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("board not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read board", err)
		}
		return &GetBoardOutput{Body: cols}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-column",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/columns",
		Summary:       "Append a column to the board",
		Tags:          []string{"Boards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AppendColumnInput) (*AppendColumnOutput, error) {
		if err := domain.ValidateTitle(input.Body.Title); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		rm, err := rooms.Acquire(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("board unavailable", err)
		}
		defer rm.Release()

		col, err := rm.Model().AppendColumn(input.Body.Title)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to append column", err)
		}

		return &AppendColumnOutput{
			Status: http.StatusCreated,
			Body:   domain.Column{ID: col.ID, Title: input.Body.Title, Notes: []domain.Note{}},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-note",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/columns/{columnID}/notes",
		Summary:       "Append a blank note to a column",
		Tags:          []string{"Boards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AppendNoteInput) (*AppendNoteOutput, error) {
		rm, err := rooms.Acquire(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("board unavailable", err)
		}
		defer rm.Release()

		note, err := rm.Model().AppendNote(board.ColumnHandle{ID: input.ColumnID})
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("column not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to append note", err)
		}

		return &AppendNoteOutput{
			Status: http.StatusCreated,
			Body:   domain.Note{ID: note.NoteID, Text: ""},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-column-title",
		Method:      http.MethodPatch,
		Path:        "/boards/{boardID}/columns/{columnID}",
		Summary:     "Rename a column",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *SetColumnTitleInput) (*SetColumnTitleOutput, error) {
		if err := domain.ValidateTitle(input.Body.Title); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		rm, err := rooms.Acquire(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("board unavailable", err)
		}
		defer rm.Release()

		err = rm.Model().SetColumnTitle(board.ColumnHandle{ID: input.ColumnID}, input.Body.Title)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("column not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to set column title", err)
		}

		// Read the column back so the response carries its notes.
		cols, err := rm.Model().ReadAll()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read board", err)
		}
		for _, c := range cols {
			if c.ID == input.ColumnID {
				return &SetColumnTitleOutput{Body: c}, nil
			}
		}
		return nil, huma.Error404NotFound("column not found")
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-note-text",
		Method:      http.MethodPatch,
		Path:        "/boards/{boardID}/columns/{columnID}/notes/{noteID}",
		Summary:     "Edit a note's text",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *SetNoteTextInput) (*SetNoteTextOutput, error) {
		if err := domain.ValidateText(input.Body.Text); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		rm, err := rooms.Acquire(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("board unavailable", err)
		}
		defer rm.Release()

		err = rm.Model().SetNoteText(board.NoteHandle{ColumnID: input.ColumnID, NoteID: input.NoteID}, input.Body.Text)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("note not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to set note text", err)
		}

		return &SetNoteTextOutput{
			Body: domain.Note{ID: input.NoteID, Text: input.Body.Text},
		}, nil
	})
}
