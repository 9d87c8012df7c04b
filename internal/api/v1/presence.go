package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
)

type GetPresenceInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type GetPresenceOutput struct {
	Body []domain.Participant
}

func RegisterPresenceRoutes(api huma.API, presence PresenceLister) {
	huma.Register(api, huma.Operation{
		OperationID: "get-presence",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/presence",
		Summary:     "List participants currently online on a board",
		Tags:        []string{"Presence"},
	}, func(ctx context.Context, input *GetPresenceInput) (*GetPresenceOutput, error) {
		roster, err := presence.List(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list presence", err)
		}
		if roster == nil {
			roster = []domain.Participant{}
		}
		return &GetPresenceOutput{Body: roster}, nil
	})
}
