package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/plankhq/plank/internal/domain"
)

// ServePresence registers the connecting participant on the board's roster
// and streams roster updates back. The participant's lease is refreshed for
// as long as the connection stays open and dropped when it closes.
//
// Query parameters: name (display name, optional).
func (h *Hub) ServePresence(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDParam(w, r)
	if !ok {
		return
	}

	participant := domain.Participant{
		ID:   uuid.NewString(),
		Name: r.URL.Query().Get("name"),
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	if err := h.presence.Heartbeat(ctx, boardID, participant); err != nil {
		log.Error().Err(err).Stringer("board", boardID).Msg("presence heartbeat")
		_ = conn.Close(websocket.StatusInternalError, "presence unavailable")
		return
	}
	defer func() {
		// Best-effort removal; the lease expires anyway if this fails.
		if leaveErr := h.presence.Leave(r.Context(), boardID, participant); leaveErr != nil {
			log.Debug().Err(leaveErr).Msg("presence leave")
		}
	}()

	sendRoster := func() error {
		roster, listErr := h.presence.List(ctx, boardID)
		if listErr != nil {
			return listErr
		}
		payload, marshalErr := json.Marshal(roster)
		if marshalErr != nil {
			return marshalErr
		}
		return conn.Write(ctx, websocket.MessageText, payload)
	}

	if err := sendRoster(); err != nil {
		log.Debug().Err(err).Msg("presence write")
		return
	}

	// Refresh the lease at a third of the TTL so a missed beat does not
	// expire the participant.
	heartbeat := time.NewTicker(h.presenceTTL / 3)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case <-heartbeat.C:
			if err := h.presence.Heartbeat(ctx, boardID, participant); err != nil {
				log.Warn().Err(err).Stringer("board", boardID).Msg("presence heartbeat")
				return
			}
			if err := sendRoster(); err != nil {
				log.Debug().Err(err).Msg("presence write")
				return
			}
		}
	}
}
