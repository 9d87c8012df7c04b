package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisstore "github.com/plankhq/plank/internal/store/redis"
)

// BoardEvent is the payload published on a board's Redis channel after each
// persisted snapshot.
type BoardEvent struct {
	Type    string    `json:"type"` // "snapshot_persisted"
	BoardID uuid.UUID `json:"board_id"`
}

// ServeEvents streams board update notifications to clients that only want
// to know when to re-fetch (e.g. read-only viewers), without joining the
// replication channel. Subscribes to Redis channel "board:<boardID>".
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDParam(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	channel := redisstore.BoardChannel(boardID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
