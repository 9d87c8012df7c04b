package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/room"
	redisstore "github.com/plankhq/plank/internal/store/redis"
)

// Hub serves the WebSocket endpoints: the automerge sync channel that keeps
// participants' documents converging, the board-updated event feed backed by
// Redis pub/sub, and the presence roster.
type Hub struct {
	rooms        *room.Registry
	pubsub       *redisstore.PubSub
	presence     *redisstore.Presence
	syncInterval time.Duration
	presenceTTL  time.Duration
}

// NewHub creates a WebSocket hub.
func NewHub(rooms *room.Registry, pubsub *redisstore.PubSub, presence *redisstore.Presence, syncInterval, presenceTTL time.Duration) *Hub {
	return &Hub{
		rooms:        rooms,
		pubsub:       pubsub,
		presence:     presence,
		syncInterval: syncInterval,
		presenceTTL:  presenceTTL,
	}
}

func boardIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return boardID, true
}
