package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// ServeSync handles a participant's replication connection. The client and
// server exchange binary automerge sync messages until either side
// disconnects; the server side of the exchange is the board's room model, so
// edits flow to every other participant and to the snapshot persister.
//
// Joining acquires the room (first joiner hydrates); disconnecting releases
// it, and the last release flushes the snapshot.
func (h *Hub) ServeSync(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rm, err := h.rooms.Acquire(ctx, boardID)
	if err != nil {
		log.Error().Err(err).Stringer("board", boardID).Msg("room join failed")
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return
	}
	defer rm.Release()

	model := rm.Model()
	syncState := model.NewSyncState()

	// Nudge the write loop whenever the document changes for any reason
	// (local REST edits, other participants, hydration).
	changes, unsubscribe := model.Subscribe()
	defer unsubscribe()

	// Read loop: apply peer messages to the shared document.
	go func() {
		defer cancel()
		for {
			typ, data, readErr := conn.Read(ctx)
			if readErr != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			if _, recvErr := model.ReceiveSyncMessage(syncState, data); recvErr != nil {
				log.Warn().Err(recvErr).Stringer("board", boardID).Msg("sync message rejected")
				return
			}
		}
	}()

	flush := func() error {
		for _, msg := range model.GenerateSyncMessages(syncState) {
			if writeErr := conn.Write(ctx, websocket.MessageBinary, msg); writeErr != nil {
				return writeErr
			}
		}
		return nil
	}

	// Initial exchange, then write on change nudges with a ticker fallback.
	if err := flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case _, open := <-changes:
			if !open {
				_ = conn.Close(websocket.StatusNormalClosure, "board closed")
				return
			}
			if err := flush(); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
