// Package room manages the live replicated document for each board. A room
// exists while at least one participant is attached: the first join hydrates
// the model from the durable snapshot and starts the persister, the last
// leave flushes and retires the room.
package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/plankhq/plank/internal/board"
	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/persist"
)

// Room is one board's live session state. Handles are reference counted via
// Acquire/Release.
type Room struct {
	boardID   uuid.UUID
	model     *board.Model
	persister *persist.Persister
	refs      int
	reg       *Registry
	initOnce  sync.Once
}

// BoardID returns the board this room serves.
func (rm *Room) BoardID() uuid.UUID { return rm.boardID }

// Model returns the live replicated board model.
func (rm *Room) Model() *board.Model { return rm.model }

// Release drops one reference. When the last reference is gone the persister
// is closed (flushing unpersisted state) and the room is retired.
func (rm *Room) Release() {
	g := rm.reg

	g.mu.Lock()
	rm.refs--
	last := rm.refs == 0
	var p *persist.Persister
	if last {
		delete(g.rooms, rm.boardID)
		p = rm.persister
	}
	g.mu.Unlock()

	if last {
		if p != nil {
			p.Close()
		}
		log.Debug().Stringer("board", rm.boardID).Msg("room retired")
	}
}

// Registry maps board ids to live rooms.
type Registry struct {
	repo     domain.SnapshotRepository
	hydrator *board.Hydrator
	notify   persist.Notifier
	debounce time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	rooms  map[uuid.UUID]*Room
	closed bool
}

// NewRegistry creates a registry whose persisters run until Close. notify may
// be nil.
func NewRegistry(repo domain.SnapshotRepository, debounce time.Duration, notify persist.Notifier) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		repo:     repo,
		hydrator: board.NewHydrator(repo),
		notify:   notify,
		debounce: debounce,
		baseCtx:  ctx,
		cancel:   cancel,
		rooms:    make(map[uuid.UUID]*Room),
	}
}

// Acquire joins a board's room, creating it on first join. The first join
// hydrates the model (fetch failures are contained: the board starts empty
// for this session) and starts the snapshot persister. Callers must Release
// the returned room.
func (g *Registry) Acquire(ctx context.Context, boardID uuid.UUID) (*Room, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, fmt.Errorf("room.Acquire: %w", domain.ErrRoomClosed)
	}
	rm, ok := g.rooms[boardID]
	if !ok {
		rm = &Room{boardID: boardID, model: board.New(), reg: g}
		g.rooms[boardID] = rm
	}
	rm.refs++
	g.mu.Unlock()

	// First joiner initializes; concurrent joiners block here until the room
	// is hydrated and the persister is running.
	rm.initOnce.Do(func() {
		if err := g.hydrator.Hydrate(ctx, boardID, rm.model); err != nil {
			log.Warn().Err(err).Stringer("board", boardID).Msg("hydration failed, continuing with empty board")
		}
		p := persist.New(boardID, rm.model, g.repo, g.debounce, g.notify)
		// Publish under the registry lock; Release and Close read it there.
		g.mu.Lock()
		rm.persister = p
		g.mu.Unlock()
		p.Start(g.baseCtx)
		log.Info().Stringer("board", boardID).Msg("room opened")
	})

	return rm, nil
}

// Peek returns the live model for a board when a room is currently open.
// Used for cold reads that should not spin a room up.
func (g *Registry) Peek(boardID uuid.UUID) (*board.Model, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rm, ok := g.rooms[boardID]
	if !ok {
		return nil, false
	}
	return rm.model, true
}

// Close retires all rooms, flushing their persisters, and rejects further
// acquisitions. Used on server shutdown.
func (g *Registry) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	retired := len(g.rooms)
	// A room whose first joiner is still hydrating has no persister yet; its
	// persister starts on the cancelled base context and exits on its own,
	// and that joiner's Release closes it.
	persisters := make([]*persist.Persister, 0, retired)
	for _, rm := range g.rooms {
		if rm.persister != nil {
			persisters = append(persisters, rm.persister)
		}
	}
	g.rooms = make(map[uuid.UUID]*Room)
	g.mu.Unlock()

	for _, p := range persisters {
		p.Close()
	}
	g.cancel()

	log.Info().Int("rooms", retired).Msg("room registry closed")
}
