// Package persist keeps the durable snapshot fresh: every observed board
// mutation schedules a full-state upsert, with bursts coalesced into one
// write of the latest state.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/plankhq/plank/internal/board"
	"github.com/plankhq/plank/internal/domain"
)

// Notifier is called after each successful upsert, e.g. to publish a
// board-updated event. May be nil.
type Notifier func(ctx context.Context, boardID uuid.UUID)

// Persister subscribes to a model's change stream and upserts the serialized
// board after every observed mutation. Failed upserts are logged and not
// retried here: the next mutation carries the latest state forward, so a
// transient failure self-heals as long as editing continues. If no further
// mutation arrives, the snapshot stays stale until the session closes (the
// final flush) or the next edit.
type Persister struct {
	boardID  uuid.UUID
	model    *board.Model
	repo     domain.SnapshotRepository
	notify   Notifier
	debounce time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a persister for one board session. debounce may be zero to
// persist immediately on every change signal.
func New(boardID uuid.UUID, m *board.Model, repo domain.SnapshotRepository, debounce time.Duration, notify Notifier) *Persister {
	return &Persister{
		boardID:  boardID,
		model:    m,
		repo:     repo,
		notify:   notify,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start acquires the change subscription and launches the single consumer.
// The subscription is released when Close is called or ctx is cancelled.
func (p *Persister) Start(ctx context.Context) {
	changes, cancel := p.model.Subscribe()
	go p.run(ctx, changes, cancel)
}

// Close releases the subscription, flushes any unpersisted state best-effort
// and waits for the consumer to exit. Safe to call more than once.
func (p *Persister) Close() {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Persister) run(ctx context.Context, changes <-chan board.Change, cancel func()) {
	defer close(p.done)
	defer cancel()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			p.finalFlush(dirty || drain(changes))
			return
		case <-p.stop:
			p.finalFlush(dirty || drain(changes))
			return
		case c, ok := <-changes:
			if !ok {
				p.finalFlush(dirty)
				return
			}
			log.Debug().Stringer("board", p.boardID).Str("kind", string(c.Kind)).Msg("change observed")

			// Coalesce: wait out the burst, then drain whatever queued up so
			// rapid typing becomes one upsert of the latest state.
			if p.debounce > 0 {
				timer := time.NewTimer(p.debounce)
				select {
				case <-timer.C:
				case <-p.stop:
					timer.Stop()
				case <-ctx.Done():
					timer.Stop()
				}
			}
			drain(changes)

			if p.persist(ctx) {
				dirty = false
			} else {
				dirty = true
			}
		}
	}
}

// persist serializes the full current state and upserts it. Returns false
// when the write failed.
func (p *Persister) persist(ctx context.Context) bool {
	cols, err := p.model.ReadAll()
	if err != nil {
		log.Error().Err(err).Stringer("board", p.boardID).Msg("snapshot serialization failed")
		return false
	}

	if err := p.repo.Upsert(ctx, p.boardID, cols); err != nil {
		log.Error().Err(err).Stringer("board", p.boardID).Msg("snapshot upsert failed")
		return false
	}

	log.Debug().Stringer("board", p.boardID).Int("columns", len(cols)).Msg("snapshot persisted")
	if p.notify != nil {
		p.notify(ctx, p.boardID)
	}
	return true
}

// finalFlush writes once more on teardown when a change was observed since
// the last successful upsert. Uses a short background deadline: the session
// context is usually already cancelled at this point.
func (p *Persister) finalFlush(dirty bool) {
	if !dirty {
		return
	}
	ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFn()
	p.persist(ctx)
}

// drain empties queued change signals and reports whether any were pending.
func drain(ch <-chan board.Change) bool {
	any := false
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return any
			}
			any = true
		default:
			return any
		}
	}
}
