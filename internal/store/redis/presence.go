package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/plankhq/plank/internal/domain"
)

// Presence tracks which participants are currently connected to a board.
// Each board has one sorted set: member = participant JSON, score = lease
// expiry. A participant is online while its lease has not expired; sessions
// refresh the lease by heartbeating.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	return &Presence{client: client, ttl: ttl}
}

// Heartbeat registers or refreshes a participant's lease on a board.
func (p *Presence) Heartbeat(ctx context.Context, boardID uuid.UUID, participant domain.Participant) error {
	member, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("presence.Heartbeat: encode: %w", err)
	}

	expiry := time.Now().Add(p.ttl)
	err = p.client.ZAdd(ctx, PresenceKey(boardID), redis.Z{
		Score:  float64(expiry.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return fmt.Errorf("presence.Heartbeat: %w", err)
	}

	// Keep the roster key itself from outliving an abandoned board.
	if err := p.client.Expire(ctx, PresenceKey(boardID), 2*p.ttl).Err(); err != nil {
		return fmt.Errorf("presence.Heartbeat: expire: %w", err)
	}

	return nil
}

// Leave removes a participant from the roster immediately.
func (p *Presence) Leave(ctx context.Context, boardID uuid.UUID, participant domain.Participant) error {
	member, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("presence.Leave: encode: %w", err)
	}

	if err := p.client.ZRem(ctx, PresenceKey(boardID), string(member)).Err(); err != nil {
		return fmt.Errorf("presence.Leave: %w", err)
	}
	return nil
}

// List returns the participants whose lease is still live, pruning expired
// entries as a side effect.
func (p *Presence) List(ctx context.Context, boardID uuid.UUID) ([]domain.Participant, error) {
	now := time.Now().UnixMilli()
	key := PresenceKey(boardID)

	if err := p.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now, 10)).Err(); err != nil {
		return nil, fmt.Errorf("presence.List: prune: %w", err)
	}

	members, err := p.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("presence.List: %w", err)
	}

	out := make([]domain.Participant, 0, len(members))
	for _, m := range members {
		var participant domain.Participant
		if err := json.Unmarshal([]byte(m), &participant); err != nil {
			// Skip malformed entries rather than failing the roster read.
			continue
		}
		out = append(out, participant)
	}
	return out, nil
}
