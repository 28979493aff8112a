// Package matchmaking pairs waiting players in strict arrival order.
package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyQueued is returned by Join for a player that is already waiting.
var ErrAlreadyQueued = errors.New("player already in queue")

// Entry is a waiting player. Seq breaks ties between entries enqueued at the same instant.
type Entry struct {
	PlayerID   uuid.UUID
	EnqueuedAt time.Time
	Seq        uint64
}

// Pair is two players removed from the queue together, oldest first.
type Pair struct {
	PlayerA uuid.UUID
	PlayerB uuid.UUID
}

// Queue is a FIFO of waiting players. TryMatch must be atomic across concurrent callers.
type Queue interface {
	Join(ctx context.Context, playerID uuid.UUID) error
	Leave(ctx context.Context, playerID uuid.UUID) error
	TryMatch(ctx context.Context) (Pair, bool, error)
	Size(ctx context.Context) (int, error)
	Contains(ctx context.Context, playerID uuid.UUID) (bool, error)
}
