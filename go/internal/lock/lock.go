// Package lock provides short-lived mutual exclusion keyed by string, shared across instances.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Handle is proof of ownership for an acquired key.
type Handle struct {
	Key   string
	Token string
}

// Locker claims and releases keys. Acquire never blocks or retries; callers decide what
// a miss means.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Handle, bool, error)
	Release(ctx context.Context, h *Handle) error
}

// EndRoundKey is the lock that serializes round finalization.
func EndRoundKey(matchID, roundID uuid.UUID) string {
	return fmt.Sprintf("endround:%s:%s", matchID, roundID)
}

// MatchKey is the lock guarding read-modify-write of a match aggregate.
func MatchKey(matchID uuid.UUID) string {
	return fmt.Sprintf("match:%s", matchID)
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
