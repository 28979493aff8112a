// Package roundtimer arms per-round countdowns and reports their natural expiration.
package roundtimer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRoundDuration is how long a round stays open without both guesses.
	DefaultRoundDuration = 90 * time.Second

	// FirstGuessWindow is the time left for the second player once the first guess lands.
	FirstGuessWindow = 15 * time.Second

	keyPrefix = "round:timer:"
)

// Expiration identifies a round whose timer ran out.
type Expiration struct {
	MatchID uuid.UUID
	RoundID uuid.UUID
}

// Timer manages one countdown per (match, round).
type Timer interface {
	Start(ctx context.Context, matchID, roundID uuid.UUID, d time.Duration) error
	// Cancel disarms without signalling. Cancelling an unknown round is not an error.
	Cancel(ctx context.Context, matchID, roundID uuid.UUID) error
	// Remaining returns false when no timer is active for the round.
	Remaining(ctx context.Context, matchID, roundID uuid.UUID) (time.Duration, bool, error)
	// Adjust rearms an active timer with d. It never creates a timer; it reports whether it acted.
	Adjust(ctx context.Context, matchID, roundID uuid.UUID, d time.Duration) (bool, error)
}

// Source delivers expirations until ctx is done.
type Source interface {
	Expirations(ctx context.Context) (<-chan Expiration, error)
}

// TimerKey is the identifier a timer is stored and announced under.
func TimerKey(matchID, roundID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, matchID, roundID)
}

// ParseTimerKey reverses TimerKey.
func ParseTimerKey(key string) (Expiration, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "round" || parts[1] != "timer" {
		return Expiration{}, fmt.Errorf("not a round timer key: %q", key)
	}
	matchID, err := uuid.Parse(parts[2])
	if err != nil {
		return Expiration{}, fmt.Errorf("parse match id from %q: %w", key, err)
	}
	roundID, err := uuid.Parse(parts[3])
	if err != nil {
		return Expiration{}, fmt.Errorf("parse round id from %q: %w", key, err)
	}
	return Expiration{MatchID: matchID, RoundID: roundID}, nil
}

// IsTimerKey reports whether key belongs to a round timer.
func IsTimerKey(key string) bool {
	return strings.HasPrefix(key, keyPrefix)
}
