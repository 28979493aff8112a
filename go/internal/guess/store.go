// Package guess stores the per-round guesses and correct answer for the life of a round.
package guess

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// DefaultTTL bounds how long round data survives an abandoned match.
const DefaultTTL = 5 * time.Minute

// Store keeps guesses and answers keyed by match and round.
type Store interface {
	// StoreGuess records the player's first guess for the round. It reports false, and
	// leaves the stored guess untouched, when the player already guessed.
	StoreGuess(ctx context.Context, matchID, roundID, playerID uuid.UUID, c models.Coordinate) (bool, error)
	GetGuess(ctx context.Context, matchID, roundID, playerID uuid.UUID) (models.Optional[models.Coordinate], error)
	GetBothGuesses(ctx context.Context, matchID, roundID, playerA, playerB uuid.UUID) (models.Optional[models.Coordinate], models.Optional[models.Coordinate], error)
	StoreAnswer(ctx context.Context, matchID, roundID uuid.UUID, c models.Coordinate) error
	GetAnswer(ctx context.Context, matchID, roundID uuid.UUID) (models.Optional[models.Coordinate], error)
	ClearRound(ctx context.Context, matchID, roundID uuid.UUID, playerA, playerB uuid.UUID) error
}

func guessKey(matchID, roundID, playerID uuid.UUID) string {
	return fmt.Sprintf("guess:%s:%s:%s", matchID, roundID, playerID)
}

func answerKey(matchID, roundID uuid.UUID) string {
	return fmt.Sprintf("answer:%s:%s", matchID, roundID)
}
