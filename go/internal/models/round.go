package models

import (
	"time"

	"github.com/google/uuid"
)

// GameRound is one location challenge inside a match.
type GameRound struct {
	ID            uuid.UUID            `json:"id"`
	MatchID       uuid.UUID            `json:"match_id"`
	Number        int                  `json:"number"`
	PlayerAID     uuid.UUID            `json:"player_a_id"`
	PlayerBID     uuid.UUID            `json:"player_b_id"`
	Location      Location             `json:"location"`
	Answer        Optional[Coordinate] `json:"answer"`
	PlayerAGuess  Optional[Coordinate] `json:"player_a_guess"`
	PlayerBGuess  Optional[Coordinate] `json:"player_b_guess"`
	PlayerAPoints Optional[int]        `json:"player_a_points"`
	PlayerBPoints Optional[int]        `json:"player_b_points"`
	StartedAt     time.Time            `json:"started_at"`
	Ended         bool                 `json:"ended"`
}

func newRound(matchID, playerA, playerB uuid.UUID, number int, now time.Time) *GameRound {
	return &GameRound{
		ID:        uuid.New(),
		MatchID:   matchID,
		Number:    number,
		PlayerAID: playerA,
		PlayerBID: playerB,
		StartedAt: now,
	}
}

// end scores both guesses against answer. Called once per round by GameMatch.EndRound.
func (r *GameRound) end(answer Coordinate, guessA, guessB Optional[Coordinate]) {
	r.Answer = Some(answer)
	r.PlayerAGuess = guessA
	r.PlayerBGuess = guessB
	r.PlayerAPoints = Some(PointsFor(guessA, answer))
	r.PlayerBPoints = Some(PointsFor(guessB, answer))
	r.Ended = true
}

// Winner returns the player with strictly more points. Ties and unscored rounds have no winner.
func (r *GameRound) Winner() Optional[uuid.UUID] {
	a, okA := r.PlayerAPoints.Get()
	b, okB := r.PlayerBPoints.Get()
	if !okA || !okB {
		return None[uuid.UUID]()
	}
	switch {
	case a > b:
		return Some(r.PlayerAID)
	case b > a:
		return Some(r.PlayerBID)
	default:
		return None[uuid.UUID]()
	}
}

// HasPlayer reports whether playerID takes part in the round.
func (r *GameRound) HasPlayer(playerID uuid.UUID) bool {
	return r.PlayerAID == playerID || r.PlayerBID == playerID
}
