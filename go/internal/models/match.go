package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxRounds is the number of rounds in a match.
const MaxRounds = 3

// ErrInvalidState is returned when a transition is not allowed from the match's current state.
var ErrInvalidState = errors.New("invalid match state")

// GameMatch is the aggregate for a two-player match.
type GameMatch struct {
	ID                 uuid.UUID           `json:"id"`
	PlayerAID          uuid.UUID           `json:"player_a_id"`
	PlayerBID          uuid.UUID           `json:"player_b_id"`
	PlayerATotalPoints int                 `json:"player_a_total_points"`
	PlayerBTotalPoints int                 `json:"player_b_total_points"`
	Rounds             []*GameRound        `json:"rounds"`
	CurrentRound       *GameRound          `json:"current_round,omitempty"`
	WinnerID           Optional[uuid.UUID] `json:"winner_id"`
	LoserID            Optional[uuid.UUID] `json:"loser_id"`
	PointsEarned       Optional[int]       `json:"points_earned"`
	PointsLost         Optional[int]       `json:"points_lost"`
	StartedAt          time.Time           `json:"started_at"`
	EndedAt            Optional[time.Time] `json:"ended_at"`
}

// NewMatch creates a match between two players with no rounds played.
func NewMatch(playerA, playerB uuid.UUID, now time.Time) *GameMatch {
	return &GameMatch{
		ID:        uuid.New(),
		PlayerAID: playerA,
		PlayerBID: playerB,
		Rounds:    []*GameRound{},
		StartedAt: now,
	}
}

// TotalRounds is the number of completed rounds.
func (m *GameMatch) TotalRounds() int {
	return len(m.Rounds)
}

// CanStartNewRound reports whether the cap allows another round and no round is in progress.
func (m *GameMatch) CanStartNewRound() bool {
	if m.TotalRounds() >= MaxRounds {
		return false
	}
	return m.CurrentRound == nil || m.CurrentRound.Ended
}

// StartRound opens the next round at location.
func (m *GameMatch) StartRound(location Location, now time.Time) (*GameRound, error) {
	return m.OpenRound(uuid.New(), location, now)
}

// OpenRound is StartRound with a caller-chosen round ID.
func (m *GameMatch) OpenRound(id uuid.UUID, location Location, now time.Time) (*GameRound, error) {
	if m.CurrentRound != nil && !m.CurrentRound.Ended {
		return nil, fmt.Errorf("%w: round %d is still in progress", ErrInvalidState, m.CurrentRound.Number)
	}
	if m.TotalRounds() >= MaxRounds {
		return nil, fmt.Errorf("%w: match already played %d rounds", ErrInvalidState, MaxRounds)
	}
	if m.IsEnded() {
		return nil, fmt.Errorf("%w: match has ended", ErrInvalidState)
	}

	round := newRound(m.ID, m.PlayerAID, m.PlayerBID, m.TotalRounds()+1, now)
	round.ID = id
	round.Location = location
	m.CurrentRound = round
	return round, nil
}

// EndRound scores the current round, appends it to the history and clears the current slot.
func (m *GameMatch) EndRound(answer Coordinate, guessA, guessB Optional[Coordinate]) (*GameRound, error) {
	round := m.CurrentRound
	if round == nil || round.Ended {
		return nil, fmt.Errorf("%w: no round in progress", ErrInvalidState)
	}

	round.end(answer, guessA, guessB)
	m.Rounds = append(m.Rounds, round)
	m.PlayerATotalPoints += round.PlayerAPoints.OrElse(0)
	m.PlayerBTotalPoints += round.PlayerBPoints.OrElse(0)
	m.CurrentRound = nil
	return round, nil
}

// EndMatch stamps the end time and, when totals differ, assigns winner, loser and the
// point transfer.
func (m *GameMatch) EndMatch(now time.Time) {
	m.EndedAt = Some(now)

	a, b := m.PlayerATotalPoints, m.PlayerBTotalPoints
	if a == b {
		return
	}

	winner, loser := m.PlayerAID, m.PlayerBID
	winnerPoints, loserPoints := a, b
	if b > a {
		winner, loser = m.PlayerBID, m.PlayerAID
		winnerPoints, loserPoints = b, a
	}

	earned, lost := PointTransfer(winnerPoints - loserPoints)
	m.WinnerID = Some(winner)
	m.LoserID = Some(loser)
	m.PointsEarned = Some(earned)
	m.PointsLost = Some(lost)
}

func (m *GameMatch) IsEnded() bool {
	return m.EndedAt.IsSome()
}

// HasPlayer reports whether playerID is one of the two participants.
func (m *GameMatch) HasPlayer(playerID uuid.UUID) bool {
	return m.PlayerAID == playerID || m.PlayerBID == playerID
}

// Opponent returns the other participant.
func (m *GameMatch) Opponent(playerID uuid.UUID) uuid.UUID {
	if playerID == m.PlayerAID {
		return m.PlayerBID
	}
	return m.PlayerAID
}

// PointTransfer maps the winner's margin to the points earned by the winner and lost by the loser.
func PointTransfer(diff int) (earned, lost int) {
	switch {
	case diff >= 20:
		return 100, 30
	case diff >= 10:
		return 75, 50
	case diff >= 0:
		return 50, 75
	default:
		return 30, 100
	}
}
