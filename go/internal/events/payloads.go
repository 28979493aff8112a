package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// Event payload types shared by the bus publisher and the gateway

// RoundEndedPayload is the payload for a round.ended event
type RoundEndedPayload struct {
	MatchID            uuid.UUID                          `json:"match_id"`
	RoundID            uuid.UUID                          `json:"round_id"`
	RoundNumber        int                                `json:"round_number"`
	CorrectAnswer      models.Coordinate                  `json:"correct_answer"`
	PlayerAID          uuid.UUID                          `json:"player_a_id"`
	PlayerBID          uuid.UUID                          `json:"player_b_id"`
	PlayerAGuess       models.Optional[models.Coordinate] `json:"player_a_guess"`
	PlayerBGuess       models.Optional[models.Coordinate] `json:"player_b_guess"`
	PlayerAPoints      int                                `json:"player_a_points"`
	PlayerBPoints      int                                `json:"player_b_points"`
	PlayerATotalPoints int                                `json:"player_a_total_points"`
	PlayerBTotalPoints int                                `json:"player_b_total_points"`
	RoundWinnerID      models.Optional[uuid.UUID]         `json:"round_winner_id"`
	EndedAt            time.Time                          `json:"ended_at"`
}

// RoundSummary is one completed round inside a MatchEndedPayload
type RoundSummary struct {
	RoundID       uuid.UUID                          `json:"round_id"`
	RoundNumber   int                                `json:"round_number"`
	CorrectAnswer models.Optional[models.Coordinate] `json:"correct_answer"`
	PlayerAGuess  models.Optional[models.Coordinate] `json:"player_a_guess"`
	PlayerBGuess  models.Optional[models.Coordinate] `json:"player_b_guess"`
	PlayerAPoints int                                `json:"player_a_points"`
	PlayerBPoints int                                `json:"player_b_points"`
}

// MatchEndedPayload is the payload for a match.ended event
type MatchEndedPayload struct {
	MatchID            uuid.UUID                  `json:"match_id"`
	PlayerAID          uuid.UUID                  `json:"player_a_id"`
	PlayerBID          uuid.UUID                  `json:"player_b_id"`
	WinnerID           models.Optional[uuid.UUID] `json:"winner_id"`
	LoserID            models.Optional[uuid.UUID] `json:"loser_id"`
	PlayerATotalPoints int                        `json:"player_a_total_points"`
	PlayerBTotalPoints int                        `json:"player_b_total_points"`
	PointsEarned       models.Optional[int]       `json:"points_earned"`
	PointsLost         models.Optional[int]       `json:"points_lost"`
	StartedAt          time.Time                  `json:"started_at"`
	EndedAt            time.Time                  `json:"ended_at"`
	Rounds             []RoundSummary             `json:"rounds"`
}

// NewRoundEndedPayload builds the payload for a round that has just been scored.
func NewRoundEndedPayload(m *models.GameMatch, r *models.GameRound, endedAt time.Time) RoundEndedPayload {
	return RoundEndedPayload{
		MatchID:            m.ID,
		RoundID:            r.ID,
		RoundNumber:        r.Number,
		CorrectAnswer:      r.Answer.OrElse(models.Coordinate{}),
		PlayerAID:          r.PlayerAID,
		PlayerBID:          r.PlayerBID,
		PlayerAGuess:       r.PlayerAGuess,
		PlayerBGuess:       r.PlayerBGuess,
		PlayerAPoints:      r.PlayerAPoints.OrElse(0),
		PlayerBPoints:      r.PlayerBPoints.OrElse(0),
		PlayerATotalPoints: m.PlayerATotalPoints,
		PlayerBTotalPoints: m.PlayerBTotalPoints,
		RoundWinnerID:      r.Winner(),
		EndedAt:            endedAt,
	}
}

// NewMatchEndedPayload builds the payload for a match after EndMatch.
func NewMatchEndedPayload(m *models.GameMatch) MatchEndedPayload {
	rounds := make([]RoundSummary, 0, len(m.Rounds))
	for _, r := range m.Rounds {
		rounds = append(rounds, RoundSummary{
			RoundID:       r.ID,
			RoundNumber:   r.Number,
			CorrectAnswer: r.Answer,
			PlayerAGuess:  r.PlayerAGuess,
			PlayerBGuess:  r.PlayerBGuess,
			PlayerAPoints: r.PlayerAPoints.OrElse(0),
			PlayerBPoints: r.PlayerBPoints.OrElse(0),
		})
	}

	return MatchEndedPayload{
		MatchID:            m.ID,
		PlayerAID:          m.PlayerAID,
		PlayerBID:          m.PlayerBID,
		WinnerID:           m.WinnerID,
		LoserID:            m.LoserID,
		PlayerATotalPoints: m.PlayerATotalPoints,
		PlayerBTotalPoints: m.PlayerBTotalPoints,
		PointsEarned:       m.PointsEarned,
		PointsLost:         m.PointsLost,
		StartedAt:          m.StartedAt,
		EndedAt:            m.EndedAt.OrElse(time.Time{}),
		Rounds:             rounds,
	}
}
