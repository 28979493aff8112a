package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// CommandType names a client request
type CommandType string

const (
	CommandJoinMatchmaking  CommandType = "joinMatchmaking"
	CommandLeaveMatchmaking CommandType = "leaveMatchmaking"
	CommandStartRound       CommandType = "startRound"
	CommandSubmitGuess      CommandType = "submitGuess"
	CommandGetMatchStatus   CommandType = "getMatchStatus"
)

// ClientCommand is the envelope every client message arrives in
type ClientCommand struct {
	Type CommandType     `json:"type" validate:"required,oneof=joinMatchmaking leaveMatchmaking startRound submitGuess getMatchStatus"`
	Data json.RawMessage `json:"data"`
}

// MatchCommand is the payload of startRound and getMatchStatus
type MatchCommand struct {
	MatchID string `json:"match_id" validate:"required,uuid"`
}

// SubmitGuessCommand is the payload of submitGuess
type SubmitGuessCommand struct {
	MatchID    string            `json:"match_id" validate:"required,uuid"`
	Coordinate models.Coordinate `json:"coordinate"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeCommand parses and validates a raw client message.
func decodeCommand(raw []byte) (*ClientCommand, error) {
	var cmd ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("malformed command: %w", err)
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	return &cmd, nil
}

// decodePayload parses and validates the command data into v.
func decodePayload(cmd *ClientCommand, v interface{}) error {
	if len(cmd.Data) == 0 {
		return fmt.Errorf("%s requires data", cmd.Type)
	}
	if err := json.Unmarshal(cmd.Data, v); err != nil {
		return fmt.Errorf("malformed %s data: %w", cmd.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %s data: %w", cmd.Type, err)
	}
	return nil
}
