package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/game"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameCommands defines what the gateway needs from the game app
type GameCommands interface {
	JoinMatchmaking(ctx context.Context, playerID uuid.UUID) (*game.JoinResult, error)
	LeaveMatchmaking(ctx context.Context, playerID uuid.UUID) error
	StartRound(ctx context.Context, matchID uuid.UUID) (*game.RoundStartResult, error)
	SubmitGuess(ctx context.Context, matchID, playerID uuid.UUID, c models.Coordinate) (*game.GuessResult, error)
	GetMatchStatus(ctx context.Context, matchID uuid.UUID) (*game.MatchStatus, error)
	PlayerMatch(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error)
	ActiveMatches(ctx context.Context) (int, error)
}

// Dispatcher routes client commands to the game app and answers the caller. Broadcasts to
// both players come from the Notifier.
type Dispatcher struct {
	commands    GameCommands
	connections *ConnectionManager
}

func NewDispatcher(commands GameCommands, cm *ConnectionManager) *Dispatcher {
	return &Dispatcher{commands: commands, connections: cm}
}

// OnConnect puts a reconnecting player back into their match group.
func (d *Dispatcher) OnConnect(ctx context.Context, c *Connection) {
	matchID, ok, err := d.commands.PlayerMatch(ctx, c.PlayerID)
	if err != nil {
		log.Warn().Err(err).Str("player_id", c.PlayerID.String()).Msg("failed to look up match on connect")
		return
	}
	if !ok {
		return
	}
	d.connections.JoinMatchGroup(matchID, c.PlayerID)
	log.Info().
		Str("player_id", c.PlayerID.String()).
		Str("match_id", matchID.String()).
		Msg("player rejoined match group")
}

// OnDisconnect takes a player who has no connections left out of the queue.
func (d *Dispatcher) OnDisconnect(ctx context.Context, playerID uuid.UUID) {
	if err := d.commands.LeaveMatchmaking(ctx, playerID); err != nil {
		log.Warn().Err(err).Str("player_id", playerID.String()).Msg("failed to leave queue on disconnect")
	}
}

func (d *Dispatcher) HandleMessage(ctx context.Context, c *Connection, message []byte) {
	cmd, err := decodeCommand(message)
	if err != nil {
		d.sendError(c, uuid.Nil, "Command.Invalid", err.Error())
		return
	}

	switch cmd.Type {
	case CommandJoinMatchmaking:
		d.joinMatchmaking(ctx, c)
	case CommandLeaveMatchmaking:
		d.leaveMatchmaking(ctx, c)
	case CommandStartRound:
		d.startRound(ctx, c, cmd)
	case CommandSubmitGuess:
		d.submitGuess(ctx, c, cmd)
	case CommandGetMatchStatus:
		d.getMatchStatus(ctx, c, cmd)
	}
}

func (d *Dispatcher) joinMatchmaking(ctx context.Context, c *Connection) {
	res, err := d.commands.JoinMatchmaking(ctx, c.PlayerID)
	if err != nil {
		d.sendGameError(c, uuid.Nil, err)
		return
	}
	if res.Queued {
		d.reply(c, uuid.Nil, EventTypeQueued, QueuePayload{PlayerID: c.PlayerID.String()})
	}
}

func (d *Dispatcher) leaveMatchmaking(ctx context.Context, c *Connection) {
	if err := d.commands.LeaveMatchmaking(ctx, c.PlayerID); err != nil {
		d.sendGameError(c, uuid.Nil, err)
		return
	}
	d.reply(c, uuid.Nil, EventTypeLeftQueue, QueuePayload{PlayerID: c.PlayerID.String()})
}

func (d *Dispatcher) startRound(ctx context.Context, c *Connection, cmd *ClientCommand) {
	var payload MatchCommand
	if err := decodePayload(cmd, &payload); err != nil {
		d.sendError(c, uuid.Nil, "Command.Invalid", err.Error())
		return
	}
	matchID := uuid.MustParse(payload.MatchID)

	if _, err := d.commands.StartRound(ctx, matchID); err != nil {
		d.sendGameError(c, matchID, err)
	}
}

func (d *Dispatcher) submitGuess(ctx context.Context, c *Connection, cmd *ClientCommand) {
	var payload SubmitGuessCommand
	if err := decodePayload(cmd, &payload); err != nil {
		d.sendError(c, uuid.Nil, "Command.Invalid", err.Error())
		return
	}
	matchID := uuid.MustParse(payload.MatchID)

	res, err := d.commands.SubmitGuess(ctx, matchID, c.PlayerID, payload.Coordinate)
	if err != nil {
		d.sendGameError(c, matchID, err)
		return
	}
	d.reply(c, matchID, EventTypeGuessSubmitted, GuessPayload{
		MatchID:  res.MatchID.String(),
		RoundID:  res.RoundID.String(),
		PlayerID: res.PlayerID.String(),
	})
}

func (d *Dispatcher) getMatchStatus(ctx context.Context, c *Connection, cmd *ClientCommand) {
	var payload MatchCommand
	if err := decodePayload(cmd, &payload); err != nil {
		d.sendError(c, uuid.Nil, "Command.Invalid", err.Error())
		return
	}
	matchID := uuid.MustParse(payload.MatchID)

	status, err := d.commands.GetMatchStatus(ctx, matchID)
	if err != nil {
		d.sendGameError(c, matchID, err)
		return
	}

	out := MatchStatusPayload{Match: status.Match}
	if remaining, ok := status.TimeRemaining.Get(); ok {
		secs := int(remaining / time.Second)
		out.RemainingSeconds = &secs
	}
	d.reply(c, matchID, EventTypeMatchStatus, out)
}

// reply answers only the connection that sent the command.
func (d *Dispatcher) reply(c *Connection, matchID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := NewGameEvent(eventType, matchID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build reply")
		return
	}
	d.connections.SendToConnection(c, event)
}

func (d *Dispatcher) sendGameError(c *Connection, matchID uuid.UUID, err error) {
	gameErr, ok := game.AsError(err)
	if !ok {
		log.Error().Err(err).Str("player_id", c.PlayerID.String()).Msg("unexpected command error")
		d.sendError(c, matchID, "Internal.Error", "unexpected error")
		return
	}
	if gameErr.Kind == game.KindFailure {
		log.Error().Err(err).Str("player_id", c.PlayerID.String()).Str("code", gameErr.Code).Msg("command failed")
	}
	d.sendError(c, matchID, gameErr.Code, gameErr.Message)
}

func (d *Dispatcher) sendError(c *Connection, matchID uuid.UUID, code, message string) {
	d.reply(c, matchID, EventTypeError, ErrorPayload{Code: code, Message: message})
}
