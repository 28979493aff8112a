package game

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind groups errors by how a client should react to them.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindFailure    Kind = "failure"
)

// Error codes sent to clients.
const (
	CodeMatchNotFound        = "Match.NotFound"
	CodeAnswerNotFound       = "Round.AnswerNotFound"
	CodeRoundNotActive       = "Round.NotActive"
	CodeRoundCannotStart     = "Round.CannotStart"
	CodeGuessInvalidPlayer   = "Guess.InvalidPlayer"
	CodeGuessAlreadySent     = "Guess.AlreadySubmitted"
	CodeAlreadyQueued        = "Matchmaking.AlreadyQueued"
	CodeAlreadyInMatch       = "Matchmaking.AlreadyInMatch"
	CodeEndRoundFailed       = "EndRound.Failed"
	CodeSubmitGuessFailed    = "SubmitGuess.Failed"
	CodeMatchmakingFailed    = "Matchmaking.Failed"
	CodeStartRoundFailed     = "StartRound.Failed"
	CodeMatchStatusFailed    = "MatchStatus.Failed"
	CodeLeaveMatchmakingFail = "Matchmaking.LeaveFailed"
)

// Error is returned by every App command. Message is safe to show to players; the wrapped
// cause is for logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func failure(code, message string, cause error) *Error {
	return &Error{Kind: KindFailure, Code: code, Message: message, cause: errors.WithStack(cause)}
}

func notFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

func conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

// AsError extracts the typed error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	gameErr, ok := AsError(err)
	return ok && gameErr.Kind == kind
}
