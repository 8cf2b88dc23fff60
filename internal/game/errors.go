package game

import "errors"

// ErrorCode is the stable wire-level taxonomy carried in game.error events.
type ErrorCode string

const (
	CodeInvalidMessage        ErrorCode = "INVALID_MESSAGE"
	CodeUnknownCommand        ErrorCode = "UNKNOWN_COMMAND"
	CodeInvalidPhase          ErrorCode = "INVALID_PHASE"
	CodeNotYourTurn           ErrorCode = "NOT_YOUR_TURN"
	CodeNotHost               ErrorCode = "NOT_HOST"
	CodeNotEnoughPlayers      ErrorCode = "NOT_ENOUGH_PLAYERS"
	CodeGameInProgress        ErrorCode = "GAME_IN_PROGRESS"
	CodeNoRollsRemaining      ErrorCode = "NO_ROLLS_REMAINING"
	CodeCategoryAlreadyScored ErrorCode = "CATEGORY_ALREADY_SCORED"
	CodeRoomFull              ErrorCode = "ROOM_FULL"
	CodeRateLimited           ErrorCode = "RATE_LIMITED"
	CodeReactionFailed        ErrorCode = "REACTION_FAILED"
	CodeAuthFailed            ErrorCode = "AUTH_FAILED"
	CodeInternal              ErrorCode = "INTERNAL"
)

// Error is a command failure addressed to the offending caller only.
// It never mutates state.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError builds a caller-facing command failure.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError unwraps err into a *Error, mapping anything unexpected to INTERNAL.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Code: CodeInternal, Message: "internal error"}
}
