package game

import (
	"encoding/json"

	"github.com/verlyn13/dicee-server/internal/score"
)

// Client → server command types.
const (
	CmdStartGame   = "start_game"
	CmdDiceRoll    = "dice.roll"
	CmdDiceKeep    = "dice.keep"
	CmdScore       = "category.score"
	CmdRematch     = "rematch"
	CmdChat        = "chat"
	CmdQuickChat   = "quick_chat"
	CmdReaction    = "reaction"
	CmdTypingStart = "typing.start"
	CmdTypingStop  = "typing.stop"
	CmdPredict     = "predict"
	CmdPing        = "ping"
)

// Command is the client → server message, discriminated by Type. Fields not
// belonging to the type are ignored; Validate rejects malformed payloads.
type Command struct {
	Type string `json:"type"`

	Kept     []bool         `json:"kept,omitempty"`
	Indices  []int          `json:"indices,omitempty"`
	Category score.Category `json:"category,omitempty"`

	Content string `json:"content,omitempty"`
	Key     string `json:"key,omitempty"`

	MessageID string `json:"messageId,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Action    string `json:"action,omitempty"`

	TargetUserID string `json:"targetUserId,omitempty"`
}

// ParseCommand decodes a client frame. A parse failure is a transport error
// (close 1003), not a game.error.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Validate checks the payload against the command's schema.
func (c *Command) Validate() *Error {
	switch c.Type {
	case CmdStartGame, CmdRematch, CmdTypingStart, CmdTypingStop, CmdPing:
		return nil
	case CmdDiceRoll:
		if len(c.Kept) != 0 && len(c.Kept) != 5 {
			return NewError(CodeInvalidMessage, "kept must have five entries")
		}
		return nil
	case CmdDiceKeep:
		for _, idx := range c.Indices {
			if idx < 0 || idx > 4 {
				return NewError(CodeInvalidMessage, "kept index out of range")
			}
		}
		return nil
	case CmdScore:
		if !score.Valid(c.Category) {
			return NewError(CodeInvalidMessage, "unknown category")
		}
		return nil
	case CmdChat:
		if c.Content == "" || len(c.Content) > MaxChatLength {
			return NewError(CodeInvalidMessage, "chat content must be 1-500 characters")
		}
		return nil
	case CmdQuickChat:
		if _, ok := QuickChatKeys[c.Key]; !ok {
			return NewError(CodeInvalidMessage, "unknown quick chat key")
		}
		return nil
	case CmdReaction:
		if c.MessageID == "" || c.Emoji == "" {
			return NewError(CodeInvalidMessage, "reaction needs a message id and emoji")
		}
		if c.Action != "add" && c.Action != "remove" {
			return NewError(CodeInvalidMessage, "reaction action must be add or remove")
		}
		return nil
	case CmdPredict:
		if c.TargetUserID == "" || !score.Valid(c.Category) {
			return NewError(CodeInvalidMessage, "prediction needs a target player and category")
		}
		return nil
	default:
		return NewError(CodeUnknownCommand, "unknown command type")
	}
}

// KeptMask normalizes the dice.roll kept flags to a fixed array.
func (c *Command) KeptMask() [5]bool {
	var mask [5]bool
	for i := 0; i < len(c.Kept) && i < 5; i++ {
		mask[i] = c.Kept[i]
	}
	return mask
}
