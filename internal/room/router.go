package room

import (
	"github.com/gorilla/websocket"

	"github.com/verlyn13/dicee-server/internal/game"
)

// gameCommands are the commands that mutate game state. They require a
// player seat and are refused while the room is paused.
var gameCommands = map[string]bool{
	game.CmdStartGame: true,
	game.CmdDiceRoll:  true,
	game.CmdDiceKeep:  true,
	game.CmdScore:     true,
	game.CmdRematch:   true,
}

// handleFrame is the command router: parse, validate, authorize, dispatch.
// Client input errors go back to the caller only; parse failures are
// transport errors and close the socket with 1003.
func (a *Actor) handleFrame(c *Conn, data []byte) {
	if _, known := a.conns[c]; !known {
		return
	}

	cmd, err := game.ParseCommand(data)
	if err != nil {
		c.closeWith(websocket.CloseUnsupportedData, "malformed frame")
		a.removeConn(c)
		return
	}

	// ping never touches storage.
	if cmd.Type == game.CmdPing {
		a.sendEvent(c, game.NewEvent(game.EventPong))
		return
	}

	if verr := cmd.Validate(); verr != nil {
		a.sendEvent(c, game.ErrorEvent(verr))
		return
	}

	if gerr := a.dispatch(c, cmd); gerr != nil {
		a.sendEvent(c, game.ErrorEvent(gerr))
	}
}

func (a *Actor) dispatch(c *Conn, cmd *game.Command) *game.Error {
	// Chat traffic never loads game state.
	switch cmd.Type {
	case game.CmdChat:
		return a.chat.handleText(c, cmd.Content)
	case game.CmdQuickChat:
		return a.chat.handleQuick(c, cmd.Key)
	case game.CmdReaction:
		return a.chat.handleReaction(c, cmd)
	case game.CmdTypingStart:
		return a.chat.handleTypingStart(c)
	case game.CmdTypingStop:
		return a.chat.handleTypingStop(c)
	}

	if c.attachment.Role == RoleSpectator && cmd.Type != game.CmdPredict {
		return game.NewError(game.CodeUnknownCommand, "spectators cannot issue game commands")
	}

	ctx, cancel := a.ctx()
	defer cancel()

	rc, err := a.loadCtx(ctx)
	if err != nil {
		return a.internal(err, "loading room failed")
	}
	if rc.room == nil {
		return game.NewError(game.CodeInternal, "room does not exist")
	}

	if cmd.Type == game.CmdPredict {
		return a.handlePredict(c, rc, cmd)
	}

	// While paused, nothing may mutate the game.
	if rc.room.Status == game.StatusPaused && gameCommands[cmd.Type] {
		return game.NewError(game.CodeInvalidPhase, "room is paused")
	}

	switch cmd.Type {
	case game.CmdStartGame:
		return a.handleStartGame(ctx, c, rc)
	case game.CmdDiceRoll:
		return a.handleRoll(ctx, c, rc, cmd.KeptMask())
	case game.CmdDiceKeep:
		return a.handleKeep(ctx, c, rc, cmd.Indices)
	case game.CmdScore:
		return a.handleScore(ctx, c, rc, cmd.Category)
	case game.CmdRematch:
		return a.handleRematch(ctx, c, rc)
	default:
		return game.NewError(game.CodeUnknownCommand, "unknown command type")
	}
}
