package room

import (
	"context"
	"time"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/score"
)

// handleStartGame validates and runs the host's start command, then opens
// the countdown.
func (a *Actor) handleStartGame(ctx context.Context, c *Conn, rc *roomCtx) *game.Error {
	now := a.now()
	var m game.Manager
	rng, err := m.StartGame(rc.room, rc.st, rc.seats, c.attachment.UserID, now)
	if err != nil {
		return game.AsError(err)
	}

	if err := a.saveRNG(ctx, rng); err != nil {
		return a.internal(err, "saving rng failed")
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		return a.internal(err, "saving game failed")
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		return a.internal(err, "saving room failed")
	}

	rc.alarms.Set(game.Deadline{
		Kind:        game.AlarmGameStart,
		ScheduledAt: now,
		Deadline:    now.Add(game.CountdownSeconds * time.Second),
	})
	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		return a.internal(err, "saving alarms failed")
	}

	ev := game.NewEvent(game.EventGameStarted)
	a.broadcast(ev)
	a.chat.appendSystem("The game is starting")
	a.publishProjection(rc)
	return nil
}

// handleRoll resamples the dice the player did not keep.
func (a *Actor) handleRoll(ctx context.Context, c *Conn, rc *roomCtx, kept [5]bool) *game.Error {
	rng, err := a.loadRNG(ctx)
	if err != nil {
		return a.internal(err, "loading rng failed")
	}

	var m game.Manager
	res, err := m.Roll(rc.st, c.attachment.UserID, kept, rng)
	if err != nil {
		return game.AsError(err)
	}

	if err := a.saveRNG(ctx, rng); err != nil {
		return a.internal(err, "saving rng failed")
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		return a.internal(err, "saving game failed")
	}

	rolls := res.RollsRemaining
	dice := res.Dice
	ev := game.NewEvent(game.EventDiceRolled)
	ev.PlayerID = res.PlayerID
	ev.Dice = &dice
	ev.RollsRemaining = &rolls
	a.broadcast(ev)
	return nil
}

// handleKeep records the hold pattern; a pure UI hint for the other seats.
func (a *Actor) handleKeep(ctx context.Context, c *Conn, rc *roomCtx, indices []int) *game.Error {
	var m game.Manager
	kept, err := m.Keep(rc.st, c.attachment.UserID, indices)
	if err != nil {
		return game.AsError(err)
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		return a.internal(err, "saving game failed")
	}

	ev := game.NewEvent(game.EventDiceKept)
	ev.PlayerID = c.attachment.UserID
	ev.Kept = kept
	a.broadcast(ev)
	return nil
}

// handleScore writes a category and advances the game.
func (a *Actor) handleScore(ctx context.Context, c *Conn, rc *roomCtx, category score.Category) *game.Error {
	now := a.now()
	var m game.Manager
	res, err := m.ScoreCategory(rc.room, rc.st, c.attachment.UserID, category, now)
	if err != nil {
		return game.AsError(err)
	}

	if err := a.saveState(ctx, rc.st); err != nil {
		return a.internal(err, "saving game failed")
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		return a.internal(err, "saving room failed")
	}

	a.predictions.settle(res.PlayerID, res.Category)

	points := res.Points
	total := res.TotalScore
	ev := game.NewEvent(game.EventCategoryScored)
	ev.PlayerID = res.PlayerID
	ev.Category = res.Category
	ev.Score = &points
	ev.TotalScore = &total
	ev.IsDiceeBonus = res.IsDiceeBonus
	a.broadcast(ev)

	a.finishTurn(rc, res, now)
	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		return a.internal(err, "saving alarms failed")
	}
	a.publishProjection(rc)
	return nil
}

// handleRematch resets the game and returns everyone to the waiting room.
func (a *Actor) handleRematch(ctx context.Context, c *Conn, rc *roomCtx) *game.Error {
	var m game.Manager
	if err := m.Rematch(rc.room, rc.st, rc.seats, c.attachment.UserID); err != nil {
		return game.AsError(err)
	}
	rc.alarms.Clear(game.AlarmRoomCleanup, "")
	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		return a.internal(err, "saving alarms failed")
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		return a.internal(err, "saving game failed")
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		return a.internal(err, "saving room failed")
	}
	a.chat.appendSystem("Rematch! Back to the lobby")

	// Everyone re-syncs against the reset board.
	for conn := range a.conns {
		a.syncTo(ctx, conn, rc)
	}
	a.publishProjection(rc)
	return nil
}

// finishTurn emits the turn-boundary events after a score or skip and arms
// the next turn's alarms. rc.alarms is saved by the caller's path.
func (a *Actor) finishTurn(rc *roomCtx, res *game.ScoreResult, now time.Time) {
	ended := game.NewEvent(game.EventTurnEnded)
	ended.PlayerID = res.PlayerID
	a.broadcast(ended)

	rc.alarms.ClearKind(game.AlarmTurnTimeout)
	rc.alarms.ClearKind(game.AlarmAFKWarning)
	a.predictions.clearTurn()

	if res.GameOver {
		done := game.NewEvent(game.EventGameCompleted)
		done.Rankings = res.Rankings
		done.DurationMS = res.Duration.Milliseconds()
		a.broadcast(done)
		a.scheduleCleanup(rc.alarms, now)
		return
	}

	a.armTurnAlarms(rc, now)
	a.broadcastTurnStarted(rc.st)
}

// broadcastTurnStarted announces the current turn.
func (a *Actor) broadcastTurnStarted(st *game.State) {
	ev := game.NewEvent(game.EventTurnStarted)
	ev.PlayerID = st.CurrentPlayer()
	ev.TurnNumber = st.TurnNumber
	ev.RoundNumber = st.RoundNumber
	a.broadcast(ev)
}

// internal logs the cause and returns the opaque INTERNAL error.
func (a *Actor) internal(err error, msg string) *game.Error {
	a.log.WithError(err).Error(msg)
	return game.NewError(game.CodeInternal, "internal error")
}
