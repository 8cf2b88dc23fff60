package room

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/store"
)

// afkWarningLead is how long before the turn deadline the warning goes out.
const afkWarningLead = 15 * time.Second

// rearm programs the single alarm timer at the nearest pending deadline.
func (a *Actor) rearm(alarms *game.AlarmData) {
	a.stopTimer()
	next, ok := alarms.Next()
	if !ok {
		return
	}
	delay := next.Deadline.Sub(a.now())
	if delay < 0 {
		delay = 0
	}
	a.alarmTimer = time.AfterFunc(delay, a.Alarm)
}

// rearmFromStorage restores the timer after a cold start so deadlines
// scheduled before eviction still fire.
func (a *Actor) rearmFromStorage() {
	ctx, cancel := a.ctx()
	defer cancel()

	alarms := &game.AlarmData{}
	if _, err := a.store.Get(ctx, a.code, store.KeyAlarmData, alarms); err != nil {
		a.log.WithError(err).Warn("restoring alarms failed")
		return
	}
	a.rearm(alarms)
}

func (a *Actor) stopTimer() {
	if a.alarmTimer != nil {
		a.alarmTimer.Stop()
		a.alarmTimer = nil
	}
}

// armTurnAlarms schedules the AFK warning and turn timeout for the current
// turn. TurnKey ties both to the turn number so stale firings are no-ops.
func (a *Actor) armTurnAlarms(rc *roomCtx, now time.Time) {
	timeout := time.Duration(rc.room.Settings.TurnTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(game.AFKTimeoutSeconds) * time.Second
	}
	deadline := now.Add(timeout)

	rc.alarms.Set(game.Deadline{
		Kind:        game.AlarmTurnTimeout,
		ScheduledAt: now,
		Deadline:    deadline,
		TurnKey:     rc.st.TurnNumber,
	})
	if timeout > afkWarningLead {
		rc.alarms.Set(game.Deadline{
			Kind:        game.AlarmAFKWarning,
			ScheduledAt: now,
			Deadline:    deadline.Add(-afkWarningLead),
			TurnKey:     rc.st.TurnNumber,
		})
	}
}

// handleAlarm reloads everything, processes every due deadline oldest first,
// then reprograms the nearest remainder. Firing with nothing due is a no-op,
// which keeps the handler idempotent and re-entrant.
func (a *Actor) handleAlarm() {
	ctx, cancel := a.ctx()
	defer cancel()

	rc, err := a.loadCtx(ctx)
	if err != nil {
		a.log.WithError(err).Error("alarm: loading room failed")
		return
	}
	if rc.room == nil {
		return
	}

	now := a.now()
	due := rc.alarms.Due(now)
	for _, d := range due {
		switch d.Kind {
		case game.AlarmGameStart:
			a.fireGameStart(ctx, rc, now)
		case game.AlarmAFKWarning:
			a.fireAFKWarning(rc, d)
		case game.AlarmTurnTimeout:
			a.fireTurnTimeout(ctx, rc, d, now)
		case game.AlarmSeatExpiry:
			a.reclaimSeat(ctx, rc, d.UserID, now)
		case game.AlarmPauseTimeout:
			a.firePauseTimeout(ctx, rc, now)
		case game.AlarmRoomCleanup:
			if a.fireRoomCleanup(ctx, rc) {
				return
			}
		}
	}

	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		a.log.WithError(err).Error("alarm: saving alarms failed")
	}
	if len(due) > 0 {
		a.publishProjection(rc)
	}
}

// fireGameStart ends the countdown and opens the first turn.
func (a *Actor) fireGameStart(ctx context.Context, rc *roomCtx, now time.Time) {
	if rc.st.Phase != game.PhaseStarting {
		return
	}
	var m game.Manager
	if err := m.BeginFirstTurn(rc.room, rc.st, now); err != nil {
		a.log.WithError(err).Error("countdown: opening first turn failed")
		return
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("countdown: saving room failed")
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		a.log.WithError(err).Error("countdown: saving game failed")
	}
	a.armTurnAlarms(rc, now)
	a.broadcastTurnStarted(rc.st)

	// Everyone may have dropped during the countdown.
	if connectedSeatCount(rc.seats) == 0 {
		a.pauseRoom(ctx, rc, now)
	}
}

// fireAFKWarning nudges the current player if the same turn is still open.
func (a *Actor) fireAFKWarning(rc *roomCtx, d game.Deadline) {
	if !rc.st.Phase.InTurn() || rc.st.TurnNumber != d.TurnKey {
		return
	}
	if rc.room.Status != game.StatusPlaying {
		return
	}
	ev := game.NewEvent(game.EventAFKWarning)
	ev.PlayerID = rc.st.CurrentPlayer()
	ev.SecondsRemaining = int(afkWarningLead / time.Second)
	a.broadcast(ev)
}

// fireTurnTimeout auto-scores an inactive player's turn.
func (a *Actor) fireTurnTimeout(ctx context.Context, rc *roomCtx, d game.Deadline, now time.Time) {
	if rc.st.TurnNumber != d.TurnKey || !rc.st.Phase.InTurn() || rc.st.Phase == game.PhaseTurnScore {
		return
	}
	if rc.room.Status != game.StatusPlaying {
		return
	}

	var m game.Manager
	skip, err := m.AutoScore(rc.room, rc.st, now)
	if err != nil {
		a.log.WithError(err).Error("turn timeout: auto-score failed")
		return
	}
	if err := a.saveState(ctx, rc.st); err != nil {
		a.log.WithError(err).Error("turn timeout: saving game failed")
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("turn timeout: saving room failed")
	}

	points := skip.Score.Points
	ev := game.NewEvent(game.EventTurnSkipped)
	ev.PlayerID = skip.PlayerID
	ev.Reason = "timeout"
	ev.CategoryScored = skip.Score.Category
	ev.Score = &points
	a.broadcast(ev)

	a.finishTurn(rc, &skip.Score, now)
}

// firePauseTimeout abandons a room nobody came back to.
func (a *Actor) firePauseTimeout(ctx context.Context, rc *roomCtx, now time.Time) {
	if rc.room.Status != game.StatusPaused {
		return
	}
	a.abandonRoom(ctx, rc, "pause_timeout")
}

// scheduleCleanup arms the retention deadline for a finished room.
func (a *Actor) scheduleCleanup(alarms *game.AlarmData, now time.Time) {
	if a.opts.Retention <= 0 {
		return
	}
	alarms.Set(game.Deadline{
		Kind:        game.AlarmRoomCleanup,
		ScheduledAt: now,
		Deadline:    now.Add(a.opts.Retention),
	})
}

// fireRoomCleanup deletes a room whose retention lapsed. A room revived by a
// rematch is left alone. Reports whether the keyspace was removed.
func (a *Actor) fireRoomCleanup(ctx context.Context, rc *roomCtx) bool {
	if !rc.room.Closed() {
		return false
	}
	a.log.Info("retention lapsed, deleting room state")
	if err := a.store.DeleteRoom(ctx, a.code); err != nil {
		a.log.WithError(err).Error("cleanup: deleting room failed")
		return false
	}
	for c := range a.conns {
		c.closeWith(websocket.CloseNormalClosure, "room expired")
	}
	return true
}

// abandonRoom finalizes the room and closes every socket cleanly.
func (a *Actor) abandonRoom(ctx context.Context, rc *roomCtx, reason string) {
	a.log.WithField("reason", reason).Info("abandoning room")
	rc.room.Status = game.StatusAbandoned
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("abandon: saving room failed")
	}
	rc.alarms.Deadlines = nil
	a.scheduleCleanup(rc.alarms, a.now())

	ev := game.NewEvent(game.EventRoomAbandoned)
	ev.Reason = reason
	a.broadcast(ev)
	a.publishProjection(rc)

	for c := range a.conns {
		c.closeWith(websocket.CloseNormalClosure, "room abandoned")
	}
	a.conns = make(map[*Conn]struct{})
	a.byUser = make(map[string]*Conn)
	a.spectators = make(map[*Conn]struct{})
}
