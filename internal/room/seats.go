package room

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/store"
)

// loadSeats reads every seat, ordered by join time for determinism.
func (a *Actor) loadSeats(ctx context.Context) ([]*game.Seat, error) {
	raw, err := a.store.List(ctx, a.code, store.SeatKeyPrefix)
	if err != nil {
		return nil, err
	}
	seats := make([]*game.Seat, 0, len(raw))
	for key, val := range raw {
		seat := &game.Seat{}
		if err := json.Unmarshal(val, seat); err != nil {
			a.log.WithError(err).WithField("key", key).Error("corrupt seat record")
			continue
		}
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].JoinedAt.Equal(seats[j].JoinedAt) {
			return seats[i].UserID < seats[j].UserID
		}
		return seats[i].JoinedAt.Before(seats[j].JoinedAt)
	})
	return seats, nil
}

func (a *Actor) saveSeat(ctx context.Context, seat *game.Seat) error {
	return a.store.Put(ctx, a.code, store.SeatKey(seat.UserID), seat)
}

func (a *Actor) deleteSeat(ctx context.Context, userID string) error {
	return a.store.Delete(ctx, a.code, store.SeatKey(userID))
}

// handleAdmit pre-checks a connection attempt so the gateway can refuse
// before the upgrade.
func (a *Actor) handleAdmit(userID string, role Role) *game.Error {
	ctx, cancel := a.ctx()
	defer cancel()

	rc, err := a.loadCtx(ctx)
	if err != nil {
		return game.NewError(game.CodeInternal, "storage unavailable")
	}
	if rc.room == nil {
		// First accepted upgrade creates the room; only a player can do that.
		if role == RoleSpectator {
			return game.NewError(game.CodeInvalidMessage, "room does not exist")
		}
		return nil
	}
	if rc.room.Closed() {
		return game.NewError(game.CodeGameInProgress, "room is closed")
	}
	if role == RoleSpectator {
		if !rc.room.Settings.AllowSpectators {
			return game.NewError(game.CodeInvalidMessage, "spectators are not allowed")
		}
		return nil
	}

	now := a.now()
	if seatReconnectable(findSeat(rc.seats, userID), rc.room, now) {
		return nil // reconnection
	}
	if rc.room.Status != game.StatusWaiting {
		return game.NewError(game.CodeGameInProgress, "game is in progress")
	}
	if activeSeatCount(rc.seats, now) >= rc.room.Settings.MaxPlayers {
		return game.NewError(game.CodeRoomFull, "room is full")
	}
	return nil
}

// handleConnect is the authoritative attach. It creates the room on first
// accepted upgrade, reconciles the seat ledger, and delivers the initial
// state.sync.
func (a *Actor) handleConnect(c *Conn) {
	ctx, cancel := a.ctx()
	defer cancel()

	rc, err := a.loadCtx(ctx)
	if err != nil {
		a.log.WithError(err).Error("connect: loading room failed")
		c.closeWith(websocket.CloseInternalServerErr, "storage unavailable")
		return
	}
	now := a.now()
	att := c.attachment

	if rc.room == nil {
		if att.Role == RoleSpectator {
			c.closeWith(websocket.ClosePolicyViolation, "room does not exist")
			return
		}
		rc.room = a.createRoom(att, now)
		if err := a.saveRoom(ctx, rc.room); err != nil {
			a.log.WithError(err).Error("connect: creating room failed")
			c.closeWith(websocket.CloseInternalServerErr, "storage unavailable")
			return
		}
	}
	if rc.room.Closed() {
		c.closeWith(websocket.CloseNormalClosure, "room is closed")
		return
	}

	if att.Role == RoleSpectator {
		a.attachSpectator(c, rc, now)
		return
	}
	a.attachPlayer(ctx, c, rc, now)
}

func (a *Actor) createRoom(att Attachment, now time.Time) *game.RoomState {
	a.log.WithField("host", att.UserID).Info("creating room")
	return &game.RoomState{
		RoomCode:   a.code,
		HostUserID: att.UserID,
		Status:     game.StatusWaiting,
		CreatedAt:  now,
		Settings: game.Settings{
			MaxPlayers:         a.opts.MaxPlayers,
			TurnTimeoutSeconds: int(a.opts.TurnTimeout / time.Second),
			IsPublic:           a.opts.IsPublic,
			AllowSpectators:    a.opts.AllowSpectators,
		},
		Identity: newRoomIdentity(a.code),
	}
}

// attachPlayer runs the SeatLedger attach transitions.
func (a *Actor) attachPlayer(ctx context.Context, c *Conn, rc *roomCtx, now time.Time) {
	att := c.attachment
	seat := findSeat(rc.seats, att.UserID)

	switch {
	case seatReconnectable(seat, rc.room, now):
		// Reconnection path. A second socket for the same user replaces the
		// first.
		if old, ok := a.byUser[att.UserID]; ok && old != c {
			old.closeWith(websocket.ClosePolicyViolation, "session superseded")
			a.removeConn(old)
		}
		wasDisconnected := !seat.IsConnected
		seat.MarkConnected()
		if err := a.saveSeat(ctx, seat); err != nil {
			a.log.WithError(err).Error("connect: saving seat failed")
			c.closeWith(websocket.CloseInternalServerErr, "storage unavailable")
			return
		}
		rc.alarms.Clear(game.AlarmSeatExpiry, att.UserID)
		if err := a.saveAlarms(ctx, rc.alarms); err != nil {
			a.log.WithError(err).Error("connect: saving alarms failed")
		}
		a.register(c, seat)
		if wasDisconnected {
			ev := game.NewEvent(game.EventPlayerReconnected)
			ev.UserID = att.UserID
			a.broadcast(ev)
			a.chat.appendSystem(att.DisplayName+" reconnected")
		}
		if rc.room.Status == game.StatusPaused {
			a.resumeRoom(ctx, rc, now)
		}

	case seat != nil && seat.Reclaimable(now) && rc.room.Status == game.StatusWaiting:
		// The grace period lapsed while waiting; treat as a fresh join.
		if err := a.deleteSeat(ctx, att.UserID); err != nil {
			a.log.WithError(err).Error("connect: dropping stale seat failed")
		}
		rc.seats = removeSeat(rc.seats, att.UserID)
		fallthrough

	case seat == nil:
		if rc.room.Status != game.StatusWaiting {
			c.closeWith(websocket.ClosePolicyViolation, "game is in progress")
			return
		}
		if activeSeatCount(rc.seats, now) >= rc.room.Settings.MaxPlayers {
			c.closeWith(websocket.ClosePolicyViolation, "room is full")
			return
		}
		newSeat := &game.Seat{
			UserID:      att.UserID,
			DisplayName: att.DisplayName,
			AvatarSeed:  att.AvatarSeed,
			IsHost:      att.UserID == rc.room.HostUserID,
			IsConnected: true,
			JoinedAt:    now,
		}
		if err := a.saveSeat(ctx, newSeat); err != nil {
			a.log.WithError(err).Error("connect: saving seat failed")
			c.closeWith(websocket.CloseInternalServerErr, "storage unavailable")
			return
		}
		rc.seats = append(rc.seats, newSeat)
		a.register(c, newSeat)

		ev := game.NewEvent(game.EventPlayerJoined)
		ev.UserID = newSeat.UserID
		ev.DisplayName = newSeat.DisplayName
		ev.AvatarSeed = newSeat.AvatarSeed
		ev.IsHost = newSeat.IsHost
		a.broadcast(ev)
		a.chat.appendSystem(newSeat.DisplayName+" joined the room")

	default:
		// Lapsed seat outside waiting/playing/paused (e.g. during the start
		// countdown): no new seat can be taken.
		c.closeWith(websocket.ClosePolicyViolation, "seat reservation expired")
		return
	}

	a.syncTo(ctx, c, rc)
	a.publishProjection(rc)
}

func (a *Actor) attachSpectator(c *Conn, rc *roomCtx, now time.Time) {
	if !rc.room.Settings.AllowSpectators {
		c.closeWith(websocket.ClosePolicyViolation, "spectators are not allowed")
		return
	}
	a.conns[c] = struct{}{}
	a.spectators[c] = struct{}{}

	ctx, cancel := a.ctx()
	defer cancel()
	a.syncTo(ctx, c, rc)
	a.publishProjection(rc)
}

// register adds a player socket and refreshes its host flag from the seat.
func (a *Actor) register(c *Conn, seat *game.Seat) {
	c.attachment.IsHost = seat.IsHost
	a.conns[c] = struct{}{}
	a.byUser[seat.UserID] = c
}

// syncTo sends connected + state.sync to one socket.
func (a *Actor) syncTo(ctx context.Context, c *Conn, rc *roomCtx) {
	a.sendEvent(c, game.NewEvent(game.EventConnected))

	history := a.chat.history(ctx)
	snap := game.BuildSnapshot(rc.room, rc.st, rc.seats, history, len(a.spectators), a.now())
	if c.attachment.Role == RoleSpectator {
		snap.Predictions = a.predictions.correctCounts()
	}
	ev := game.NewEvent(game.EventStateSync)
	ev.State = snap
	a.sendEvent(c, ev)
}

// handleDisconnect is the SeatLedger detach: grace period, expiry alarm,
// and the all-disconnected pause check.
func (a *Actor) handleDisconnect(c *Conn) {
	if _, known := a.conns[c]; !known {
		return
	}
	att := c.attachment

	if att.Role == RoleSpectator {
		a.removeConn(c)
		a.predictions.drop(att.UserID)
		ctx, cancel := a.ctx()
		defer cancel()
		if rc, err := a.loadCtx(ctx); err == nil && rc.room != nil {
			a.publishProjection(rc)
		}
		return
	}

	// A superseded socket must not detach the seat its replacement holds.
	if cur, ok := a.byUser[att.UserID]; ok && cur != c {
		delete(a.conns, c)
		return
	}
	a.removeConn(c)

	ctx, cancel := a.ctx()
	defer cancel()
	rc, err := a.loadCtx(ctx)
	if err != nil || rc.room == nil {
		return
	}
	seat := findSeat(rc.seats, att.UserID)
	if seat == nil || !seat.IsConnected {
		return
	}

	now := a.now()
	seat.MarkDisconnected(now)
	if err := a.saveSeat(ctx, seat); err != nil {
		a.log.WithError(err).Error("disconnect: saving seat failed")
	}

	rc.alarms.Set(game.Deadline{
		Kind:        game.AlarmSeatExpiry,
		ScheduledAt: now,
		Deadline:    *seat.ReconnectDeadline,
		UserID:      seat.UserID,
	})

	ev := game.NewEvent(game.EventPlayerDisconnected)
	ev.UserID = seat.UserID
	ev.ReconnectDeadline = seat.ReconnectDeadline.UnixMilli()
	a.broadcast(ev)
	a.chat.appendSystem(seat.DisplayName+" disconnected")

	if rc.room.Status == game.StatusPlaying && connectedSeatCount(rc.seats) == 0 {
		a.pauseRoom(ctx, rc, now)
	}

	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		a.log.WithError(err).Error("disconnect: saving alarms failed")
	}
	a.publishProjection(rc)
}

// pauseRoom stops the turn clock once every seat is dark.
func (a *Actor) pauseRoom(ctx context.Context, rc *roomCtx, now time.Time) {
	a.log.Info("all players disconnected, pausing")
	rc.room.Status = game.StatusPaused
	rc.room.PausedAt = &now
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("pause: saving room failed")
	}

	rc.alarms.ClearKind(game.AlarmTurnTimeout)
	rc.alarms.ClearKind(game.AlarmAFKWarning)
	deadline := now.Add(game.PauseTimeout)
	rc.alarms.Set(game.Deadline{
		Kind:        game.AlarmPauseTimeout,
		ScheduledAt: now,
		Deadline:    deadline,
	})

	ev := game.NewEvent(game.EventRoomPaused)
	ev.Reason = "all_disconnected"
	ev.PauseTimeoutAt = deadline.UnixMilli()
	a.broadcastSpectators(ev)
}

// resumeRoom restarts the turn clock after a reconnect while paused. The
// interrupted turn keeps its remaining rolls.
func (a *Actor) resumeRoom(ctx context.Context, rc *roomCtx, now time.Time) {
	a.log.Info("player returned, resuming")
	rc.room.Status = game.StatusPlaying
	rc.room.PausedAt = nil
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("resume: saving room failed")
	}

	rc.alarms.Clear(game.AlarmPauseTimeout, "")
	if rc.st.Phase.InTurn() {
		start := now
		rc.st.TurnStartedAt = &start
		if err := a.saveState(ctx, rc.st); err != nil {
			a.log.WithError(err).Error("resume: saving game failed")
		}
		a.armTurnAlarms(rc, now)
	}
	if err := a.saveAlarms(ctx, rc.alarms); err != nil {
		a.log.WithError(err).Error("resume: saving alarms failed")
	}

	ev := game.NewEvent(game.EventRoomResumed)
	ev.ResumedAt = now.UnixMilli()
	a.broadcast(ev)
}

// reclaimSeat is the seat-expiry alarm path. During a game the seat stays
// visible as abandoned so the player order is stable; otherwise it is
// removed and, if it was the host's, the host role moves on.
func (a *Actor) reclaimSeat(ctx context.Context, rc *roomCtx, userID string, now time.Time) {
	seat := findSeat(rc.seats, userID)
	if seat == nil || !seat.Reclaimable(now) {
		return
	}
	if rc.room.Status == game.StatusPlaying || rc.room.Status == game.StatusPaused {
		return
	}

	if err := a.deleteSeat(ctx, userID); err != nil {
		a.log.WithError(err).Error("reclaim: dropping seat failed")
		return
	}
	rc.seats = removeSeat(rc.seats, userID)
	a.log.WithField("user", userID).Info("seat expired")

	if seat.IsHost {
		a.transferHost(ctx, rc)
	}

	ev := game.NewEvent(game.EventPlayerLeft)
	ev.UserID = userID
	a.broadcast(ev)
	a.chat.appendSystem(seat.DisplayName+" left the room")
}

// transferHost hands the host role to the earliest-joined remaining seat,
// preferring connected ones.
func (a *Actor) transferHost(ctx context.Context, rc *roomCtx) {
	var next *game.Seat
	for _, s := range rc.seats {
		if s.IsConnected {
			next = s
			break
		}
	}
	if next == nil && len(rc.seats) > 0 {
		next = rc.seats[0]
	}
	if next == nil {
		return
	}
	next.IsHost = true
	rc.room.HostUserID = next.UserID
	if err := a.saveSeat(ctx, next); err != nil {
		a.log.WithError(err).Error("host transfer: saving seat failed")
	}
	if err := a.saveRoom(ctx, rc.room); err != nil {
		a.log.WithError(err).Error("host transfer: saving room failed")
	}
	if c, ok := a.byUser[next.UserID]; ok {
		c.attachment.IsHost = true
	}
	a.log.WithField("host", next.UserID).Info("host transferred")
}

// seatReconnectable reports whether an existing seat may take a new socket.
// Within grace a seat is always reconnectable. Once the game has started the
// seat is reserved for its whole length — it is shown abandoned after grace
// but a lapsed deadline never locks its player out of a playing or paused
// room; pauses in particular can outlive the grace window by half an hour.
func seatReconnectable(seat *game.Seat, room *game.RoomState, now time.Time) bool {
	if seat == nil {
		return false
	}
	if !seat.Reclaimable(now) {
		return true
	}
	return room.Status == game.StatusPlaying || room.Status == game.StatusPaused
}

func findSeat(seats []*game.Seat, userID string) *game.Seat {
	for _, s := range seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

func removeSeat(seats []*game.Seat, userID string) []*game.Seat {
	out := seats[:0]
	for _, s := range seats {
		if s.UserID != userID {
			out = append(out, s)
		}
	}
	return out
}

// activeSeatCount counts seats still holding a reservation (connected or
// within grace).
func activeSeatCount(seats []*game.Seat, now time.Time) int {
	n := 0
	for _, s := range seats {
		if s.Presence(now) != game.PresenceAbandoned {
			n++
		}
	}
	return n
}

// newRoomIdentity derives the room's opaque visual tag from its code.
func newRoomIdentity(code string) string {
	return "dicee-" + strings.ToLower(code)
}
