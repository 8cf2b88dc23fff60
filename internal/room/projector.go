package room

import (
	"context"
	"time"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/lobby"
	"github.com/verlyn13/dicee-server/internal/score"
)

// publishProjection pushes the room's lobby view on every material change.
// The update is built from persisted seats and game state, never from the
// attached socket list, so a disconnected player with a live seat still
// appears (with a reconnect deadline) and the lobby can offer "Rejoin".
// Publish failures are logged and swallowed; the next change republishes.
func (a *Actor) publishProjection(rc *roomCtx) {
	if rc.room == nil {
		return
	}
	update := a.buildProjection(rc, a.now())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.lobby.UpdateRoomStatus(ctx, update); err != nil {
			a.log.WithError(err).Warn("lobby publish failed")
		}
	}()
}

func (a *Actor) buildProjection(rc *roomCtx, now time.Time) *lobby.RoomStatusUpdate {
	update := &lobby.RoomStatusUpdate{
		RoomCode:        rc.room.RoomCode,
		Status:          publicStatus(rc.room.Status),
		SpectatorCount:  len(a.spectators),
		MaxPlayers:      rc.room.Settings.MaxPlayers,
		RoundNumber:     rc.st.RoundNumber,
		TotalRounds:     len(score.Categories),
		IsPublic:        rc.room.Settings.IsPublic,
		AllowSpectators: rc.room.Settings.AllowSpectators,
		HostID:          rc.room.HostUserID,
		UpdatedAt:       now.UnixMilli(),
	}
	if rc.room.PausedAt != nil {
		update.PausedAt = rc.room.PausedAt.UnixMilli()
	}

	for _, seat := range rc.seats {
		presence := seat.Presence(now)
		player := lobby.PlayerStatus{
			UserID:        seat.UserID,
			DisplayName:   seat.DisplayName,
			AvatarSeed:    seat.AvatarSeed,
			IsHost:        seat.IsHost,
			PresenceState: string(presence),
		}
		if ps, ok := rc.st.Players[seat.UserID]; ok {
			player.Score = ps.TotalScore
		}
		if seat.ReconnectDeadline != nil {
			player.ReconnectDeadline = seat.ReconnectDeadline.UnixMilli()
		}
		switch {
		case seat.IsConnected:
			player.LastSeenAt = now.UnixMilli()
		case seat.DisconnectedAt != nil:
			player.LastSeenAt = seat.DisconnectedAt.UnixMilli()
		}
		if presence != game.PresenceAbandoned {
			update.PlayerCount++
		}
		if seat.IsHost {
			update.HostName = seat.DisplayName
		}
		update.Players = append(update.Players, player)
	}
	return update
}

// publicStatus collapses the room lifecycle to what the lobby renders.
func publicStatus(status game.RoomStatus) lobby.PublicStatus {
	switch status {
	case game.StatusWaiting, game.StatusStarting:
		return lobby.StatusWaiting
	case game.StatusPlaying:
		return lobby.StatusPlaying
	case game.StatusPaused:
		return lobby.StatusPaused
	default:
		return lobby.StatusFinished
	}
}
