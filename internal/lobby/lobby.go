package lobby

import "context"

// PublicStatus is the room status as the lobby directory renders it.
type PublicStatus string

const (
	StatusWaiting  PublicStatus = "waiting"
	StatusPlaying  PublicStatus = "playing"
	StatusPaused   PublicStatus = "paused"
	StatusFinished PublicStatus = "finished"
)

// PlayerStatus is one seat in the projection. A disconnected player with a
// live seat appears here with presenceState "disconnected" and a reconnect
// deadline so the lobby renders "Rejoin" rather than "Join".
type PlayerStatus struct {
	UserID            string `json:"userId"`
	DisplayName       string `json:"displayName"`
	AvatarSeed        string `json:"avatarSeed"`
	Score             int    `json:"score"`
	IsHost            bool   `json:"isHost"`
	PresenceState     string `json:"presenceState"`
	ReconnectDeadline int64  `json:"reconnectDeadline,omitempty"`
	LastSeenAt        int64  `json:"lastSeenAt,omitempty"`
}

// RoomStatusUpdate is the room's broadcast-ready view of itself. Consumers
// treat it as last-writer-wins keyed by (roomCode, updatedAt).
type RoomStatusUpdate struct {
	RoomCode        string         `json:"roomCode"`
	Status          PublicStatus   `json:"status"`
	PlayerCount     int            `json:"playerCount"`
	SpectatorCount  int            `json:"spectatorCount"`
	MaxPlayers      int            `json:"maxPlayers"`
	RoundNumber     int            `json:"roundNumber"`
	TotalRounds     int            `json:"totalRounds"`
	IsPublic        bool           `json:"isPublic"`
	AllowSpectators bool           `json:"allowSpectators"`
	Players         []PlayerStatus `json:"players"`
	HostID          string         `json:"hostId"`
	HostName        string         `json:"hostName"`
	PausedAt        int64          `json:"pausedAt,omitempty"`
	UpdatedAt       int64          `json:"updatedAt"`
}

// Directory receives room projections. Implementations must be safe for
// concurrent use; callers fire-and-forget and swallow failures.
type Directory interface {
	UpdateRoomStatus(ctx context.Context, update *RoomStatusUpdate) error
}

// Noop discards every update. Used when no directory is configured.
type Noop struct{}

// UpdateRoomStatus does nothing.
func (Noop) UpdateRoomStatus(context.Context, *RoomStatusUpdate) error { return nil }
