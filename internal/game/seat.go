package game

import "time"

// Reconnect grace and AFK windows.
const (
	ReconnectGrace    = 60 * time.Second
	AFKWarningSeconds = 45
	AFKTimeoutSeconds = 60
	PauseTimeout      = 30 * time.Minute
)

// Presence is the lobby-facing view of a seat.
type Presence string

const (
	PresenceConnected    Presence = "connected"
	PresenceDisconnected Presence = "disconnected"
	PresenceAbandoned    Presence = "abandoned"
)

// Seat is a player's reservation in the room. The seat outlives the socket:
// a disconnected player keeps their seat until the reconnect deadline passes.
type Seat struct {
	UserID            string     `json:"userId"`
	DisplayName       string     `json:"displayName"`
	AvatarSeed        string     `json:"avatarSeed"`
	IsHost            bool       `json:"isHost"`
	IsConnected       bool       `json:"isConnected"`
	JoinedAt          time.Time  `json:"joinedAt"`
	DisconnectedAt    *time.Time `json:"disconnectedAt,omitempty"`
	ReconnectDeadline *time.Time `json:"reconnectDeadline,omitempty"`
}

// Presence derives the seat's presence at the given instant.
func (s *Seat) Presence(now time.Time) Presence {
	switch {
	case s.IsConnected:
		return PresenceConnected
	case s.ReconnectDeadline != nil && s.ReconnectDeadline.After(now):
		return PresenceDisconnected
	default:
		return PresenceAbandoned
	}
}

// Reclaimable reports whether the seat's grace period has lapsed.
func (s *Seat) Reclaimable(now time.Time) bool {
	return !s.IsConnected && s.ReconnectDeadline != nil && s.ReconnectDeadline.Before(now)
}

// MarkDisconnected stamps the seat with the disconnect time and grace deadline.
func (s *Seat) MarkDisconnected(now time.Time) {
	deadline := now.Add(ReconnectGrace)
	s.IsConnected = false
	s.DisconnectedAt = &now
	s.ReconnectDeadline = &deadline
}

// MarkConnected clears any disconnect bookkeeping.
func (s *Seat) MarkConnected() {
	s.IsConnected = true
	s.DisconnectedAt = nil
	s.ReconnectDeadline = nil
}
