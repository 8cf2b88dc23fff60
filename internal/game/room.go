package game

import (
	"crypto/rand"
	"time"
)

// RoomStatus is the room-level lifecycle, distinct from the turn phase.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusStarting  RoomStatus = "starting"
	StatusPlaying   RoomStatus = "playing"
	StatusPaused    RoomStatus = "paused"
	StatusCompleted RoomStatus = "completed"
	StatusAbandoned RoomStatus = "abandoned"
)

// Settings are the host-chosen room options, fixed at creation.
type Settings struct {
	MaxPlayers         int  `json:"maxPlayers"`
	TurnTimeoutSeconds int  `json:"turnTimeoutSeconds"`
	IsPublic           bool `json:"isPublic"`
	AllowSpectators    bool `json:"allowSpectators"`
}

// RoomState is the single persisted room record.
type RoomState struct {
	RoomCode   string     `json:"roomCode"`
	HostUserID string     `json:"hostUserId"`
	Status     RoomStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	PausedAt   *time.Time `json:"pausedAt,omitempty"`
	Settings   Settings   `json:"settings"`
	Identity   string     `json:"identity"`
	PlayerOrder []string  `json:"playerOrder,omitempty"`
}

// Closed reports whether the room no longer accepts connections.
func (r *RoomState) Closed() bool {
	return r.Status == StatusCompleted || r.Status == StatusAbandoned
}

// roomCodeAlphabet omits glyphs that read ambiguously (I, O, 0, 1).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCodeLength is the fixed length of a room code.
const RoomCodeLength = 6

// NewRoomCode generates a 6-character room code from the unambiguous alphabet.
func NewRoomCode() string {
	b := make([]byte, RoomCodeLength)
	rand.Read(b)
	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])%len(roomCodeAlphabet)]
	}
	return string(b)
}

// ValidRoomCode reports whether code is a well-formed room code.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		found := false
		for j := 0; j < len(roomCodeAlphabet); j++ {
			if code[i] == roomCodeAlphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
