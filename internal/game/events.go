package game

import (
	"time"

	"github.com/verlyn13/dicee-server/internal/score"
)

// Server → client event types.
const (
	EventConnected          = "connected"
	EventPlayerJoined       = "player.joined"
	EventPlayerLeft         = "player.left"
	EventPlayerDisconnected = "player.disconnected"
	EventPlayerReconnected  = "player.reconnected"
	EventGameStarted        = "game.started"
	EventTurnStarted        = "turn.started"
	EventDiceRolled         = "dice.rolled"
	EventDiceKept           = "dice.kept"
	EventCategoryScored     = "category.scored"
	EventTurnEnded          = "turn.ended"
	EventTurnSkipped        = "turn.skipped"
	EventAFKWarning         = "player.afk_warning"
	EventGameCompleted      = "game.completed"
	EventRoomPaused         = "room.paused"
	EventRoomResumed        = "room.resumed"
	EventRoomAbandoned      = "room.abandoned"
	EventStateSync          = "state.sync"
	EventChatMessage        = "chat.message"
	EventReactionUpdate     = "chat.reaction_update"
	EventTypingUpdate       = "typing.update"
	EventError              = "game.error"
	EventPong               = "pong"
)

// Event is a server → client message. Only the payload fields belonging to
// Type are set; empty fields stay off the wire.
type Event struct {
	Type string `json:"type"`

	// Event delivery is at-least-once; the ID lets clients deduplicate.
	ID string `json:"id,omitempty"`

	UserID            string         `json:"userId,omitempty"`
	PlayerID          string         `json:"playerId,omitempty"`
	DisplayName       string         `json:"displayName,omitempty"`
	AvatarSeed        string         `json:"avatarSeed,omitempty"`
	IsHost            bool           `json:"isHost,omitempty"`
	ReconnectDeadline int64          `json:"reconnectDeadline,omitempty"`
	TurnNumber        int            `json:"turnNumber,omitempty"`
	RoundNumber       int            `json:"roundNumber,omitempty"`
	Dice              *[5]int        `json:"dice,omitempty"`
	Kept              *[5]bool       `json:"kept,omitempty"`
	RollsRemaining    *int           `json:"rollsRemaining,omitempty"`
	Category          score.Category `json:"category,omitempty"`
	Score             *int           `json:"score,omitempty"`
	TotalScore        *int           `json:"totalScore,omitempty"`
	IsDiceeBonus      bool           `json:"isDiceeBonus,omitempty"`
	Reason            string         `json:"reason,omitempty"`
	CategoryScored    score.Category `json:"categoryScored,omitempty"`
	SecondsRemaining  int            `json:"secondsRemaining,omitempty"`
	Rankings          []Ranking      `json:"rankings,omitempty"`
	DurationMS        int64          `json:"duration,omitempty"`
	PauseTimeoutAt    int64          `json:"pauseTimeoutAt,omitempty"`
	ResumedAt         int64          `json:"resumedAt,omitempty"`
	State             *Snapshot      `json:"state,omitempty"`
	Chat              *ChatMessage   `json:"chat,omitempty"`
	Reactions         map[string][]string `json:"reactions,omitempty"`
	MessageID         string         `json:"messageId,omitempty"`
	IsTyping          bool           `json:"isTyping,omitempty"`
	Code              ErrorCode      `json:"code,omitempty"`
	ErrMessage        string         `json:"message,omitempty"`
}

// NewEvent returns an event of the given type with a fresh delivery id
// assigned by the caller.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// ErrorEvent builds the game.error payload for a caller.
func ErrorEvent(e *Error) *Event {
	return &Event{Type: EventError, Code: e.Code, ErrMessage: e.Message}
}

// SeatView is a seat as rendered inside state.sync.
type SeatView struct {
	UserID            string   `json:"userId"`
	DisplayName       string   `json:"displayName"`
	AvatarSeed        string   `json:"avatarSeed"`
	IsHost            bool     `json:"isHost"`
	Presence          Presence `json:"presence"`
	ReconnectDeadline int64    `json:"reconnectDeadline,omitempty"`
}

// Snapshot is the full room view sent in state.sync on connect and resume.
type Snapshot struct {
	RoomCode       string                      `json:"roomCode"`
	Status         RoomStatus                  `json:"status"`
	Settings       Settings                    `json:"settings"`
	Identity       string                      `json:"identity"`
	HostUserID     string                      `json:"hostUserId"`
	Seats          []SeatView                  `json:"seats"`
	Phase          Phase                       `json:"phase"`
	PlayerOrder    []string                    `json:"playerOrder,omitempty"`
	CurrentPlayer  string                      `json:"currentPlayer,omitempty"`
	TurnNumber     int                         `json:"turnNumber,omitempty"`
	RoundNumber    int                         `json:"roundNumber,omitempty"`
	Players        map[string]*PlayerGameState `json:"players,omitempty"`
	Rankings       []Ranking                   `json:"rankings,omitempty"`
	ChatHistory    []ChatMessage               `json:"chatHistory,omitempty"`
	SpectatorCount int                         `json:"spectatorCount"`
	Predictions    map[string]int              `json:"predictions,omitempty"`
	ServerTime     int64                       `json:"serverTime"`
}

// BuildSnapshot assembles the state.sync view from persisted records.
func BuildSnapshot(room *RoomState, st *State, seats []*Seat, history []ChatMessage, spectators int, now time.Time) *Snapshot {
	views := make([]SeatView, 0, len(seats))
	for _, s := range seats {
		v := SeatView{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			AvatarSeed:  s.AvatarSeed,
			IsHost:      s.IsHost,
			Presence:    s.Presence(now),
		}
		if s.ReconnectDeadline != nil {
			v.ReconnectDeadline = s.ReconnectDeadline.UnixMilli()
		}
		views = append(views, v)
	}

	return &Snapshot{
		RoomCode:       room.RoomCode,
		Status:         room.Status,
		Settings:       room.Settings,
		Identity:       room.Identity,
		HostUserID:     room.HostUserID,
		Seats:          views,
		Phase:          st.Phase,
		PlayerOrder:    st.PlayerOrder,
		CurrentPlayer:  st.CurrentPlayer(),
		TurnNumber:     st.TurnNumber,
		RoundNumber:    st.RoundNumber,
		Players:        st.Players,
		Rankings:       st.Rankings,
		ChatHistory:    history,
		SpectatorCount: spectators,
		ServerTime:     now.UnixMilli(),
	}
}
