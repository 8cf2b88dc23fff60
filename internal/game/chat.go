package game

import "time"

// ChatHistoryLimit is how many messages survive in storage. Anything older
// only ever existed in connected clients.
const ChatHistoryLimit = 20

// MaxChatLength bounds the content of a text chat message.
const MaxChatLength = 500

// ChatType distinguishes chat message origins.
type ChatType string

const (
	ChatText   ChatType = "text"
	ChatQuick  ChatType = "quick"
	ChatSystem ChatType = "system"
)

// QuickChatKeys is the fixed set of canned messages clients may send.
var QuickChatKeys = map[string]string{
	"nice_roll": "Nice roll!",
	"ouch":      "Ouch...",
	"hurry_up":  "Hurry up!",
	"gg":        "GG!",
	"good_luck": "Good luck!",
	"wow":       "Wow!",
}

// ChatMessage is one entry of the room chat. Reactions map emoji to the set
// of userIds that added them.
type ChatMessage struct {
	ID          string              `json:"id"`
	Type        ChatType            `json:"type"`
	UserID      string              `json:"userId,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	Content     string              `json:"content"`
	Timestamp   time.Time           `json:"timestamp"`
	Reactions   map[string][]string `json:"reactions,omitempty"`
}

// AddReaction records userID under emoji, reporting whether anything changed.
func (m *ChatMessage) AddReaction(emoji, userID string) bool {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	for _, uid := range m.Reactions[emoji] {
		if uid == userID {
			return false
		}
	}
	m.Reactions[emoji] = append(m.Reactions[emoji], userID)
	return true
}

// RemoveReaction drops userID from emoji, reporting whether anything changed.
func (m *ChatMessage) RemoveReaction(emoji, userID string) bool {
	users := m.Reactions[emoji]
	for i, uid := range users {
		if uid == userID {
			m.Reactions[emoji] = append(users[:i], users[i+1:]...)
			if len(m.Reactions[emoji]) == 0 {
				delete(m.Reactions, emoji)
			}
			return true
		}
	}
	return false
}
