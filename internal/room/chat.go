package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/store"
)

const typingClearAfter = 3 * time.Second

// chatState is the ChatManager. Limiters and typing timers are in-memory
// only and rebuilt after eviction; the persisted chat history is the only
// authoritative piece.
type chatState struct {
	actor *Actor

	textLimiters     map[string]*rate.Limiter
	reactionLimiters map[string]*rate.Limiter
	typingLimiters   map[string]*rate.Limiter
	typingTimers     map[string]*time.Timer
}

func newChatState(a *Actor) *chatState {
	return &chatState{
		actor:            a,
		textLimiters:     make(map[string]*rate.Limiter),
		reactionLimiters: make(map[string]*rate.Limiter),
		typingLimiters:   make(map[string]*rate.Limiter),
		typingTimers:     make(map[string]*time.Timer),
	}
}

func limiterFor(m map[string]*rate.Limiter, userID string, r rate.Limit, burst int) *rate.Limiter {
	l, ok := m[userID]
	if !ok {
		l = rate.NewLimiter(r, burst)
		m[userID] = l
	}
	return l
}

// handleText posts a text chat message: one per second per user.
func (cs *chatState) handleText(c *Conn, content string) *game.Error {
	userID := c.attachment.UserID
	if !limiterFor(cs.textLimiters, userID, rate.Every(time.Second), 1).Allow() {
		return game.NewError(game.CodeRateLimited, "slow down")
	}
	cs.post(&game.ChatMessage{
		Type:        game.ChatText,
		UserID:      userID,
		DisplayName: c.attachment.DisplayName,
		Content:     content,
	})
	cs.clearTyping(userID, false)
	return nil
}

// handleQuick posts a canned message; it shares the text limiter.
func (cs *chatState) handleQuick(c *Conn, key string) *game.Error {
	userID := c.attachment.UserID
	if !limiterFor(cs.textLimiters, userID, rate.Every(time.Second), 1).Allow() {
		return game.NewError(game.CodeRateLimited, "slow down")
	}
	cs.post(&game.ChatMessage{
		Type:        game.ChatQuick,
		UserID:      userID,
		DisplayName: c.attachment.DisplayName,
		Content:     game.QuickChatKeys[key],
	})
	return nil
}

// appendSystem records a system message. System traffic bypasses limits.
func (cs *chatState) appendSystem(content string) {
	cs.post(&game.ChatMessage{Type: game.ChatSystem, Content: content})
}

// post stamps, persists, and broadcasts a chat message.
func (cs *chatState) post(msg *game.ChatMessage) {
	a := cs.actor
	msg.ID = uuid.NewString()
	msg.Timestamp = a.now()

	ctx, cancel := a.ctx()
	defer cancel()

	history := cs.history(ctx)
	history = append(history, *msg)
	if len(history) > game.ChatHistoryLimit {
		history = history[len(history)-game.ChatHistoryLimit:]
	}
	if err := a.store.Put(ctx, a.code, store.KeyChatHistory, history); err != nil {
		a.log.WithError(err).Error("saving chat history failed")
	}

	ev := game.NewEvent(game.EventChatMessage)
	ev.Chat = msg
	a.broadcast(ev)
}

// handleReaction toggles an emoji on a recent message: five per second.
func (cs *chatState) handleReaction(c *Conn, cmd *game.Command) *game.Error {
	a := cs.actor
	userID := c.attachment.UserID
	if !limiterFor(cs.reactionLimiters, userID, rate.Every(200*time.Millisecond), 5).Allow() {
		return game.NewError(game.CodeRateLimited, "slow down")
	}

	ctx, cancel := a.ctx()
	defer cancel()

	history := cs.history(ctx)
	for i := range history {
		if history[i].ID != cmd.MessageID {
			continue
		}
		var changed bool
		if cmd.Action == "add" {
			changed = history[i].AddReaction(cmd.Emoji, userID)
		} else {
			changed = history[i].RemoveReaction(cmd.Emoji, userID)
		}
		if !changed {
			return game.NewError(game.CodeReactionFailed, "reaction unchanged")
		}
		if err := a.store.Put(ctx, a.code, store.KeyChatHistory, history); err != nil {
			a.log.WithError(err).Error("saving chat history failed")
		}

		ev := game.NewEvent(game.EventReactionUpdate)
		ev.MessageID = cmd.MessageID
		ev.Reactions = history[i].Reactions
		a.broadcast(ev)
		return nil
	}
	return game.NewError(game.CodeReactionFailed, "message not found")
}

// handleTypingStart broadcasts the indicator and arms the 3-second
// auto-clear, rearming on every repeat.
func (cs *chatState) handleTypingStart(c *Conn) *game.Error {
	a := cs.actor
	userID := c.attachment.UserID

	if t, ok := cs.typingTimers[userID]; ok {
		t.Reset(typingClearAfter)
		return nil
	}
	if !limiterFor(cs.typingLimiters, userID, rate.Every(2*time.Second), 1).Allow() {
		return nil // silently dropped; typing is best-effort
	}

	cs.typingTimers[userID] = time.AfterFunc(typingClearAfter, func() {
		a.deliver(msgTypingExpired{userID: userID})
	})
	cs.broadcastTyping(userID, true)
	return nil
}

func (cs *chatState) handleTypingStop(c *Conn) *game.Error {
	cs.clearTyping(c.attachment.UserID, true)
	return nil
}

func (cs *chatState) handleTypingExpired(userID string) {
	if _, ok := cs.typingTimers[userID]; !ok {
		return
	}
	delete(cs.typingTimers, userID)
	cs.broadcastTyping(userID, false)
}

// clearTyping stops the timer; broadcast only when the indicator was up.
func (cs *chatState) clearTyping(userID string, broadcast bool) {
	t, ok := cs.typingTimers[userID]
	if !ok {
		return
	}
	t.Stop()
	delete(cs.typingTimers, userID)
	if broadcast {
		cs.broadcastTyping(userID, false)
	}
}

func (cs *chatState) broadcastTyping(userID string, isTyping bool) {
	ev := game.NewEvent(game.EventTypingUpdate)
	ev.UserID = userID
	ev.IsTyping = isTyping
	cs.actor.broadcast(ev)
}

// history loads the persisted last-N messages.
func (cs *chatState) history(ctx context.Context) []game.ChatMessage {
	a := cs.actor
	var history []game.ChatMessage
	if _, err := a.store.Get(ctx, a.code, store.KeyChatHistory, &history); err != nil {
		a.log.WithError(err).Error("loading chat history failed")
	}
	return history
}
