package room

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/lobby"
	"github.com/verlyn13/dicee-server/internal/store"
)

const testRoomCode = "ABC234"

var testBase = time.Unix(1700000000, 0)

// fakeClock lets tests warp past alarm deadlines without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: testBase}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// rig wires one actor to a real WebSocket endpoint.
type rig struct {
	t        *testing.T
	clock    *fakeClock
	store    *store.MemoryStore
	recorder *lobby.Recorder
	opts     Options
	deps     Deps

	mu    sync.Mutex
	actor *Actor

	server *httptest.Server
}

var testUpgrader = websocket.Upgrader{}

func newRig(t *testing.T) *rig {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := &rig{
		t:        t,
		clock:    newFakeClock(),
		store:    store.NewMemoryStore(),
		recorder: lobby.NewRecorder(),
		opts: Options{
			MaxPlayers:      4,
			TurnTimeout:     60 * time.Second,
			AllowSpectators: true,
			IsPublic:        true,
		},
	}
	r.deps = Deps{Store: r.store, Lobby: r.recorder, Log: log, Now: r.clock.Now}
	r.actor = NewActor(testRoomCode, r.opts, r.deps)
	go r.actor.Run()

	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := testUpgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		q := req.URL.Query()
		role := RolePlayer
		if q.Get("role") == string(RoleSpectator) {
			role = RoleSpectator
		}
		r.mu.Lock()
		actor := r.actor
		r.mu.Unlock()
		actor.Accept(ws, Attachment{
			UserID:      q.Get("user"),
			DisplayName: q.Get("user"),
			AvatarSeed:  "seed-" + q.Get("user"),
			Role:        role,
			ConnectedAt: r.clock.Now(),
		})
	}))

	t.Cleanup(func() {
		r.server.Close()
		r.current().Stop()
	})
	return r
}

func (r *rig) current() *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actor
}

// evict simulates hibernation: the actor is dropped and a fresh one is
// rebuilt over the same storage.
func (r *rig) evict() {
	r.mu.Lock()
	old := r.actor
	r.mu.Unlock()
	old.Stop()

	fresh := NewActor(testRoomCode, r.opts, r.deps)
	go fresh.Run()
	r.mu.Lock()
	r.actor = fresh
	r.mu.Unlock()
}

// alarm triggers alarm processing against the warped clock.
func (r *rig) alarm() {
	r.current().Alarm()
}

// lastProjection polls the recorder until pred matches.
func (r *rig) lastProjection(pred func(lobby.RoomStatusUpdate) bool) lobby.RoomStatusUpdate {
	r.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if update, ok := r.recorder.Last(); ok && pred(update) {
			return update
		}
		time.Sleep(10 * time.Millisecond)
	}
	update, _ := r.recorder.Last()
	r.t.Fatalf("projection never matched; last: %+v", update)
	return lobby.RoomStatusUpdate{}
}

// client is one connected websocket.
type client struct {
	t    *testing.T
	user string
	ws   *websocket.Conn
}

func (r *rig) dial(user string) *client {
	r.t.Helper()
	return r.dialRole(user, RolePlayer)
}

func (r *rig) dialRole(user string, role Role) *client {
	r.t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/?user=" + user + "&role=" + string(role)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(r.t, err, "dialing as %s", user)
	c := &client{t: r.t, user: user, ws: ws}
	r.t.Cleanup(func() { ws.Close() })
	return c
}

func (c *client) send(cmd game.Command) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(cmd))
}

// expect reads events until one of the wanted type arrives, skipping
// everything else.
func (c *client) expect(eventType string) *game.Event {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		c.ws.SetReadDeadline(deadline)
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.t.Fatalf("%s: waiting for %s: %v", c.user, eventType, err)
		}
		ev := &game.Event{}
		if err := json.Unmarshal(data, ev); err != nil {
			c.t.Fatalf("%s: bad event frame: %v", c.user, err)
		}
		if ev.Type == eventType {
			return ev
		}
	}
}

// expectNone asserts no event of the given type arrives within the window.
func (c *client) expectNone(eventType string, window time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(window)
	for {
		c.ws.SetReadDeadline(deadline)
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return // timeout: nothing arrived
		}
		ev := &game.Event{}
		if json.Unmarshal(data, ev) == nil && ev.Type == eventType {
			c.t.Fatalf("%s: unexpected %s event", c.user, eventType)
		}
	}
}

func (c *client) close() {
	c.ws.Close()
}

// startTwoPlayerGame joins host+guest, starts, and runs the countdown.
// Returns the clients keyed so that current moves first.
func startTwoPlayerGame(t *testing.T, r *rig) (current, waiting *client) {
	t.Helper()

	host := r.dial("host")
	host.expect(game.EventStateSync)
	guest := r.dial("guest")
	guest.expect(game.EventStateSync)

	host.send(game.Command{Type: game.CmdStartGame})
	host.expect(game.EventGameStarted)
	guest.expect(game.EventGameStarted)

	r.clock.Advance(game.CountdownSeconds * time.Second)
	r.alarm()
	started := host.expect(game.EventTurnStarted)
	guest.expect(game.EventTurnStarted)
	require.Equal(t, 1, started.TurnNumber)

	if started.PlayerID == "host" {
		return host, guest
	}
	return guest, host
}

func TestJoinDeliversSnapshot(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventConnected)
	sync := host.expect(game.EventStateSync)
	require.NotNil(t, sync.State)
	assert.Equal(t, testRoomCode, sync.State.RoomCode)
	assert.Equal(t, game.StatusWaiting, sync.State.Status)
	require.Len(t, sync.State.Seats, 1)
	assert.True(t, sync.State.Seats[0].IsHost)
	assert.Equal(t, game.PresenceConnected, sync.State.Seats[0].Presence)

	guest := r.dial("guest")
	joined := host.expect(game.EventPlayerJoined)
	assert.Equal(t, "guest", joined.UserID)
	assert.False(t, joined.IsHost)

	sync = guest.expect(game.EventStateSync)
	assert.Len(t, sync.State.Seats, 2)

	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.PlayerCount == 2
	})
	assert.Equal(t, lobby.StatusWaiting, update.Status)
	assert.Equal(t, "host", update.HostID)
}

func TestStartGameAuthorization(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	// Alone: not enough players.
	host.send(game.Command{Type: game.CmdStartGame})
	errEv := host.expect(game.EventError)
	assert.Equal(t, game.CodeNotEnoughPlayers, errEv.Code)

	guest := r.dial("guest")
	guest.expect(game.EventStateSync)

	// Only the host may start.
	guest.send(game.Command{Type: game.CmdStartGame})
	errEv = guest.expect(game.EventError)
	assert.Equal(t, game.CodeNotHost, errEv.Code)
}

func TestFirstRoundFlow(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	current.send(game.Command{Type: game.CmdDiceRoll, Kept: []bool{false, false, false, false, false}})
	rolled := waiting.expect(game.EventDiceRolled)
	require.NotNil(t, rolled.Dice)
	require.NotNil(t, rolled.RollsRemaining)
	assert.Equal(t, 2, *rolled.RollsRemaining)
	assert.Equal(t, current.user, rolled.PlayerID)

	current.send(game.Command{Type: game.CmdDiceKeep, Indices: []int{0, 2}})
	kept := waiting.expect(game.EventDiceKept)
	require.NotNil(t, kept.Kept)
	assert.Equal(t, [5]bool{true, false, true, false, false}, *kept.Kept)

	current.send(game.Command{Type: game.CmdScore, Category: "chance"})
	scored := waiting.expect(game.EventCategoryScored)
	assert.Equal(t, "chance", string(scored.Category))
	require.NotNil(t, scored.Score)
	require.NotNil(t, scored.TotalScore)

	ended := waiting.expect(game.EventTurnEnded)
	assert.Equal(t, current.user, ended.PlayerID)

	next := waiting.expect(game.EventTurnStarted)
	assert.Equal(t, waiting.user, next.PlayerID)
	assert.Equal(t, 2, next.TurnNumber)
	assert.Equal(t, 1, next.RoundNumber)
}

func TestWrongTurnAndNoRollsLeft(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	waiting.send(game.Command{Type: game.CmdDiceRoll})
	errEv := waiting.expect(game.EventError)
	assert.Equal(t, game.CodeNotYourTurn, errEv.Code)

	for i := 0; i < 3; i++ {
		current.send(game.Command{Type: game.CmdDiceRoll})
		current.expect(game.EventDiceRolled)
	}
	current.send(game.Command{Type: game.CmdDiceRoll})
	errEv = current.expect(game.EventError)
	assert.Equal(t, game.CodeNoRollsRemaining, errEv.Code)
}

func TestScoreTwiceRefused(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	current.send(game.Command{Type: game.CmdDiceRoll})
	current.expect(game.EventDiceRolled)
	current.send(game.Command{Type: game.CmdScore, Category: "chance"})
	current.expect(game.EventCategoryScored)
	waiting.expect(game.EventTurnStarted)

	// Second player scores chance too, bringing the turn back around.
	waiting.send(game.Command{Type: game.CmdDiceRoll})
	waiting.expect(game.EventDiceRolled)
	waiting.send(game.Command{Type: game.CmdScore, Category: "chance"})
	waiting.expect(game.EventCategoryScored)
	current.expect(game.EventTurnStarted)

	// chance is now filled for the first player.
	current.send(game.Command{Type: game.CmdDiceRoll})
	current.expect(game.EventDiceRolled)
	current.send(game.Command{Type: game.CmdScore, Category: "chance"})
	errEv := current.expect(game.EventError)
	assert.Equal(t, game.CodeCategoryAlreadyScored, errEv.Code)
}

func TestDisconnectReconnectWithinGrace(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	waiting.close()
	disc := current.expect(game.EventPlayerDisconnected)
	assert.Equal(t, waiting.user, disc.UserID)
	assert.Equal(t, r.clock.Now().Add(game.ReconnectGrace).UnixMilli(), disc.ReconnectDeadline)

	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		for _, p := range u.Players {
			if p.UserID == waiting.user && p.PresenceState == string(game.PresenceDisconnected) {
				return true
			}
		}
		return false
	})
	assert.Equal(t, 2, update.PlayerCount)

	// Back within grace: the seat and the turn are untouched.
	r.clock.Advance(30 * time.Second)
	returned := r.dial(waiting.user)
	rec := current.expect(game.EventPlayerReconnected)
	assert.Equal(t, waiting.user, rec.UserID)

	sync := returned.expect(game.EventStateSync)
	assert.Equal(t, game.StatusPlaying, sync.State.Status)
	assert.Equal(t, current.user, sync.State.CurrentPlayer)
	assert.Equal(t, 1, sync.State.TurnNumber)
	for _, seat := range sync.State.Seats {
		assert.Equal(t, seat.UserID == "host", seat.IsHost)
	}
}

func sendPing(c *client) *game.Event {
	c.send(game.Command{Type: game.CmdPing})
	return c.expect(game.EventPong)
}

func TestAllDisconnectPausesAndResumes(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	current.close()
	waiting.close()

	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.Status == lobby.StatusPaused
	})
	assert.NotZero(t, update.PausedAt)

	// A reconnect within the pause window resumes play.
	r.clock.Advance(5 * time.Minute)
	back := r.dial("host")
	resumed := back.expect(game.EventRoomResumed)
	assert.Equal(t, r.clock.Now().UnixMilli(), resumed.ResumedAt)

	sync := back.expect(game.EventStateSync)
	assert.Equal(t, game.StatusPlaying, sync.State.Status)

	r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.Status == lobby.StatusPlaying
	})
}

func TestPauseTimeoutAbandonsRoom(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	current.close()
	waiting.close()
	r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.Status == lobby.StatusPaused
	})

	r.clock.Advance(game.PauseTimeout + time.Second)
	r.alarm()

	r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.Status == lobby.StatusFinished
	})

	// The room record is finalized in storage.
	var room game.RoomState
	ok, err := r.store.Get(context.Background(), testRoomCode, store.KeyRoom, &room)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, game.StatusAbandoned, room.Status)
}

func TestAFKWarningAndAutoScore(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	current.send(game.Command{Type: game.CmdDiceRoll})
	current.expect(game.EventDiceRolled)

	r.clock.Advance(45 * time.Second)
	r.alarm()
	warning := waiting.expect(game.EventAFKWarning)
	assert.Equal(t, current.user, warning.PlayerID)
	assert.Equal(t, 15, warning.SecondsRemaining)

	r.clock.Advance(15 * time.Second)
	r.alarm()
	skipped := waiting.expect(game.EventTurnSkipped)
	assert.Equal(t, current.user, skipped.PlayerID)
	assert.Equal(t, "timeout", skipped.Reason)
	assert.Equal(t, "ones", string(skipped.CategoryScored))
	require.NotNil(t, skipped.Score)

	next := waiting.expect(game.EventTurnStarted)
	assert.Equal(t, waiting.user, next.PlayerID)

	// R2: a duplicate firing for the same deadline is a no-op.
	r.alarm()
	waiting.expectNone(game.EventTurnSkipped, 300*time.Millisecond)
}

func TestSeatExpiryWhileWaiting(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)
	guest := r.dial("guest")
	guest.expect(game.EventStateSync)
	host.expect(game.EventPlayerJoined)

	guest.close()
	host.expect(game.EventPlayerDisconnected)

	r.clock.Advance(game.ReconnectGrace + time.Second)
	r.alarm()
	left := host.expect(game.EventPlayerLeft)
	assert.Equal(t, "guest", left.UserID)

	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return len(u.Players) == 1
	})
	assert.Equal(t, 1, update.PlayerCount)
}

func TestSeatExpiryDuringGameKeepsSeatVisible(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	waiting.close()
	current.expect(game.EventPlayerDisconnected)

	r.clock.Advance(game.ReconnectGrace + time.Second)
	r.alarm()

	// The seat flips to abandoned in the projection but stays listed so the
	// player order holds until game end.
	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		for _, p := range u.Players {
			if p.UserID == waiting.user && p.PresenceState == string(game.PresenceAbandoned) {
				return true
			}
		}
		return false
	})
	assert.Len(t, update.Players, 2)
	assert.Equal(t, 1, update.PlayerCount)

	current.expectNone(game.EventPlayerLeft, 300*time.Millisecond)
}

func TestReconnectAfterGraceDuringGame(t *testing.T) {
	r := newRig(t)
	current, waiting := startTwoPlayerGame(t, r)

	waiting.close()
	current.expect(game.EventPlayerDisconnected)

	r.clock.Advance(game.ReconnectGrace + time.Second)
	r.alarm()

	// The seat is reserved for the whole game: a lapsed grace deadline must
	// not lock the player out while the room is playing or paused.
	returned := r.dial(waiting.user)
	rec := current.expect(game.EventPlayerReconnected)
	assert.Equal(t, waiting.user, rec.UserID)

	sync := returned.expect(game.EventStateSync)
	assert.Equal(t, game.StatusPlaying, sync.State.Status)

	r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		for _, p := range u.Players {
			if p.UserID == waiting.user && p.PresenceState == string(game.PresenceConnected) {
				return true
			}
		}
		return false
	})
}

func TestHostTransferAfterExpiry(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)
	guest := r.dial("guest")
	guest.expect(game.EventStateSync)

	host.close()
	guest.expect(game.EventPlayerDisconnected)

	r.clock.Advance(game.ReconnectGrace + time.Second)
	r.alarm()
	guest.expect(game.EventPlayerLeft)

	update := r.lastProjection(func(u lobby.RoomStatusUpdate) bool {
		return u.HostID == "guest"
	})
	assert.Equal(t, "guest", update.HostName)
}

func TestPausedRejectsGameCommands(t *testing.T) {
	r := newRig(t)
	current, _ := startTwoPlayerGame(t, r)

	// Force the paused status directly; the actor reloads it per message.
	var room game.RoomState
	ok, err := r.store.Get(context.Background(), testRoomCode, store.KeyRoom, &room)
	require.NoError(t, err)
	require.True(t, ok)
	room.Status = game.StatusPaused
	require.NoError(t, r.store.Put(context.Background(), testRoomCode, store.KeyRoom, &room))

	current.send(game.Command{Type: game.CmdDiceRoll})
	errEv := current.expect(game.EventError)
	assert.Equal(t, game.CodeInvalidPhase, errEv.Code)

	// Chat still flows while paused.
	current.send(game.Command{Type: game.CmdChat, Content: "anyone there?"})
	msg := current.expect(game.EventChatMessage)
	assert.Equal(t, "anyone there?", msg.Chat.Content)
}

func TestChatRateLimitAndReactions(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	host.send(game.Command{Type: game.CmdChat, Content: "hello"})
	msg := host.expect(game.EventChatMessage)
	require.NotNil(t, msg.Chat)
	assert.Equal(t, "hello", msg.Chat.Content)
	assert.Equal(t, game.ChatText, msg.Chat.Type)

	// Second message within a second is limited.
	host.send(game.Command{Type: game.CmdChat, Content: "again"})
	errEv := host.expect(game.EventError)
	assert.Equal(t, game.CodeRateLimited, errEv.Code)

	host.send(game.Command{Type: game.CmdReaction, MessageID: msg.Chat.ID, Emoji: "🎲", Action: "add"})
	reaction := host.expect(game.EventReactionUpdate)
	assert.Equal(t, msg.Chat.ID, reaction.MessageID)
	assert.Equal(t, []string{"host"}, reaction.Reactions["🎲"])

	host.send(game.Command{Type: game.CmdReaction, MessageID: "nope", Emoji: "🎲", Action: "add"})
	errEv = host.expect(game.EventError)
	assert.Equal(t, game.CodeReactionFailed, errEv.Code)
}

func TestQuickChat(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	host.send(game.Command{Type: game.CmdQuickChat, Key: "gg"})
	msg := host.expect(game.EventChatMessage)
	require.NotNil(t, msg.Chat)
	assert.Equal(t, game.ChatQuick, msg.Chat.Type)
	assert.Equal(t, "GG!", msg.Chat.Content)
}

func TestChatHistoryReplayedOnConnect(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)
	host.send(game.Command{Type: game.CmdChat, Content: "first!"})
	host.expect(game.EventChatMessage)

	guest := r.dial("guest")
	sync := guest.expect(game.EventStateSync)
	found := false
	for _, m := range sync.State.ChatHistory {
		if m.Content == "first!" {
			found = true
		}
	}
	assert.True(t, found, "chat history should be replayed to late joiners")
}

func TestSpectator(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	spec := r.dialRole("watcher", RoleSpectator)
	sync := spec.expect(game.EventStateSync)
	assert.Equal(t, 1, sync.State.SpectatorCount)

	// Spectators hold no seat.
	assert.Len(t, sync.State.Seats, 1)

	spec.send(game.Command{Type: game.CmdStartGame})
	errEv := spec.expect(game.EventError)
	assert.Equal(t, game.CodeUnknownCommand, errEv.Code)

	// Spectators see the shared event stream.
	guest := r.dial("guest")
	guest.expect(game.EventStateSync)
	spec.expect(game.EventPlayerJoined)

	host.send(game.Command{Type: game.CmdStartGame})
	spec.expect(game.EventGameStarted)
	r.clock.Advance(game.CountdownSeconds * time.Second)
	r.alarm()
	started := spec.expect(game.EventTurnStarted)

	// Predictions are accepted during an active turn.
	spec.send(game.Command{Type: game.CmdPredict, TargetUserID: started.PlayerID, Category: "chance"})
	spec.expectNone(game.EventError, 300*time.Millisecond)
}

func TestBinaryFrameCloses(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	require.NoError(t, host.ws.WriteMessage(websocket.BinaryMessage, []byte{0x01}))

	host.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := host.ws.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseUnsupportedData),
				"expected close 1003, got %v", err)
			return
		}
	}
}

func TestRoomFull(t *testing.T) {
	r := newRig(t)

	for _, user := range []string{"p1", "p2", "p3", "p4"} {
		c := r.dial(user)
		c.expect(game.EventStateSync)
	}

	fifth := r.dial("p5")
	fifth.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := fifth.ws.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
				"expected close 1008, got %v", err)
			return
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	r := newRig(t)

	host := r.dial("host")
	host.expect(game.EventStateSync)

	host.send(game.Command{Type: "warp_dice"})
	errEv := host.expect(game.EventError)
	assert.Equal(t, game.CodeUnknownCommand, errEv.Code)
}

func TestPingPong(t *testing.T) {
	r := newRig(t)
	host := r.dial("host")
	host.expect(game.EventStateSync)
	sendPing(host)
}

// TestHibernationRoundTrip runs the same scripted session twice, once with
// an eviction in the middle, and requires identical dice: the rng state,
// seats, and alarms all survive through storage alone.
func TestHibernationRoundTrip(t *testing.T) {
	script := func(t *testing.T, evict bool) [5]int {
		r := newRig(t)
		current, waiting := startTwoPlayerGame(t, r)

		if evict {
			r.evict()
		}

		// The evicted actor lost its sockets; reconnect through the rig.
		if evict {
			cur := r.dial(current.user)
			cur.expect(game.EventStateSync)
			wai := r.dial(waiting.user)
			wai.expect(game.EventStateSync)
			current, waiting = cur, wai
		}

		current.send(game.Command{Type: game.CmdDiceRoll})
		rolled := waiting.expect(game.EventDiceRolled)
		require.NotNil(t, rolled.Dice)
		return *rolled.Dice
	}

	plain := script(t, false)
	evicted := script(t, true)
	assert.Equal(t, plain, evicted, "dice must be identical across hibernation")
}
