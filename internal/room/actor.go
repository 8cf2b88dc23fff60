package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/lobby"
	"github.com/verlyn13/dicee-server/internal/store"
)

// Options are the room-level knobs fixed at actor creation.
type Options struct {
	MaxPlayers      int
	TurnTimeout     time.Duration
	AllowSpectators bool
	IsPublic        bool
	// Retention is how long a finished or abandoned room's state survives
	// in storage before cleanup. Zero disables cleanup.
	Retention time.Duration
}

// Deps are the actor's external collaborators.
type Deps struct {
	Store store.Storage
	Lobby lobby.Directory
	Log   *logrus.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Actor is one room. It owns the room's keyspace in storage, the set of
// attached sockets, and a single alarm timer. Every message — socket frame,
// connect, disconnect, alarm — is processed to completion on the Run loop
// before the next begins, so no locks guard game state.
//
// The actor holds no authoritative state in memory: each message reloads the
// room, game, seats, and alarms from storage and writes back what it changed.
// Dropping the actor between messages loses nothing but the in-memory chat
// rate limiters, typing timers and spectator prediction tally, which are
// non-authoritative by contract.
type Actor struct {
	code  string
	opts  Options
	store store.Storage
	lobby lobby.Directory
	log   *logrus.Entry
	now   func() time.Time

	mailbox chan message
	done    chan struct{}

	conns      map[*Conn]struct{}
	byUser     map[string]*Conn
	spectators map[*Conn]struct{}

	chat        *chatState
	predictions *predictionLedger

	alarmTimer *time.Timer
	lastActive time.Time
}

type message interface{}

type msgConnect struct{ conn *Conn }
type msgDisconnect struct{ conn *Conn }
type msgFrame struct {
	conn *Conn
	data []byte
}
type msgAlarm struct{}
type msgTypingExpired struct{ userID string }
type msgAdmit struct {
	userID string
	role   Role
	reply  chan *game.Error
}
type msgInfo struct{ reply chan Info }
type msgPassivate struct {
	idleFor time.Duration
	reply   chan PassivateResult
}
type msgStop struct{ reply chan struct{} }

// Info is the public room summary served by GET /room/:code/info.
type Info struct {
	RoomCode    string          `json:"roomCode"`
	Status      game.RoomStatus `json:"status"`
	PlayerCount int             `json:"playerCount"`
	MaxPlayers  int             `json:"maxPlayers"`
	IsPublic    bool            `json:"isPublic"`
	CreatedAt   time.Time       `json:"createdAt"`
	Exists      bool            `json:"-"`
}

// PassivateResult reports whether the actor stopped and, if so, when it next
// needs to be woken for a pending alarm.
type PassivateResult struct {
	Stopped bool
	WakeAt  time.Time
}

// NewActor creates a room actor. Run must be called before any delivery.
func NewActor(code string, opts Options, deps Deps) *Actor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	a := &Actor{
		code:       code,
		opts:       opts,
		store:      deps.Store,
		lobby:      deps.Lobby,
		log:        deps.Log.WithField("room", code),
		now:        now,
		mailbox:    make(chan message, 64),
		done:       make(chan struct{}),
		conns:      make(map[*Conn]struct{}),
		byUser:     make(map[string]*Conn),
		spectators: make(map[*Conn]struct{}),
	}
	a.chat = newChatState(a)
	a.predictions = newPredictionLedger()
	a.lastActive = now()
	return a
}

// Run processes the mailbox until Stop. It re-arms the alarm timer from
// storage first so deadlines scheduled before a cold start still fire.
func (a *Actor) Run() {
	a.rearmFromStorage()
	for {
		m, ok := <-a.mailbox
		if !ok {
			return
		}
		switch m := m.(type) {
		case msgConnect:
			a.lastActive = a.now()
			a.handleConnect(m.conn)
		case msgDisconnect:
			a.lastActive = a.now()
			a.handleDisconnect(m.conn)
		case msgFrame:
			a.lastActive = a.now()
			a.handleFrame(m.conn, m.data)
		case msgAlarm:
			a.lastActive = a.now()
			a.handleAlarm()
		case msgTypingExpired:
			a.chat.handleTypingExpired(m.userID)
		case msgAdmit:
			m.reply <- a.handleAdmit(m.userID, m.role)
		case msgInfo:
			m.reply <- a.handleInfo()
		case msgPassivate:
			res := a.handlePassivate(m.idleFor)
			m.reply <- res
			if res.Stopped {
				close(a.done)
				return
			}
		case msgStop:
			a.stopTimer()
			close(a.done)
			close(m.reply)
			return
		}
	}
}

// Connect registers an accepted socket with the actor.
func (a *Actor) Connect(c *Conn) { a.deliver(msgConnect{conn: c}) }

// Disconnect unregisters a socket. Safe to call more than once.
func (a *Actor) Disconnect(c *Conn) { a.deliver(msgDisconnect{conn: c}) }

// HandleFrame delivers one inbound text frame.
func (a *Actor) HandleFrame(c *Conn, data []byte) { a.deliver(msgFrame{conn: c, data: data}) }

// Alarm wakes the actor to process due deadlines.
func (a *Actor) Alarm() { a.deliver(msgAlarm{}) }

// Admit pre-checks whether a user may connect with the given role, so the
// gateway can answer 403/503 before upgrading. The authoritative check still
// happens at connect time.
func (a *Actor) Admit(userID string, role Role) *game.Error {
	reply := make(chan *game.Error, 1)
	if !a.deliver(msgAdmit{userID: userID, role: role, reply: reply}) {
		return game.NewError(game.CodeInternal, "room is shutting down")
	}
	return <-reply
}

// Info returns the public room summary.
func (a *Actor) Info() Info {
	reply := make(chan Info, 1)
	if !a.deliver(msgInfo{reply: reply}) {
		return Info{RoomCode: a.code}
	}
	return <-reply
}

// Passivate stops the actor if it has no sockets and has been idle longer
// than idleFor.
func (a *Actor) Passivate(idleFor time.Duration) PassivateResult {
	reply := make(chan PassivateResult, 1)
	if !a.deliver(msgPassivate{idleFor: idleFor, reply: reply}) {
		return PassivateResult{Stopped: true}
	}
	return <-reply
}

// Stop shuts the actor down, leaving storage untouched.
func (a *Actor) Stop() {
	reply := make(chan struct{})
	if a.deliver(msgStop{reply: reply}) {
		<-reply
	}
}

// deliver enqueues unless the actor has stopped.
func (a *Actor) deliver(m message) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.mailbox <- m:
		return true
	case <-a.done:
		return false
	}
}

// ctx bounds storage work done inside one message.
func (a *Actor) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// roomCtx is everything a message handler reloads from storage.
type roomCtx struct {
	room   *game.RoomState
	st     *game.State
	seats  []*game.Seat
	alarms *game.AlarmData
}

// loadCtx reads the room's records fresh. room is nil when the room has
// never been created.
func (a *Actor) loadCtx(ctx context.Context) (*roomCtx, error) {
	rc := &roomCtx{st: game.NewState(), alarms: &game.AlarmData{}}

	var room game.RoomState
	ok, err := a.store.Get(ctx, a.code, store.KeyRoom, &room)
	if err != nil {
		return nil, err
	}
	if ok {
		rc.room = &room
	}

	var st game.State
	if ok, err = a.store.Get(ctx, a.code, store.KeyGame, &st); err != nil {
		return nil, err
	} else if ok {
		rc.st = &st
	}

	if _, err = a.store.Get(ctx, a.code, store.KeyAlarmData, rc.alarms); err != nil {
		return nil, err
	}

	rc.seats, err = a.loadSeats(ctx)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (a *Actor) saveRoom(ctx context.Context, room *game.RoomState) error {
	return a.store.Put(ctx, a.code, store.KeyRoom, room)
}

func (a *Actor) saveState(ctx context.Context, st *game.State) error {
	return a.store.Put(ctx, a.code, store.KeyGame, st)
}

func (a *Actor) saveAlarms(ctx context.Context, alarms *game.AlarmData) error {
	if err := a.store.Put(ctx, a.code, store.KeyAlarmData, alarms); err != nil {
		return err
	}
	a.rearm(alarms)
	return nil
}

func (a *Actor) loadRNG(ctx context.Context) (*game.RNG, error) {
	rng := &game.RNG{}
	ok, err := a.store.Get(ctx, a.code, store.KeyRNGState, rng)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, game.NewError(game.CodeInternal, "missing rng state")
	}
	return rng, nil
}

func (a *Actor) saveRNG(ctx context.Context, rng *game.RNG) error {
	return a.store.Put(ctx, a.code, store.KeyRNGState, rng)
}

// handleInfo summarizes the room from storage.
func (a *Actor) handleInfo() Info {
	ctx, cancel := a.ctx()
	defer cancel()

	rc, err := a.loadCtx(ctx)
	if err != nil || rc.room == nil {
		return Info{RoomCode: a.code}
	}
	now := a.now()
	count := 0
	for _, s := range rc.seats {
		if s.Presence(now) != game.PresenceAbandoned {
			count++
		}
	}
	return Info{
		RoomCode:    rc.room.RoomCode,
		Status:      rc.room.Status,
		PlayerCount: count,
		MaxPlayers:  rc.room.Settings.MaxPlayers,
		IsPublic:    rc.room.Settings.IsPublic,
		CreatedAt:   rc.room.CreatedAt,
		Exists:      true,
	}
}

// handlePassivate stops an idle, connection-free actor and reports the next
// pending deadline so the owner can schedule a wake.
func (a *Actor) handlePassivate(idleFor time.Duration) PassivateResult {
	if len(a.conns) > 0 || a.now().Sub(a.lastActive) < idleFor {
		return PassivateResult{}
	}
	a.stopTimer()

	ctx, cancel := a.ctx()
	defer cancel()
	alarms := &game.AlarmData{}
	if _, err := a.store.Get(ctx, a.code, store.KeyAlarmData, alarms); err != nil {
		a.log.WithError(err).Warn("passivate: loading alarms failed")
	}
	res := PassivateResult{Stopped: true}
	if next, ok := alarms.Next(); ok {
		res.WakeAt = next.Deadline
	}
	return res
}

// sendEvent marshals and queues an event for one socket. A socket that
// cannot keep up is dropped.
func (a *Actor) sendEvent(c *Conn, ev *game.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		a.log.WithError(err).WithField("event", ev.Type).Error("marshaling event failed")
		return
	}
	if !c.enqueue(frame) {
		a.log.WithField("user", c.attachment.UserID).Warn("slow consumer, dropping socket")
		c.closeWith(websocket.ClosePolicyViolation, "client not draining")
		a.removeConn(c)
	}
}

// broadcast fans an event out to every attached socket, spectators included.
func (a *Actor) broadcast(ev *game.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	for c := range a.conns {
		a.sendEvent(c, ev)
	}
}

// broadcastSpectators sends to read-only observers only. A room with no
// spectators skips the marshal entirely.
func (a *Actor) broadcastSpectators(ev *game.Event) {
	if len(a.spectators) == 0 {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	for c := range a.spectators {
		a.sendEvent(c, ev)
	}
}

// removeConn forgets a socket without seat bookkeeping.
func (a *Actor) removeConn(c *Conn) {
	delete(a.conns, c)
	delete(a.spectators, c)
	if cur, ok := a.byUser[c.attachment.UserID]; ok && cur == c {
		delete(a.byUser, c.attachment.UserID)
	}
}

// connectedSeatCount counts seats with a live socket.
func connectedSeatCount(seats []*game.Seat) int {
	n := 0
	for _, s := range seats {
		if s.IsConnected {
			n++
		}
	}
	return n
}
