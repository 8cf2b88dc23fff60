package handlers

import (
	"sync"
	"time"

	"github.com/verlyn13/dicee-server/internal/config"
	"github.com/verlyn13/dicee-server/internal/room"
)

// RoomManager maps room codes to resident actors. A room with code X always
// resolves to the same actor while resident; non-resident rooms are
// reconstructed from storage on the next message. The janitor passivates
// idle actors and wakes passivated ones whose next alarm deadline arrives.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*room.Actor
	wakes map[string]time.Time

	cfg  *config.ServerConfig
	deps room.Deps

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRoomManager creates the manager and starts its janitor.
func NewRoomManager(cfg *config.ServerConfig, deps room.Deps) *RoomManager {
	m := &RoomManager{
		rooms: make(map[string]*room.Actor),
		wakes: make(map[string]time.Time),
		cfg:   cfg,
		deps:  deps,
		stop:  make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitor()
	return m
}

// Get returns the resident actor for code, reviving it if necessary.
func (m *RoomManager) Get(code string) *room.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(code)
}

func (m *RoomManager) getLocked(code string) *room.Actor {
	if a, ok := m.rooms[code]; ok {
		return a
	}
	opts := room.Options{
		MaxPlayers:      m.cfg.Game.MaxPlayersPerRoom,
		TurnTimeout:     time.Duration(m.cfg.Game.TurnTimeoutSeconds) * time.Second,
		AllowSpectators: m.cfg.Game.AllowSpectators,
		IsPublic:        m.cfg.Game.PublicByDefault,
		Retention:       m.cfg.Game.RoomRetention,
	}
	a := room.NewActor(code, opts, m.deps)
	m.rooms[code] = a
	delete(m.wakes, code)
	go a.Run()
	return a
}

// janitor passivates idle actors and revives passivated rooms with due
// alarms.
func (m *RoomManager) janitor() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *RoomManager) sweep() {
	m.mu.Lock()
	resident := make(map[string]*room.Actor, len(m.rooms))
	for code, a := range m.rooms {
		resident[code] = a
	}
	m.mu.Unlock()

	for code, a := range resident {
		res := a.Passivate(m.cfg.Game.PassivationTimeout)
		if !res.Stopped {
			continue
		}
		m.mu.Lock()
		if m.rooms[code] == a {
			delete(m.rooms, code)
			if !res.WakeAt.IsZero() {
				m.wakes[code] = res.WakeAt
			}
		}
		m.mu.Unlock()
	}

	now := time.Now()
	m.mu.Lock()
	var due []string
	for code, at := range m.wakes {
		if !at.After(now) {
			due = append(due, code)
		}
	}
	var revived []*room.Actor
	for _, code := range due {
		delete(m.wakes, code)
		revived = append(revived, m.getLocked(code))
	}
	m.mu.Unlock()

	for _, a := range revived {
		a.Alarm()
	}
}

// Shutdown stops the janitor and every resident actor.
func (m *RoomManager) Shutdown() {
	close(m.stop)
	m.wg.Wait()

	m.mu.Lock()
	actors := make([]*room.Actor, 0, len(m.rooms))
	for _, a := range m.rooms {
		actors = append(actors, a)
	}
	m.rooms = make(map[string]*room.Actor)
	m.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
}
