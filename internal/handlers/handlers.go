package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/verlyn13/dicee-server/internal/auth"
	"github.com/verlyn13/dicee-server/internal/config"
	"github.com/verlyn13/dicee-server/internal/game"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	rooms    *RoomManager
	verifier auth.Verifier
	cfg      *config.ServerConfig
	log      *logrus.Logger
}

// New creates a new handler
func New(rooms *RoomManager, verifier auth.Verifier, cfg *config.ServerConfig, log *logrus.Logger) *Handler {
	return &Handler{
		rooms:    rooms,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}
}

// Rooms returns the handler's room manager (for testing)
func (h *Handler) Rooms() *RoomManager {
	return h.rooms
}

// CreateRoom serves POST /room: mints an unused room code for the caller to
// connect to. The room record itself is created on the first accepted
// upgrade.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	for i := 0; i < 10; i++ { // Try up to 10 times
		code := game.NewRoomCode()
		if info := h.rooms.Get(code).Info(); info.Exists {
			continue
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"roomCode": code}); err != nil {
			h.log.WithError(err).Error("encoding room code failed")
		}
		return
	}
	http.Error(w, "could not allocate a room code", http.StatusServiceUnavailable)
}

// RoomInfo serves GET /room/{code}/info: the public, unauthenticated room
// summary.
func (h *Handler) RoomInfo(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if !game.ValidRoomCode(code) {
		http.Error(w, "invalid room code", http.StatusNotFound)
		return
	}

	info := h.rooms.Get(code).Info()
	if !info.Exists {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.log.WithError(err).Error("encoding room info failed")
	}
}

// Health serves GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
