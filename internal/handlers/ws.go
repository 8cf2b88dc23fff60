package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token query parameter is the auth boundary; origin enforcement
	// belongs to the edge proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConnectRoom is the connection gateway: GET /room/{code} with an Upgrade
// header and a token query parameter. Identity is verified and admission
// pre-checked before the 101; all game work happens after acceptance, on
// the room actor.
func (h *Handler) ConnectRoom(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if !game.ValidRoomCode(code) {
		http.Error(w, "invalid room code", http.StatusNotFound)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		h.log.WithError(err).WithField("room", code).Info("rejected connection")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	connRole := room.RolePlayer
	if r.URL.Query().Get("role") == string(room.RoleSpectator) {
		connRole = room.RoleSpectator
	}

	actor := h.rooms.Get(code)
	if admitErr := actor.Admit(claims.UserID(), connRole); admitErr != nil {
		status := http.StatusForbidden
		if admitErr.Code == game.CodeRoomFull {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, admitErr.Message, status)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own response.
		h.log.WithError(err).WithField("room", code).Warn("upgrade failed")
		return
	}

	actor.Accept(ws, room.Attachment{
		UserID:      claims.UserID(),
		DisplayName: claims.DisplayName,
		AvatarSeed:  claims.AvatarSeed,
		Role:        connRole,
		ConnectedAt: time.Now(),
	})
}
