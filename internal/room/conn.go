package room

import (
	"time"

	"github.com/gorilla/websocket"
)

// Role of a socket within the room.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Attachment is the identity carried by a socket. It is written at accept
// time, with IsHost refreshed from the seat on register and on host transfer;
// it never holds game state, and everything else is recomputed from the seat
// ledger on each message.
type Attachment struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarSeed  string    `json:"avatarSeed"`
	IsHost      bool      `json:"isHost"`
	Role        Role      `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 4096
	sendBuffer   = 32
)

// Conn wraps one WebSocket with the identity attachment and a buffered
// outbound queue drained by its write pump.
type Conn struct {
	ws         *websocket.Conn
	attachment Attachment
	send       chan []byte
	actor      *Actor
}

func newConn(ws *websocket.Conn, att Attachment, actor *Actor) *Conn {
	return &Conn{
		ws:         ws,
		attachment: att,
		send:       make(chan []byte, sendBuffer),
		actor:      actor,
	}
}

// Attachment returns the socket's identity.
func (c *Conn) Attachment() Attachment {
	return c.attachment
}

// Start launches the read and write pumps.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// enqueue hands a frame to the write pump without blocking the actor. A full
// queue means the client has stopped draining; the socket is torn down.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readPump delivers inbound frames to the room actor. Binary frames are a
// protocol violation and close the socket with 1003.
func (c *Conn) readPump() {
	defer func() {
		c.actor.Disconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			c.closeWith(websocket.CloseUnsupportedData, "binary frames not supported")
			return
		}
		c.actor.HandleFrame(c, data)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeWith sends a close frame with the given code, then drops the socket.
// WriteControl is safe to call alongside the write pump.
func (c *Conn) closeWith(code int, reason string) {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.ws.Close()
}
