package room

import "github.com/gorilla/websocket"

// Accept takes ownership of an upgraded socket. The connect message is
// queued before the pumps start so no frame can outrun the attach.
func (a *Actor) Accept(ws *websocket.Conn, att Attachment) *Conn {
	c := newConn(ws, att, a)
	a.Connect(c)
	c.Start()
	return c
}
