package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// transport adapts a websocket to gateway.Transport. Close does not cut the
// socket right away: the writer gets writeWait to flush frames that were
// queued before termination, such as the ERROR of a failed IDENTIFY.
type transport struct {
	ws        *websocket.Conn
	writeWait time.Duration
	once      sync.Once
}

func newTransport(ws *websocket.Conn, writeWait time.Duration) *transport {
	return &transport{ws: ws, writeWait: writeWait}
}

func (t *transport) Ping() error {
	return t.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeWait))
}

func (t *transport) Close() error {
	time.AfterFunc(t.writeWait, t.shutdown)
	return nil
}

// finish is called by the writer once the outbound queue is drained.
func (t *transport) finish() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeWait))
	t.shutdown()
}

func (t *transport) shutdown() {
	t.once.Do(func() {
		_ = t.ws.Close()
	})
}
