package ws

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

type Options struct {
	IdentifyTimeout time.Duration
	WriteWait       time.Duration
	SendBufferSize  int
	MaxFrameSize    int64
	AllowedOrigins  []string
}

// Handler upgrades HTTP requests to websocket connections and runs their
// read and write loops.
type Handler struct {
	upgrader websocket.Upgrader
	reg      *gateway.Registry
	d        *Dispatcher
	opts     Options
	l        logger.Logger
}

func NewHandler(reg *gateway.Registry, d *Dispatcher, opts Options, l logger.Logger) *Handler {
	h := &Handler{
		reg:  reg,
		d:    d,
		opts: opts,
		l:    l,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.l.Warnf(r.Context(), "ws.Handler.ServeHTTP: upgrade: %v", err)
		return
	}

	t := newTransport(ws, h.opts.WriteWait)
	c := h.reg.Accept(t, h.opts.SendBufferSize)

	ctx := h.l.With(context.WithoutCancel(r.Context()), "conn_id", c.ID(), "remote_addr", r.RemoteAddr)
	h.l.Debugf(ctx, "connection accepted")

	go h.writePump(ctx, c, ws, t)
	h.readPump(ctx, c, ws)
}

func (h *Handler) readPump(ctx context.Context, c *gateway.Conn, ws *websocket.Conn) {
	defer h.reg.Terminate(ctx, c, gateway.ReasonTransportClosed)

	ws.SetReadLimit(h.opts.MaxFrameSize)
	ws.SetPongHandler(func(string) error {
		c.MarkAlive()
		return nil
	})

	deadline := time.AfterFunc(h.opts.IdentifyTimeout, func() {
		if c.UserID() == "" {
			h.reg.Terminate(ctx, c, gateway.ReasonIdentifyTimeout)
		}
	})
	defer deadline.Stop()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Debugf(ctx, "ws.Handler.readPump: %v", err)
			}
			return
		}

		c.MarkAlive()
		h.d.Dispatch(ctx, c, data)

		if c.IsClosed() {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, c *gateway.Conn, ws *websocket.Conn, t *transport) {
	defer t.finish()

	for data := range c.Outbound() {
		_ = ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			h.l.Debugf(ctx, "ws.Handler.writePump: %v", err)
			h.reg.Terminate(ctx, c, gateway.ReasonTransportClosed)
			return
		}
	}
}
