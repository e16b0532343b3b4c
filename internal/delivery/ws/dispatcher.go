package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-gateway/pkg/errors"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

type TopicIndex interface {
	Subscribe(c *gateway.Conn, topics ...string) error
	Unsubscribe(c *gateway.Conn, topics ...string)
	Topics(c *gateway.Conn) []string
}

type Terminator interface {
	Terminate(ctx context.Context, c *gateway.Conn, reason string)
}

type Deps struct {
	Session   service.SessionService
	Presence  service.PresenceService
	Voice     service.VoiceService
	Music     service.MusicService
	Publisher service.Publisher
	Topics    TopicIndex
	Registry  Terminator
}

type handlerFunc func(ctx context.Context, c *gateway.Conn, data json.RawMessage) error

type route struct {
	fn         handlerFunc
	needsIdent bool
}

// Dispatcher routes inbound frames of a connection to the services. Dispatch
// is called by the connection's read loop, so frames of one connection are
// handled one at a time in arrival order.
type Dispatcher struct {
	deps    Deps
	routes  map[string]route
	timeout time.Duration
	l       logger.Logger
}

func NewDispatcher(deps Deps, timeout time.Duration, l logger.Logger) *Dispatcher {
	d := &Dispatcher{
		deps:    deps,
		timeout: timeout,
		l:       l,
	}

	d.routes = map[string]route{
		models.OpIdentify:       {fn: d.identify},
		models.OpHeartbeat:      {fn: d.heartbeat},
		models.OpSubscribe:      {fn: d.subscribe, needsIdent: true},
		models.OpUnsubscribe:    {fn: d.unsubscribe, needsIdent: true},
		models.OpTypingStart:    {fn: d.typing(models.OpTypingStart), needsIdent: true},
		models.OpTypingStop:     {fn: d.typing(models.OpTypingStop), needsIdent: true},
		models.OpPresenceUpdate: {fn: d.presenceUpdate, needsIdent: true},
		models.OpVoiceJoin:      {fn: d.voiceJoin, needsIdent: true},
		models.OpVoiceLeave:     {fn: d.voiceLeave, needsIdent: true},
		models.OpVoiceSignal:    {fn: d.voiceSignal, needsIdent: true},
		models.OpVoiceState:     {fn: d.voiceState, needsIdent: true},
		models.OpMusicCommand:   {fn: d.musicCommand, needsIdent: true},
	}

	return d
}

// Dispatch handles one raw frame. Malformed frames are dropped; handler
// errors and panics are answered with an ERROR frame.
func (d *Dispatcher) Dispatch(ctx context.Context, c *gateway.Conn, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		d.l.Debugf(ctx, "ws.Dispatcher.Dispatch: dropped malformed frame: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.l.Errorf(ctx, "ws.Dispatcher.Dispatch: panic handling %s: %v", env.Type, r)
			d.sendError(c, errInternal)
		}
	}()

	rt, ok := d.routes[env.Type]
	if !ok {
		d.sendError(c, errUnknownType)
		return
	}

	if rt.needsIdent && c.UserID() == "" {
		d.sendError(c, errNotIdentified)
		return
	}

	if err := rt.fn(ctx, c, env.Data); err != nil {
		ge := toGatewayError(err)
		if ge == errInternal {
			d.l.Errorf(ctx, "ws.Dispatcher.Dispatch: %s: %v", env.Type, err)
		}
		d.sendError(c, ge)
	}
}

func (d *Dispatcher) sendError(c *gateway.Conn, ge *pkgErrors.GatewayError) {
	c.SendEvent(models.Event{
		Type: models.EventError,
		Data: models.ErrorData{Code: ge.Code, Message: ge.Message},
	})
}

func (d *Dispatcher) identify(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p identifyPayload
	err := decode(data, &p)

	var ready models.ReadyData
	if err == nil {
		ready, err = d.deps.Session.Identify(ctx, c, p.Token)
	}
	if err != nil {
		if errors.Is(err, service.ErrAlreadyIdentified) {
			return err
		}

		// Any failed handshake ends the connection.
		d.l.Infof(ctx, "ws.Dispatcher.identify: %v", err)
		d.sendError(c, toGatewayError(err))
		d.deps.Registry.Terminate(ctx, c, gateway.ReasonAuthFailed)
		return nil
	}

	c.SendEvent(models.Event{Type: models.EventReady, Data: ready})
	return nil
}

func (d *Dispatcher) heartbeat(_ context.Context, c *gateway.Conn, _ json.RawMessage) error {
	c.SendEvent(models.Event{Type: models.EventHeartbeatAck})
	return nil
}

func (d *Dispatcher) subscribe(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p topicsPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	if err := d.deps.Topics.Subscribe(c, p.Topics...); err != nil {
		return err
	}
	c.KeepVoiceTopic(p.Topics...)

	d.sendSubscribed(c)
	return nil
}

func (d *Dispatcher) unsubscribe(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p topicsPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	d.deps.Topics.Unsubscribe(c, p.Topics...)
	d.sendSubscribed(c)
	return nil
}

func (d *Dispatcher) sendSubscribed(c *gateway.Conn) {
	c.SendEvent(models.Event{
		Type: models.EventSubscribed,
		Data: models.SubscribedData{Topics: d.deps.Topics.Topics(c)},
	})
}

func (d *Dispatcher) typing(op string) handlerFunc {
	return func(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
		var p channelPayload
		if err := decode(data, &p); err != nil {
			return err
		}

		u, _ := c.User()
		evt := models.Event{
			Type: op,
			Data: models.TypingData{ChannelID: p.ChannelID, UserID: u.ID, Username: u.Username},
		}
		return d.deps.Publisher.Publish(ctx, p.ChannelID, evt, c.ID())
	}
}

func (d *Dispatcher) presenceUpdate(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p presencePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	return d.deps.Presence.SetStatus(ctx, c.UserID(), p.Status)
}

func (d *Dispatcher) voiceJoin(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	return d.deps.Voice.Join(ctx, c, p.ChannelID)
}

func (d *Dispatcher) voiceLeave(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p voiceLeavePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	return d.deps.Voice.Leave(ctx, c, p.ChannelID)
}

func (d *Dispatcher) voiceSignal(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p voiceSignalPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	d.deps.Voice.Signal(ctx, c, p.TargetUserID, p.Payload)
	return nil
}

func (d *Dispatcher) voiceState(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p voiceStatePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	return d.deps.Voice.UpdateState(ctx, c, service.VoiceStateInput{
		ChannelID: p.ChannelID,
		Muted:     p.Muted,
		Deafened:  p.Deafened,
		Streaming: p.Streaming,
	})
}

// musicCommand always answers with MUSIC_RESULT, failed commands included.
func (d *Dispatcher) musicCommand(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	var p musicCommandPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	state, err := d.deps.Music.Execute(ctx, service.MusicCommandInput{
		ServerID:  p.ServerID,
		ChannelID: p.ChannelID,
		UserID:    c.UserID(),
		Command:   p.Command,
		Query:     p.Query,
	})

	result := models.MusicResultData{Command: p.Command, Success: err == nil, State: state}
	if err != nil {
		ge := toGatewayError(err)
		if ge == errInternal {
			d.l.Errorf(ctx, "ws.Dispatcher.musicCommand: %v", err)
		}
		result.Error = ge.Message
	}

	c.SendEvent(models.Event{Type: models.EventMusicResult, Data: result})
	return nil
}
