package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

// Relay message kinds. An empty kind is a topic broadcast.
const (
	RelayKindTopic   = "topic"
	RelayKindUser    = "user"
	RelayKindSession = "session"
)

// RelayMessage carries a topic broadcast, a direct message to a user or a
// session claim between gateway instances.
type RelayMessage struct {
	Origin  string          `json:"origin"`
	Kind    string          `json:"kind,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	UserID  string          `json:"userId,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
	At      time.Time       `json:"at,omitzero"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	// Subscribe delivers relayed messages to handle until ctx is done.
	Subscribe(ctx context.Context, handle func(RelayMessage)) error
}

// Fanout publishes events to local subscribers and, when a relay is set, to
// the subscribers of every other instance.
type Fanout struct {
	reg    *Registry
	index  *TopicIndex
	relay  Relay
	origin string
	l      logger.Logger
}

// NewFanout builds a Fanout over reg and its topic index. relay may be nil
// for a single instance deployment.
func NewFanout(reg *Registry, relay Relay, origin string, l logger.Logger) *Fanout {
	return &Fanout{
		reg:    reg,
		index:  reg.topics,
		relay:  relay,
		origin: origin,
		l:      l,
	}
}

func (f *Fanout) Publish(ctx context.Context, topic string, evt models.Event, excludeConnID string) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}

	f.index.Publish(topic, data, excludeConnID)

	f.relayOut(ctx, RelayMessage{
		Kind:    RelayKindTopic,
		Topic:   topic,
		Exclude: excludeConnID,
		Data:    data,
	})
	return nil
}

// SendToUser delivers evt to the user's connection. A user connected to this
// instance gets it directly and the call reports whether it was queued.
// Otherwise the event is relayed to the other instances and the call reports
// whether the relay accepted it.
func (f *Fanout) SendToUser(ctx context.Context, userID string, evt models.Event) bool {
	if c, ok := f.reg.Lookup(userID); ok {
		return c.SendEvent(evt)
	}
	if f.relay == nil {
		return false
	}

	data, err := json.Marshal(evt)
	if err != nil {
		f.l.Warnf(ctx, "gateway.Fanout.SendToUser: marshal %s: %v", evt.Type, err)
		return false
	}
	return f.relayOut(ctx, RelayMessage{Kind: RelayKindUser, UserID: userID, Data: data})
}

// ClaimSession tells the other instances that c is now the user's session.
// Their connections for the same user that were identified earlier are
// closed without touching the user's presence.
func (f *Fanout) ClaimSession(ctx context.Context, c *Conn) {
	userID := c.UserID()
	if userID == "" {
		return
	}

	f.relayOut(ctx, RelayMessage{
		Kind:    RelayKindSession,
		UserID:  userID,
		Exclude: c.ID(),
		At:      c.BoundAt(),
	})
}

func (f *Fanout) relayOut(ctx context.Context, msg RelayMessage) bool {
	if f.relay == nil {
		return false
	}

	msg.Origin = f.origin
	if err := f.relay.Publish(ctx, msg); err != nil {
		f.l.Warnf(ctx, "gateway.Fanout.relayOut: %s message: %v", msg.Kind, err)
		return false
	}
	return true
}

// Run consumes relayed messages until ctx is done.
func (f *Fanout) Run(ctx context.Context) error {
	if f.relay == nil {
		<-ctx.Done()
		return nil
	}

	return f.relay.Subscribe(ctx, func(msg RelayMessage) {
		if msg.Origin == f.origin {
			return
		}

		switch msg.Kind {
		case RelayKindUser:
			if c, ok := f.reg.Lookup(msg.UserID); ok {
				c.Send(msg.Data)
			}
		case RelayKindSession:
			f.reg.Release(ctx, msg.UserID, msg.At, ReasonSessionReplaced)
		default:
			f.index.Publish(msg.Topic, msg.Data, msg.Exclude)
		}
	})
}
