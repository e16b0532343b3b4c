package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

// eventService is the entry point for events produced outside the gateway,
// such as message lifecycle events from the persistence tier.
type eventService struct {
	pub Publisher
	l   logger.Logger
}

func NewEventService(pub Publisher, l logger.Logger) EventService {
	return &eventService{pub: pub, l: l}
}

func (s *eventService) Publish(ctx context.Context, in PublishInput) error {
	if err := validatePublishInput(in); err != nil {
		return err
	}

	evt := models.Event{Type: in.Type}
	if len(in.Data) > 0 {
		evt.Data = in.Data
	}
	return s.pub.Publish(ctx, in.Topic, evt, "")
}

func (s *eventService) ForwardMessageEvent(ctx context.Context, in MessageEventInput) error {
	if err := validateMessageEvent(in); err != nil {
		return err
	}

	return s.Publish(ctx, PublishInput{
		Topic: in.ChannelID,
		Type:  in.Type,
		Data:  in.Message,
	})
}
