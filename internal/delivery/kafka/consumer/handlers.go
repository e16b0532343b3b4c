package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
)

func (c *Consumer) HandleMessageCreated(ctx context.Context, message *sarama.ConsumerMessage) error {
	return c.forward(ctx, models.EventMessageCreate, message)
}

func (c *Consumer) HandleMessageUpdated(ctx context.Context, message *sarama.ConsumerMessage) error {
	return c.forward(ctx, models.EventMessageUpdate, message)
}

func (c *Consumer) HandleMessageDeleted(ctx context.Context, message *sarama.ConsumerMessage) error {
	return c.forward(ctx, models.EventMessageDelete, message)
}

func (c *Consumer) forward(ctx context.Context, eventType string, message *sarama.ConsumerMessage) error {
	var e kafka.MessageEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.forward: %s: %v", eventType, err)
		return err
	}

	if err := c.evSvc.ForwardMessageEvent(ctx, service.MessageEventInput{
		Type:      eventType,
		ChannelID: e.ChannelID,
		Message:   e.Message,
	}); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.forward: %s: %v", eventType, err)
		return err
	}

	return nil
}
