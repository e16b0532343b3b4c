package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	kafka "github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/util"
)

// Producer publishes gateway activity. It satisfies service.ActivityProducer.
type Producer interface {
	PublishPresenceChanged(ctx context.Context, userID string, status models.PresenceStatus) error
	PublishVoiceActivity(ctx context.Context, channelID, userID, action string) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishPresenceChanged(ctx context.Context, userID string, status models.PresenceStatus) error {
	return p.send(ctx, kafka.TopicPresenceChanged, userID, kafka.PresenceChangedEvent{
		UserID:    userID,
		Status:    string(status),
		Timestamp: time.Now(),
	})
}

func (p *implProducer) PublishVoiceActivity(ctx context.Context, channelID, userID, action string) error {
	return p.send(ctx, kafka.TopicVoiceActivity, channelID, kafka.VoiceActivityEvent{
		ChannelID: channelID,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now(),
	})
}

// send keys the message so events of one user or channel stay ordered.
func (p *implProducer) send(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.send: %s: %v", topic, err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(util.TimeToISO8601Str(time.Now())),
			},
		},
	}

	if _, _, err := p.prod.SendMessage(msg); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.send: %s: %v", topic, err)
		return err
	}
	return nil
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}
