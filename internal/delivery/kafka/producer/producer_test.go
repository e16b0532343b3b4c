package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafka "github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

func TestPublishPresenceChanged(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e kafka.PresenceChangedEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.UserID != "u1" || e.Status != "idle" || e.Timestamp.IsZero() {
			return fmt.Errorf("unexpected event %+v", e)
		}
		return nil
	})

	p := NewProducer(sp, logger.InitializeTestZapLogger())
	require.NoError(t, p.PublishPresenceChanged(context.Background(), "u1", models.PresenceIdle))
	require.NoError(t, p.Close())
}

func TestPublishVoiceActivity(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e kafka.VoiceActivityEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.ChannelID != "v1" || e.UserID != "u1" || e.Action != "join" {
			return fmt.Errorf("unexpected event %+v", e)
		}
		return nil
	})

	p := NewProducer(sp, logger.InitializeTestZapLogger())
	require.NoError(t, p.PublishVoiceActivity(context.Background(), "v1", "u1", "join"))
	require.NoError(t, p.Close())
}

func TestPublishFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(sp, logger.InitializeTestZapLogger())
	err := p.PublishVoiceActivity(context.Background(), "v1", "u1", "leave")
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}
