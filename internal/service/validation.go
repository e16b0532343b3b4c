package service

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

var messageEventTypes = []any{
	models.EventMessageCreate,
	models.EventMessageUpdate,
	models.EventMessageDelete,
}

func knownPlatforms() []any {
	out := make([]any, len(models.AllPlatforms))
	for i, p := range models.AllPlatforms {
		out[i] = p
	}
	return out
}

func validateMusicConfig(cfg models.MusicConfig) error {
	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.ServerID, validation.Required),
		validation.Field(&cfg.MaxQueueSize, validation.Min(0), validation.Max(10000)),
		validation.Field(&cfg.AllowedPlatforms, validation.Each(validation.In(knownPlatforms()...))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func validatePublishInput(in PublishInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Topic, validation.Required, validation.Length(1, 256)),
		validation.Field(&in.Type, validation.Required, validation.Length(1, 64)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}

func validateMessageEvent(in MessageEventInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Type, validation.Required, validation.In(messageEventTypes...)),
		validation.Field(&in.ChannelID, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}
