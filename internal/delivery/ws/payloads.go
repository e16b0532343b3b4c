package ws

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
)

const maxTopicLength = 256

type payload interface {
	Validate() error
}

// decode unmarshals data into p and validates it. Both failures are reported
// as service.ErrInvalidPayload.
func decode(data json.RawMessage, p payload) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	return nil
}

type identifyPayload struct {
	Token string `json:"token"`
}

func (p identifyPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
	)
}

type topicsPayload struct {
	Topics []string `json:"topics"`
}

func (p topicsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Topics, validation.Required, validation.Each(validation.Required, validation.Length(1, maxTopicLength))),
	)
}

type channelPayload struct {
	ChannelID string `json:"channelId"`
}

func (p channelPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ChannelID, validation.Required),
	)
}

type voiceLeavePayload struct {
	ChannelID string `json:"channelId"`
}

func (p voiceLeavePayload) Validate() error { return nil }

type presencePayload struct {
	Status models.PresenceStatus `json:"status"`
}

func (p presencePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Status, validation.Required, validation.In(
			models.PresenceOnline,
			models.PresenceIdle,
			models.PresenceDND,
			models.PresenceOffline,
		)),
	)
}

type voiceSignalPayload struct {
	TargetUserID string          `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload"`
}

func (p voiceSignalPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TargetUserID, validation.Required),
		validation.Field(&p.Payload, validation.Required),
	)
}

type voiceStatePayload struct {
	ChannelID string `json:"channelId"`
	Muted     *bool  `json:"muted"`
	Deafened  *bool  `json:"deafened"`
	Streaming *bool  `json:"streaming"`
}

func (p voiceStatePayload) Validate() error {
	if p.Muted == nil && p.Deafened == nil && p.Streaming == nil {
		return fmt.Errorf("one of muted, deafened or streaming is required")
	}
	return nil
}

type musicCommandPayload struct {
	ServerID  string              `json:"serverId"`
	ChannelID string              `json:"channelId"`
	Command   models.MusicCommand `json:"command"`
	Query     string              `json:"query"`
}

func (p musicCommandPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ServerID, validation.Required),
		validation.Field(&p.ChannelID, validation.Required),
		validation.Field(&p.Command, validation.Required),
	)
}
