package kafka

import (
	"encoding/json"
	"time"
)

// Events consumed BY the gateway

// MessageEvent is the payload of the message.* topics. Message is forwarded
// to clients untouched.
type MessageEvent struct {
	ChannelID string          `json:"channel_id"`
	Message   json.RawMessage `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// Events published BY the gateway

type PresenceChangedEvent struct {
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type VoiceActivityEvent struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"` // join, leave
	Timestamp time.Time `json:"timestamp"`
}
