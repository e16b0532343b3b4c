package models

import "encoding/json"

// Inbound frame types.
const (
	OpIdentify       = "IDENTIFY"
	OpHeartbeat      = "HEARTBEAT"
	OpSubscribe      = "SUBSCRIBE"
	OpUnsubscribe    = "UNSUBSCRIBE"
	OpTypingStart    = "TYPING_START"
	OpTypingStop     = "TYPING_STOP"
	OpPresenceUpdate = "PRESENCE_UPDATE"
	OpVoiceJoin      = "VOICE_JOIN"
	OpVoiceLeave     = "VOICE_LEAVE"
	OpVoiceSignal    = "VOICE_SIGNAL"
	OpVoiceState     = "VOICE_STATE"
	OpMusicCommand   = "MUSIC_COMMAND"
)

// Outbound event types. TYPING_*, PRESENCE_UPDATE, VOICE_JOIN, VOICE_LEAVE and
// VOICE_SIGNAL reuse the inbound names.
const (
	EventReady             = "READY"
	EventError             = "ERROR"
	EventHeartbeatAck      = "HEARTBEAT_ACK"
	EventSubscribed        = "SUBSCRIBED"
	EventVoiceStateUpdate  = "VOICE_STATE_UPDATE"
	EventVoiceParticipants = "VOICE_PARTICIPANTS"
	EventMusicResult       = "MUSIC_RESULT"
	EventMusicQueueUpdate  = "MUSIC_QUEUE_UPDATE"
	EventMessageCreate     = "MESSAGE_CREATE"
	EventMessageUpdate     = "MESSAGE_UPDATE"
	EventMessageDelete     = "MESSAGE_DELETE"
)

// Envelope is a frame as received from a client.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is a frame sent to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReadyData struct {
	User              UserProfile `json:"user"`
	ConnectionID      string      `json:"connectionId"`
	HeartbeatInterval int64       `json:"heartbeatInterval"`
}

type SubscribedData struct {
	Topics []string `json:"topics"`
}

type TypingData struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}
