package kafka

// Consumed from the persistence tier.
const (
	TopicMessageCreated = "message.created"
	TopicMessageUpdated = "message.updated"
	TopicMessageDeleted = "message.deleted"
)

// Produced by the gateway.
const (
	TopicPresenceChanged = "presence.changed"
	TopicVoiceActivity   = "voice.activity"
)
