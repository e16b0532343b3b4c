package service

import (
	"context"
	"encoding/json"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

// Collaborators.

type IdentityVerifier interface {
	// Verify returns the user id carried by token.
	Verify(token string) (string, error)
}

type PersistenceStore interface {
	GetUserProfile(ctx context.Context, userID string) (models.UserProfile, error)
	GetServerIDs(ctx context.Context, userID string) ([]string, error)
	GetMusicConfig(ctx context.Context, serverID string) (models.MusicConfig, error)
	UpdateMusicConfig(ctx context.Context, cfg models.MusicConfig) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, evt models.Event, excludeConnID string) error
}

type ConnRegistry interface {
	Bind(c *gateway.Conn, u models.UserProfile) (*gateway.Conn, error)
	Terminate(ctx context.Context, c *gateway.Conn, reason string)
}

// UserRelay reaches a user's session on whichever instance holds it.
type UserRelay interface {
	SendToUser(ctx context.Context, userID string, evt models.Event) bool
	ClaimSession(ctx context.Context, c *gateway.Conn)
}

type TopicSubscriber interface {
	Subscribe(c *gateway.Conn, topics ...string) error
	Unsubscribe(c *gateway.Conn, topics ...string)
	IsSubscribed(c *gateway.Conn, topic string) bool
}

// ActivityProducer forwards gateway activity to downstream consumers.
type ActivityProducer interface {
	PublishPresenceChanged(ctx context.Context, userID string, status models.PresenceStatus) error
	PublishVoiceActivity(ctx context.Context, channelID, userID, action string) error
}

// Services.

type SessionService interface {
	Identify(ctx context.Context, c *gateway.Conn, token string) (models.ReadyData, error)
	// HandleDisconnect is installed as the registry disconnect hook.
	HandleDisconnect(ctx context.Context, c *gateway.Conn, ownedSession bool)
}

type PresenceService interface {
	SetStatus(ctx context.Context, userID string, status models.PresenceStatus) error
	Clear(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (models.PresenceRecord, error)
}

type VoiceService interface {
	Join(ctx context.Context, c *gateway.Conn, channelID string) error
	Leave(ctx context.Context, c *gateway.Conn, channelID string) error
	Signal(ctx context.Context, c *gateway.Conn, targetUserID string, payload json.RawMessage) bool
	UpdateState(ctx context.Context, c *gateway.Conn, in VoiceStateInput) error
	Participants(ctx context.Context, channelID string) ([]models.VoiceMemberState, error)
}

type MusicService interface {
	Execute(ctx context.Context, in MusicCommandInput) (*models.PlaybackState, error)
	Config(ctx context.Context, serverID string) (models.MusicConfig, error)
	UpdateConfig(ctx context.Context, cfg models.MusicConfig) error
	// Close stops the config cache janitor.
	Close()
}

type EventService interface {
	Publish(ctx context.Context, in PublishInput) error
	ForwardMessageEvent(ctx context.Context, in MessageEventInput) error
}
