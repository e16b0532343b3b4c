package ws

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Identify(ctx context.Context, c *gateway.Conn, token string) (models.ReadyData, error) {
	args := m.Called(ctx, c, token)
	return args.Get(0).(models.ReadyData), args.Error(1)
}

func (m *mockSession) HandleDisconnect(ctx context.Context, c *gateway.Conn, ownedSession bool) {
	m.Called(ctx, c, ownedSession)
}

type mockPresence struct {
	mock.Mock
}

func (m *mockPresence) SetStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	return m.Called(ctx, userID, status).Error(0)
}

func (m *mockPresence) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPresence) Get(ctx context.Context, userID string) (models.PresenceRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.PresenceRecord), args.Error(1)
}

type mockVoice struct {
	mock.Mock
}

func (m *mockVoice) Join(ctx context.Context, c *gateway.Conn, channelID string) error {
	return m.Called(ctx, c, channelID).Error(0)
}

func (m *mockVoice) Leave(ctx context.Context, c *gateway.Conn, channelID string) error {
	return m.Called(ctx, c, channelID).Error(0)
}

func (m *mockVoice) Signal(ctx context.Context, c *gateway.Conn, targetUserID string, payload json.RawMessage) bool {
	return m.Called(ctx, c, targetUserID, payload).Bool(0)
}

func (m *mockVoice) UpdateState(ctx context.Context, c *gateway.Conn, in service.VoiceStateInput) error {
	return m.Called(ctx, c, in).Error(0)
}

func (m *mockVoice) Participants(ctx context.Context, channelID string) ([]models.VoiceMemberState, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).([]models.VoiceMemberState), args.Error(1)
}

type mockMusic struct {
	mock.Mock
}

func (m *mockMusic) Execute(ctx context.Context, in service.MusicCommandInput) (*models.PlaybackState, error) {
	args := m.Called(ctx, in)
	state, _ := args.Get(0).(*models.PlaybackState)
	return state, args.Error(1)
}

func (m *mockMusic) Config(ctx context.Context, serverID string) (models.MusicConfig, error) {
	args := m.Called(ctx, serverID)
	return args.Get(0).(models.MusicConfig), args.Error(1)
}

func (m *mockMusic) UpdateConfig(ctx context.Context, cfg models.MusicConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *mockMusic) Close() {}
