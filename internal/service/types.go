package service

import (
	"encoding/json"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

const (
	VoiceActionJoin  = "join"
	VoiceActionLeave = "leave"
)

func ServerTopic(serverID string) string {
	return "server:" + serverID
}

type VoiceStateInput struct {
	ChannelID string
	Muted     *bool
	Deafened  *bool
	Streaming *bool
}

type MusicCommandInput struct {
	ServerID  string
	ChannelID string
	UserID    string
	Command   models.MusicCommand
	Query     string
}

type PublishInput struct {
	Topic string
	Type  string
	Data  json.RawMessage
}

type MessageEventInput struct {
	Type      string
	ChannelID string
	Message   json.RawMessage
}
