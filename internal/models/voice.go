package models

import (
	"encoding/json"
	"time"
)

// VoiceMemberState is the per-member call state of a voice channel.
type VoiceMemberState struct {
	ChannelID   string    `json:"channelId"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Muted       bool      `json:"muted"`
	Deafened    bool      `json:"deafened"`
	Streaming   bool      `json:"streaming"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type VoiceLeaveData struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
}

type VoiceParticipantsData struct {
	ChannelID    string             `json:"channelId"`
	Participants []VoiceMemberState `json:"participants"`
}

type VoiceSignalData struct {
	FromUserID string          `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}
