package models

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceIdle    PresenceStatus = "idle"
	PresenceDND     PresenceStatus = "dnd"
	PresenceOffline PresenceStatus = "offline"
)

func (s PresenceStatus) IsValid() bool {
	switch s {
	case PresenceOnline, PresenceIdle, PresenceDND, PresenceOffline:
		return true
	}
	return false
}

type PresenceRecord struct {
	UserID    string         `json:"userId"`
	Status    PresenceStatus `json:"status"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type PresenceUpdateData struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}
