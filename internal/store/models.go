package store

import (
	"strings"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

// The tables are owned by the CRUD tier; the gateway only reads profiles and
// memberships and reads/writes music settings.

type User struct {
	ID          string `gorm:"primaryKey;size:36"`
	Username    string `gorm:"size:32;not null;uniqueIndex"`
	DisplayName string `gorm:"size:64"`
	AvatarURL   string `gorm:"size:512"`
	CreatedAt   time.Time
}

type ServerMember struct {
	ServerID string `gorm:"primaryKey;size:36"`
	UserID   string `gorm:"primaryKey;size:36;index"`
	JoinedAt time.Time
}

type MusicConfig struct {
	ServerID         string `gorm:"primaryKey;size:36"`
	Enabled          bool   `gorm:"not null"`
	AllowedPlatforms string `gorm:"size:255;not null"`
	MaxQueueSize     int    `gorm:"not null"`
	UpdatedAt        time.Time
}

func (User) TableName() string         { return "users" }
func (ServerMember) TableName() string { return "server_members" }
func (MusicConfig) TableName() string  { return "music_configs" }

func (u User) toProfile() models.UserProfile {
	return models.UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func (m MusicConfig) toModel() models.MusicConfig {
	var platforms []models.Platform
	for _, p := range strings.Split(m.AllowedPlatforms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, models.Platform(p))
		}
	}
	return models.MusicConfig{
		ServerID:         m.ServerID,
		Enabled:          m.Enabled,
		AllowedPlatforms: platforms,
		MaxQueueSize:     m.MaxQueueSize,
	}
}

func fromMusicConfig(cfg models.MusicConfig) MusicConfig {
	platforms := make([]string, len(cfg.AllowedPlatforms))
	for i, p := range cfg.AllowedPlatforms {
		platforms[i] = string(p)
	}
	return MusicConfig{
		ServerID:         cfg.ServerID,
		Enabled:          cfg.Enabled,
		AllowedPlatforms: strings.Join(platforms, ","),
		MaxQueueSize:     cfg.MaxQueueSize,
	}
}
