package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

func TestResolveTrack(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	all := models.DefaultMusicConfig("s1")

	tests := []struct {
		name     string
		query    string
		platform models.Platform
		url      string
	}{
		{"youtube", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", models.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"youtube short", "https://youtu.be/dQw4w9WgXcQ", models.PlatformYouTube, "https://youtu.be/dQw4w9WgXcQ"},
		{"youtube music", "https://music.youtube.com/watch?v=1", models.PlatformYouTube, "https://music.youtube.com/watch?v=1"},
		{"soundcloud", "https://soundcloud.com/artist/song", models.PlatformSoundCloud, "https://soundcloud.com/artist/song"},
		{"spotify", "https://open.spotify.com/track/abc", models.PlatformSpotify, "https://open.spotify.com/track/abc"},
		{"search", "  never gonna give you up ", models.PlatformSearch, ""},
		{"unknown host", "https://example.com/song.mp3", models.PlatformSearch, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := ResolveTrack(tt.query, all, "u1", now)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, track.Platform)
			assert.Equal(t, tt.url, track.URL)
			assert.Equal(t, "u1", track.RequestedBy)
			assert.Equal(t, now, track.AddedAt)
		})
	}
}

func TestResolveTrackTitleIsTruncated(t *testing.T) {
	query := strings.Repeat("é", 80)

	track, err := ResolveTrack(query, models.DefaultMusicConfig("s1"), "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 60, len([]rune(track.Title)))
}

func TestResolveTrackRespectsConfig(t *testing.T) {
	cfg := models.MusicConfig{
		ServerID:         "s1",
		Enabled:          true,
		AllowedPlatforms: []models.Platform{models.PlatformSoundCloud},
	}

	_, err := ResolveTrack("https://youtu.be/x", cfg, "u1", time.Now())
	require.ErrorIs(t, err, ErrPlatformNotAllowed)

	track, err := ResolveTrack("some song", cfg, "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PlatformSearch, track.Platform)

	_, err = ResolveTrack("", cfg, "u1", time.Now())
	require.ErrorIs(t, err, ErrEmptyQuery)
}
