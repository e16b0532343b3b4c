package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

const maxTitleRunes = 60

var platformHosts = map[string]models.Platform{
	"youtube.com":       models.PlatformYouTube,
	"m.youtube.com":     models.PlatformYouTube,
	"music.youtube.com": models.PlatformYouTube,
	"youtu.be":          models.PlatformYouTube,
	"soundcloud.com":    models.PlatformSoundCloud,
	"m.soundcloud.com":  models.PlatformSoundCloud,
	"open.spotify.com":  models.PlatformSpotify,
}

// ResolveTrack turns a PLAY query into a track. Links to a known platform are
// checked against cfg; anything else is kept as a search term.
func ResolveTrack(query string, cfg models.MusicConfig, requestedBy string, now time.Time) (models.Track, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.Track{}, ErrEmptyQuery
	}

	track := models.Track{
		Title:       truncateRunes(q, maxTitleRunes),
		Platform:    models.PlatformSearch,
		RequestedBy: requestedBy,
		AddedAt:     now,
	}

	if p, ok := matchPlatform(q); ok {
		if !cfg.Allows(p) {
			return models.Track{}, fmt.Errorf("%w: %s", ErrPlatformNotAllowed, p)
		}
		track.Platform = p
		track.URL = q
	}

	return track, nil
}

func matchPlatform(q string) (models.Platform, bool) {
	u, err := url.Parse(q)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	p, ok := platformHosts[host]
	return p, ok
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
