package models

import "time"

type Platform string

const (
	PlatformYouTube    Platform = "youtube"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformSpotify    Platform = "spotify"
	// PlatformSearch marks a free text query that still has to be resolved by a player.
	PlatformSearch Platform = "search"
)

var AllPlatforms = []Platform{PlatformYouTube, PlatformSoundCloud, PlatformSpotify}

type LoopMode string

const (
	LoopOff   LoopMode = "off"
	LoopTrack LoopMode = "track"
	LoopQueue LoopMode = "queue"
)

// Next returns the mode after m in the off, track, queue cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopOff, "":
		return LoopTrack
	case LoopTrack:
		return LoopQueue
	default:
		return LoopOff
	}
}

type MusicCommand string

const (
	MusicPlay       MusicCommand = "PLAY"
	MusicPause      MusicCommand = "PAUSE"
	MusicStop       MusicCommand = "STOP"
	MusicSkip       MusicCommand = "SKIP"
	MusicPrevious   MusicCommand = "PREVIOUS"
	MusicShuffle    MusicCommand = "SHUFFLE"
	MusicLoop       MusicCommand = "LOOP"
	MusicAutoplay   MusicCommand = "AUTOPLAY"
	MusicQueueList  MusicCommand = "QUEUE_LIST"
	MusicNowPlaying MusicCommand = "NOW_PLAYING"
	MusicQueueClear MusicCommand = "QUEUE_CLEAR"
)

// IsReadOnly reports whether the command leaves the playback state untouched.
func (c MusicCommand) IsReadOnly() bool {
	return c == MusicQueueList || c == MusicNowPlaying
}

type Track struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Duration    int64     `json:"duration"`
	Platform    Platform  `json:"platform"`
	RequestedBy string    `json:"requestedBy"`
	AddedAt     time.Time `json:"addedAt"`
}

type CurrentTrack struct {
	Track     Track     `json:"track"`
	StartedAt time.Time `json:"startedAt"`
}

type PlaybackStatus struct {
	Playing  bool     `json:"playing"`
	Paused   bool     `json:"paused"`
	LoopMode LoopMode `json:"loopMode"`
	Autoplay bool     `json:"autoplay"`
}

// PlaybackState is a full snapshot of one channel's queue.
type PlaybackState struct {
	ChannelID string         `json:"channelId"`
	Queue     []Track        `json:"queue"`
	Current   *CurrentTrack  `json:"current"`
	Status    PlaybackStatus `json:"status"`
}

type MusicConfig struct {
	ServerID         string     `json:"serverId"`
	Enabled          bool       `json:"enabled"`
	AllowedPlatforms []Platform `json:"allowedPlatforms"`
	MaxQueueSize     int        `json:"maxQueueSize"`
}

func DefaultMusicConfig(serverID string) MusicConfig {
	return MusicConfig{
		ServerID:         serverID,
		Enabled:          true,
		AllowedPlatforms: AllPlatforms,
		MaxQueueSize:     100,
	}
}

func (c MusicConfig) Allows(p Platform) bool {
	if p == PlatformSearch {
		return true
	}
	for _, a := range c.AllowedPlatforms {
		if a == p {
			return true
		}
	}
	return false
}

type MusicResultData struct {
	Command MusicCommand   `json:"command"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	State   *PlaybackState `json:"state,omitempty"`
}
