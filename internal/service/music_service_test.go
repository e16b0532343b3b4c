package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

func runMusic(t *testing.T, env *testEnv, serverID string, cmd models.MusicCommand, query string) (*models.PlaybackState, error) {
	t.Helper()
	return env.music.Execute(context.Background(), MusicCommandInput{
		ServerID:  serverID,
		ChannelID: "m1",
		UserID:    "u1",
		Command:   cmd,
		Query:     query,
	})
}

func mustMusic(t *testing.T, env *testEnv, cmd models.MusicCommand, query string) *models.PlaybackState {
	t.Helper()
	state, err := runMusic(t, env, "s1", cmd, query)
	require.NoError(t, err)
	return state
}

func titles(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.Title
	}
	return out
}

func TestMusicPlayOnEmptyStarts(t *testing.T) {
	env := newTestEnv(t)
	env.store.addUser("u9")
	listener := env.connect(t, "u9")
	require.NoError(t, env.index.Subscribe(listener, "m1"))

	state := mustMusic(t, env, models.MusicPlay, "lofi beats")

	require.NotNil(t, state.Current)
	assert.Equal(t, "lofi beats", state.Current.Track.Title)
	assert.Equal(t, models.PlatformSearch, state.Current.Track.Platform)
	assert.Equal(t, "u1", state.Current.Track.RequestedBy)
	assert.Empty(t, state.Queue)
	assert.True(t, state.Status.Playing)
	assert.False(t, state.Status.Paused)

	evts := drain(t, listener)
	require.Len(t, evts, 1)
	assert.Equal(t, models.EventMusicQueueUpdate, evts[0].Type)

	var broadcast models.PlaybackState
	evts[0].decode(t, &broadcast)
	assert.Equal(t, "m1", broadcast.ChannelID)
	require.NotNil(t, broadcast.Current)
	assert.Equal(t, "lofi beats", broadcast.Current.Track.Title)
}

func TestMusicPlayQueuesWhilePlaying(t *testing.T) {
	env := newTestEnv(t)

	mustMusic(t, env, models.MusicPlay, "first")
	state := mustMusic(t, env, models.MusicPlay, "https://www.youtube.com/watch?v=abc")

	assert.Equal(t, "first", state.Current.Track.Title)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, models.PlatformYouTube, state.Queue[0].Platform)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", state.Queue[0].URL)
}

func TestMusicSkipAndPrevious(t *testing.T) {
	env := newTestEnv(t)

	mustMusic(t, env, models.MusicPlay, "a")
	mustMusic(t, env, models.MusicPlay, "b")

	state := mustMusic(t, env, models.MusicSkip, "")
	require.NotNil(t, state.Current)
	assert.Equal(t, "b", state.Current.Track.Title)
	assert.Empty(t, state.Queue)
	assert.True(t, state.Status.Playing)

	state = mustMusic(t, env, models.MusicPrevious, "")
	require.NotNil(t, state.Current)
	assert.Equal(t, "a", state.Current.Track.Title)
	assert.Equal(t, []string{"b"}, titles(state.Queue))
}

func TestMusicSkipLastTrackStops(t *testing.T) {
	env := newTestEnv(t)

	mustMusic(t, env, models.MusicPlay, "a")
	state := mustMusic(t, env, models.MusicSkip, "")

	assert.Nil(t, state.Current)
	assert.False(t, state.Status.Playing)
	assert.Empty(t, state.Queue)
}

func TestMusicPreviousWithoutHistory(t *testing.T) {
	env := newTestEnv(t)
	env.store.addUser("u9")
	listener := env.connect(t, "u9")

	mustMusic(t, env, models.MusicPlay, "a")
	require.NoError(t, env.index.Subscribe(listener, "m1"))

	_, err := runMusic(t, env, "s1", models.MusicPrevious, "")
	require.ErrorIs(t, err, ErrNoPreviousTrack)
	assert.Equal(t, KindNotFound, Classify(err))

	assert.Empty(t, drain(t, listener))
	state := mustMusic(t, env, models.MusicNowPlaying, "")
	assert.Equal(t, "a", state.Current.Track.Title)
}

func TestMusicShuffleKeepsTracks(t *testing.T) {
	env := newTestEnv(t)

	mustMusic(t, env, models.MusicPlay, "current")
	var want []string
	for i := range 8 {
		q := fmt.Sprintf("track %d", i)
		want = append(want, q)
		mustMusic(t, env, models.MusicPlay, q)
	}

	state := mustMusic(t, env, models.MusicShuffle, "")
	assert.ElementsMatch(t, want, titles(state.Queue))
	assert.Equal(t, "current", state.Current.Track.Title)
}

func TestMusicLoopCycles(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, models.LoopTrack, mustMusic(t, env, models.MusicLoop, "").Status.LoopMode)
	assert.Equal(t, models.LoopQueue, mustMusic(t, env, models.MusicLoop, "").Status.LoopMode)
	assert.Equal(t, models.LoopOff, mustMusic(t, env, models.MusicLoop, "").Status.LoopMode)
}

func TestMusicSkipIgnoresLoopMode(t *testing.T) {
	for _, loops := range []int{1, 2} {
		t.Run(fmt.Sprintf("loop x%d", loops), func(t *testing.T) {
			env := newTestEnv(t)

			mustMusic(t, env, models.MusicPlay, "a")
			mustMusic(t, env, models.MusicPlay, "b")
			for range loops {
				mustMusic(t, env, models.MusicLoop, "")
			}

			state := mustMusic(t, env, models.MusicSkip, "")
			assert.Equal(t, "b", state.Current.Track.Title)
			assert.Empty(t, state.Queue)

			state = mustMusic(t, env, models.MusicPrevious, "")
			assert.Equal(t, "a", state.Current.Track.Title)
		})
	}
}

func TestMusicPause(t *testing.T) {
	env := newTestEnv(t)

	_, err := runMusic(t, env, "s1", models.MusicPause, "")
	require.ErrorIs(t, err, ErrNothingPlaying)

	mustMusic(t, env, models.MusicPlay, "a")

	state := mustMusic(t, env, models.MusicPause, "")
	assert.True(t, state.Status.Paused)
	assert.False(t, state.Status.Playing)

	state = mustMusic(t, env, models.MusicPause, "")
	assert.False(t, state.Status.Paused)
	assert.True(t, state.Status.Playing)
}

func TestMusicStopAndClear(t *testing.T) {
	env := newTestEnv(t)

	mustMusic(t, env, models.MusicPlay, "a")
	mustMusic(t, env, models.MusicPlay, "b")
	mustMusic(t, env, models.MusicPlay, "c")

	state := mustMusic(t, env, models.MusicQueueClear, "")
	assert.Empty(t, state.Queue)
	assert.Equal(t, "a", state.Current.Track.Title)

	mustMusic(t, env, models.MusicPlay, "d")
	state = mustMusic(t, env, models.MusicStop, "")
	assert.Nil(t, state.Current)
	assert.Empty(t, state.Queue)
	assert.False(t, state.Status.Playing)

	_, err := runMusic(t, env, "s1", models.MusicPrevious, "")
	require.ErrorIs(t, err, ErrNoPreviousTrack)
}

func TestMusicAutoplayToggles(t *testing.T) {
	env := newTestEnv(t)

	assert.True(t, mustMusic(t, env, models.MusicAutoplay, "").Status.Autoplay)
	assert.False(t, mustMusic(t, env, models.MusicAutoplay, "").Status.Autoplay)
}

func TestMusicReadOnlyDoesNotBroadcast(t *testing.T) {
	env := newTestEnv(t)
	env.store.addUser("u9")
	listener := env.connect(t, "u9")

	mustMusic(t, env, models.MusicPlay, "a")
	mustMusic(t, env, models.MusicPlay, "b")
	require.NoError(t, env.index.Subscribe(listener, "m1"))

	state := mustMusic(t, env, models.MusicQueueList, "")
	assert.Equal(t, []string{"b"}, titles(state.Queue))

	state = mustMusic(t, env, "now_playing", "")
	assert.Equal(t, "a", state.Current.Track.Title)

	assert.Empty(t, drain(t, listener))
}

func TestMusicRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.store.UpdateMusicConfig(ctx, models.MusicConfig{ServerID: "off", Enabled: false}))
	require.NoError(t, env.store.UpdateMusicConfig(ctx, models.MusicConfig{
		ServerID:         "yt",
		Enabled:          true,
		AllowedPlatforms: []models.Platform{models.PlatformYouTube},
		MaxQueueSize:     1,
	}))

	t.Run("disabled", func(t *testing.T) {
		_, err := runMusic(t, env, "off", models.MusicPlay, "a")
		require.ErrorIs(t, err, ErrMusicDisabled)
		assert.Equal(t, KindValidation, Classify(err))
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := runMusic(t, env, "s1", "REWIND", "")
		require.ErrorIs(t, err, ErrUnknownCommand)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := runMusic(t, env, "s1", models.MusicPlay, "   ")
		require.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("platform not allowed", func(t *testing.T) {
		_, err := runMusic(t, env, "yt", models.MusicPlay, "https://open.spotify.com/track/xyz")
		require.ErrorIs(t, err, ErrPlatformNotAllowed)

		state, err := runMusic(t, env, "yt", models.MusicQueueList, "")
		require.NoError(t, err)
		assert.Nil(t, state.Current)
	})

	t.Run("queue full", func(t *testing.T) {
		_, err := runMusic(t, env, "yt", models.MusicPlay, "https://youtu.be/1")
		require.NoError(t, err)
		_, err = runMusic(t, env, "yt", models.MusicPlay, "https://youtu.be/2")
		require.NoError(t, err)

		_, err = runMusic(t, env, "yt", models.MusicPlay, "https://youtu.be/3")
		require.ErrorIs(t, err, ErrQueueFull)
	})
}

func TestMusicHistoryIsBounded(t *testing.T) {
	env := newTestEnv(t)

	for i := range 55 {
		mustMusic(t, env, models.MusicPlay, fmt.Sprintf("t%d", i))
		mustMusic(t, env, models.MusicSkip, "")
	}

	n := 0
	for {
		if _, err := runMusic(t, env, "s1", models.MusicPrevious, ""); err != nil {
			require.ErrorIs(t, err, ErrNoPreviousTrack)
			break
		}
		n++
	}
	assert.Equal(t, 50, n)
}

func TestMusicConfigCaching(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cfg, err := env.music.Config(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMusicConfig("s1"), cfg)

	_, err = env.music.Config(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.musicReads)

	update := models.MusicConfig{ServerID: "s1", Enabled: false, MaxQueueSize: 10}
	require.NoError(t, env.music.UpdateConfig(ctx, update))

	cfg, err = env.music.Config(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, env.store.musicReads)
}

func TestMusicCloseStopsConfigCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	assert.NotPanics(t, func() {
		env.music.Close()
		env.music.Close()
	})

	cfg, err := env.music.Config(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMusicConfig("s1"), cfg)
}

func TestMusicUpdateConfigValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.music.UpdateConfig(ctx, models.MusicConfig{ServerID: "s1", MaxQueueSize: -1})
	require.ErrorIs(t, err, ErrInvalidPayload)

	err = env.music.UpdateConfig(ctx, models.MusicConfig{
		ServerID:         "s1",
		AllowedPlatforms: []models.Platform{"napster"},
	})
	require.ErrorIs(t, err, ErrInvalidPayload)

	err = env.music.UpdateConfig(ctx, models.MusicConfig{Enabled: true})
	require.ErrorIs(t, err, ErrInvalidPayload)
}
