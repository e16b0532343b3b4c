package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/store"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

const (
	channelLockTTL  = 5 * time.Second
	channelLockWait = 2 * time.Second
)

type MusicOptions struct {
	StateTTL       time.Duration
	HistorySize    int
	ConfigCacheTTL time.Duration
}

type musicService struct {
	repo    repository.MusicRepository
	locks   repository.LockRepository
	store   PersistenceStore
	pub     Publisher
	configs *cache.TTLCache[string, models.MusicConfig]
	opts    MusicOptions
	now     func() time.Time
	l       logger.Logger
}

func NewMusicService(
	repo repository.MusicRepository,
	locks repository.LockRepository,
	st PersistenceStore,
	pub Publisher,
	opts MusicOptions,
	l logger.Logger,
) MusicService {
	return &musicService{
		repo:    repo,
		locks:   locks,
		store:   st,
		pub:     pub,
		configs: cache.NewTTLCache[string, models.MusicConfig](opts.ConfigCacheTTL, time.Minute),
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		l:       l,
	}
}

func (s *musicService) Close() {
	s.configs.Close()
}

func (s *musicService) lockKey(channelID string) string {
	return fmt.Sprintf("music:%s:lock", channelID)
}

// Execute runs one playback command. Read-only commands return a snapshot;
// mutating commands are serialised per channel, refresh the state TTL and
// broadcast MUSIC_QUEUE_UPDATE to the channel.
func (s *musicService) Execute(ctx context.Context, in MusicCommandInput) (*models.PlaybackState, error) {
	cfg, err := s.Config(ctx, in.ServerID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, ErrMusicDisabled
	}

	cmd := models.MusicCommand(strings.ToUpper(strings.TrimSpace(string(in.Command))))
	if cmd.IsReadOnly() {
		return s.snapshot(ctx, in.ChannelID)
	}

	apply, ok := s.mutation(cmd)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, in.Command)
	}

	token, err := s.locks.Acquire(ctx, s.lockKey(in.ChannelID), channelLockTTL, channelLockWait)
	if err != nil {
		if errors.Is(err, repository.ErrLockNotAcquired) {
			return nil, ErrChannelBusy
		}
		return nil, err
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), s.lockKey(in.ChannelID), token); err != nil {
			s.l.Warnf(ctx, "service.musicService.Execute: release lock: %v", err)
		}
	}()

	if err := apply(ctx, in, cfg); err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, in.ChannelID, s.opts.StateTTL); err != nil {
		return nil, err
	}

	state, err := s.snapshot(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}

	evt := models.Event{Type: models.EventMusicQueueUpdate, Data: state}
	if err := s.pub.Publish(ctx, in.ChannelID, evt, ""); err != nil {
		s.l.Warnf(ctx, "service.musicService.Execute: %v", err)
	}

	return state, nil
}

type mutationFunc func(ctx context.Context, in MusicCommandInput, cfg models.MusicConfig) error

func (s *musicService) mutation(cmd models.MusicCommand) (mutationFunc, bool) {
	switch cmd {
	case models.MusicPlay:
		return s.play, true
	case models.MusicPause:
		return s.pause, true
	case models.MusicStop:
		return s.stop, true
	case models.MusicSkip:
		return s.skip, true
	case models.MusicPrevious:
		return s.previous, true
	case models.MusicShuffle:
		return s.shuffle, true
	case models.MusicLoop:
		return s.loop, true
	case models.MusicAutoplay:
		return s.autoplay, true
	case models.MusicQueueClear:
		return s.clearQueue, true
	default:
		return nil, false
	}
}

func (s *musicService) play(ctx context.Context, in MusicCommandInput, cfg models.MusicConfig) error {
	track, err := ResolveTrack(in.Query, cfg, in.UserID, s.now())
	if err != nil {
		return err
	}

	if cfg.MaxQueueSize > 0 {
		n, err := s.repo.QueueLen(ctx, in.ChannelID)
		if err != nil {
			return err
		}
		if n >= int64(cfg.MaxQueueSize) {
			return ErrQueueFull
		}
	}

	if err := s.repo.PushQueue(ctx, in.ChannelID, track); err != nil {
		return err
	}

	cur, err := s.repo.GetCurrent(ctx, in.ChannelID)
	if err != nil || cur != nil {
		return err
	}

	// Stopped: start the head right away.
	return s.advance(ctx, in.ChannelID)
}

// advance loads the queue head as the current track, or stops when the queue is empty.
func (s *musicService) advance(ctx context.Context, channelID string) error {
	status, err := s.repo.GetStatus(ctx, channelID)
	if err != nil {
		return err
	}

	next, err := s.repo.PopQueue(ctx, channelID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.repo.SetCurrent(ctx, channelID, nil); err != nil {
			return err
		}
		status.Playing, status.Paused = false, false
	case err != nil:
		return err
	default:
		if err := s.repo.SetCurrent(ctx, channelID, &models.CurrentTrack{Track: *next, StartedAt: s.now()}); err != nil {
			return err
		}
		status.Playing, status.Paused = true, false
	}

	return s.repo.SetStatus(ctx, channelID, status)
}

func (s *musicService) pause(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	cur, err := s.repo.GetCurrent(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	if cur == nil {
		return ErrNothingPlaying
	}

	status, err := s.repo.GetStatus(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	status.Paused = !status.Paused
	status.Playing = !status.Paused
	return s.repo.SetStatus(ctx, in.ChannelID, status)
}

func (s *musicService) stop(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	return s.repo.Reset(ctx, in.ChannelID)
}

// skip ignores loopMode: looping is carried as status for the players.
func (s *musicService) skip(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	cur, err := s.repo.GetCurrent(ctx, in.ChannelID)
	if err != nil {
		return err
	}

	if cur != nil {
		if err := s.repo.PushHistory(ctx, in.ChannelID, cur.Track, s.opts.HistorySize); err != nil {
			return err
		}
	}

	return s.advance(ctx, in.ChannelID)
}

func (s *musicService) previous(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	prev, err := s.repo.PopHistory(ctx, in.ChannelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoPreviousTrack
		}
		return err
	}

	cur, err := s.repo.GetCurrent(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	if cur != nil {
		if err := s.repo.PushQueueFront(ctx, in.ChannelID, cur.Track); err != nil {
			return err
		}
	}

	if err := s.repo.SetCurrent(ctx, in.ChannelID, &models.CurrentTrack{Track: *prev, StartedAt: s.now()}); err != nil {
		return err
	}

	status, err := s.repo.GetStatus(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	status.Playing, status.Paused = true, false
	return s.repo.SetStatus(ctx, in.ChannelID, status)
}

func (s *musicService) shuffle(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	queue, err := s.repo.GetQueue(ctx, in.ChannelID)
	if err != nil {
		return err
	}

	// Fisher-Yates.
	for i := len(queue) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		queue[i], queue[j] = queue[j], queue[i]
	}

	return s.repo.ReplaceQueue(ctx, in.ChannelID, queue, s.opts.StateTTL)
}

func (s *musicService) loop(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	status, err := s.repo.GetStatus(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	status.LoopMode = status.LoopMode.Next()
	return s.repo.SetStatus(ctx, in.ChannelID, status)
}

func (s *musicService) autoplay(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	status, err := s.repo.GetStatus(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	status.Autoplay = !status.Autoplay
	return s.repo.SetStatus(ctx, in.ChannelID, status)
}

func (s *musicService) clearQueue(ctx context.Context, in MusicCommandInput, _ models.MusicConfig) error {
	return s.repo.ClearQueue(ctx, in.ChannelID)
}

func (s *musicService) snapshot(ctx context.Context, channelID string) (*models.PlaybackState, error) {
	queue, err := s.repo.GetQueue(ctx, channelID)
	if err != nil {
		return nil, err
	}

	cur, err := s.repo.GetCurrent(ctx, channelID)
	if err != nil {
		return nil, err
	}

	status, err := s.repo.GetStatus(ctx, channelID)
	if err != nil {
		return nil, err
	}

	return &models.PlaybackState{
		ChannelID: channelID,
		Queue:     queue,
		Current:   cur,
		Status:    status,
	}, nil
}

// Config returns the server's music settings, falling back to defaults when
// the server never stored any.
func (s *musicService) Config(ctx context.Context, serverID string) (models.MusicConfig, error) {
	if cfg, ok := s.configs.Get(serverID); ok {
		return cfg, nil
	}

	cfg, err := s.store.GetMusicConfig(ctx, serverID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.l.Errorf(ctx, "service.musicService.Config: %v", err)
			return models.MusicConfig{}, err
		}
		cfg = models.DefaultMusicConfig(serverID)
	}

	s.configs.Set(serverID, cfg)
	return cfg, nil
}

func (s *musicService) UpdateConfig(ctx context.Context, cfg models.MusicConfig) error {
	if err := validateMusicConfig(cfg); err != nil {
		return err
	}

	if err := s.store.UpdateMusicConfig(ctx, cfg); err != nil {
		return err
	}

	s.configs.Delete(cfg.ServerID)
	return nil
}
