package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

type MusicRepository interface {
	GetQueue(ctx context.Context, channelID string) ([]models.Track, error)
	QueueLen(ctx context.Context, channelID string) (int64, error)
	PushQueue(ctx context.Context, channelID string, tracks ...models.Track) error
	PushQueueFront(ctx context.Context, channelID string, track models.Track) error
	// PopQueue returns ErrNotFound when the queue is empty.
	PopQueue(ctx context.Context, channelID string) (*models.Track, error)
	ReplaceQueue(ctx context.Context, channelID string, tracks []models.Track, ttl time.Duration) error
	ClearQueue(ctx context.Context, channelID string) error

	// PushHistory records track as the most recent entry and trims to limit.
	PushHistory(ctx context.Context, channelID string, track models.Track, limit int) error
	PopHistory(ctx context.Context, channelID string) (*models.Track, error)

	// GetCurrent returns nil when nothing is loaded.
	GetCurrent(ctx context.Context, channelID string) (*models.CurrentTrack, error)
	SetCurrent(ctx context.Context, channelID string, cur *models.CurrentTrack) error
	GetStatus(ctx context.Context, channelID string) (models.PlaybackStatus, error)
	SetStatus(ctx context.Context, channelID string, status models.PlaybackStatus) error

	// Touch refreshes the TTL of every key of the channel.
	Touch(ctx context.Context, channelID string, ttl time.Duration) error
	// Reset deletes queue, current track and status. History is kept.
	Reset(ctx context.Context, channelID string) error
}

type musicRepository struct {
	c cache.Cache
	l logger.Logger
}

func NewMusicRepository(c cache.Cache, l logger.Logger) MusicRepository {
	return &musicRepository{c: c, l: l}
}

func (r *musicRepository) queueKey(channelID string) string {
	return fmt.Sprintf("music:%s:queue", channelID)
}

func (r *musicRepository) historyKey(channelID string) string {
	return fmt.Sprintf("music:%s:history", channelID)
}

func (r *musicRepository) currentKey(channelID string) string {
	return fmt.Sprintf("music:%s:current", channelID)
}

func (r *musicRepository) statusKey(channelID string) string {
	return fmt.Sprintf("music:%s:status", channelID)
}

func encodeTracks(tracks []models.Track) ([]string, error) {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal track: %w", err)
		}
		out[i] = string(data)
	}
	return out, nil
}

func decodeTrack(raw string) (*models.Track, error) {
	var t models.Track
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal track: %w", err)
	}
	return &t, nil
}

func (r *musicRepository) GetQueue(ctx context.Context, channelID string) ([]models.Track, error) {
	raw, err := r.c.LRange(ctx, r.queueKey(channelID), 0, -1)
	if err != nil {
		r.l.Errorf(ctx, "musicRepository.GetQueue: %v", err)
		return nil, err
	}

	tracks := make([]models.Track, 0, len(raw))
	for _, item := range raw {
		t, err := decodeTrack(item)
		if err != nil {
			r.l.Errorf(ctx, "musicRepository.GetQueue: %v", err)
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, nil
}

func (r *musicRepository) QueueLen(ctx context.Context, channelID string) (int64, error) {
	n, err := r.c.LLen(ctx, r.queueKey(channelID))
	if err != nil {
		r.l.Errorf(ctx, "musicRepository.QueueLen: %v", err)
		return 0, err
	}
	return n, nil
}

func (r *musicRepository) PushQueue(ctx context.Context, channelID string, tracks ...models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	vals, err := encodeTracks(tracks)
	if err != nil {
		return err
	}

	if err := r.c.RPush(ctx, r.queueKey(channelID), vals...); err != nil {
		r.l.Errorf(ctx, "musicRepository.PushQueue: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) PushQueueFront(ctx context.Context, channelID string, track models.Track) error {
	vals, err := encodeTracks([]models.Track{track})
	if err != nil {
		return err
	}

	if err := r.c.LPush(ctx, r.queueKey(channelID), vals...); err != nil {
		r.l.Errorf(ctx, "musicRepository.PushQueueFront: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) PopQueue(ctx context.Context, channelID string) (*models.Track, error) {
	return r.pop(ctx, r.queueKey(channelID), "musicRepository.PopQueue")
}

func (r *musicRepository) pop(ctx context.Context, key, op string) (*models.Track, error) {
	raw, err := r.c.LPop(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNil) {
			return nil, ErrNotFound
		}
		r.l.Errorf(ctx, "%s: %v", op, err)
		return nil, err
	}

	t, err := decodeTrack(raw)
	if err != nil {
		r.l.Errorf(ctx, "%s: %v", op, err)
		return nil, err
	}
	return t, nil
}

func (r *musicRepository) ReplaceQueue(ctx context.Context, channelID string, tracks []models.Track, ttl time.Duration) error {
	vals, err := encodeTracks(tracks)
	if err != nil {
		return err
	}

	if err := r.c.ReplaceList(ctx, r.queueKey(channelID), vals, ttl); err != nil {
		r.l.Errorf(ctx, "musicRepository.ReplaceQueue: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) ClearQueue(ctx context.Context, channelID string) error {
	if err := r.c.Del(ctx, r.queueKey(channelID)); err != nil {
		r.l.Errorf(ctx, "musicRepository.ClearQueue: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) PushHistory(ctx context.Context, channelID string, track models.Track, limit int) error {
	vals, err := encodeTracks([]models.Track{track})
	if err != nil {
		return err
	}

	key := r.historyKey(channelID)
	if err := r.c.LPush(ctx, key, vals...); err != nil {
		r.l.Errorf(ctx, "musicRepository.PushHistory: %v", err)
		return err
	}

	if err := r.c.LTrim(ctx, key, 0, int64(limit-1)); err != nil {
		r.l.Errorf(ctx, "musicRepository.PushHistory: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) PopHistory(ctx context.Context, channelID string) (*models.Track, error) {
	return r.pop(ctx, r.historyKey(channelID), "musicRepository.PopHistory")
}

func (r *musicRepository) GetCurrent(ctx context.Context, channelID string) (*models.CurrentTrack, error) {
	raw, err := r.c.Get(ctx, r.currentKey(channelID))
	if err != nil {
		if errors.Is(err, cache.ErrNil) {
			return nil, nil
		}
		r.l.Errorf(ctx, "musicRepository.GetCurrent: %v", err)
		return nil, err
	}

	var cur models.CurrentTrack
	if err := json.Unmarshal([]byte(raw), &cur); err != nil {
		r.l.Errorf(ctx, "musicRepository.GetCurrent: %v", err)
		return nil, err
	}
	return &cur, nil
}

func (r *musicRepository) SetCurrent(ctx context.Context, channelID string, cur *models.CurrentTrack) error {
	key := r.currentKey(channelID)
	if cur == nil {
		if err := r.c.Del(ctx, key); err != nil {
			r.l.Errorf(ctx, "musicRepository.SetCurrent: %v", err)
			return err
		}
		return nil
	}

	data, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("failed to marshal current track: %w", err)
	}

	if err := r.c.Set(ctx, key, string(data), 0); err != nil {
		r.l.Errorf(ctx, "musicRepository.SetCurrent: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) GetStatus(ctx context.Context, channelID string) (models.PlaybackStatus, error) {
	status := models.PlaybackStatus{LoopMode: models.LoopOff}

	raw, err := r.c.Get(ctx, r.statusKey(channelID))
	if err != nil {
		if errors.Is(err, cache.ErrNil) {
			return status, nil
		}
		r.l.Errorf(ctx, "musicRepository.GetStatus: %v", err)
		return status, err
	}

	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		r.l.Errorf(ctx, "musicRepository.GetStatus: %v", err)
		return status, err
	}
	return status, nil
}

func (r *musicRepository) SetStatus(ctx context.Context, channelID string, status models.PlaybackStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal playback status: %w", err)
	}

	if err := r.c.Set(ctx, r.statusKey(channelID), string(data), 0); err != nil {
		r.l.Errorf(ctx, "musicRepository.SetStatus: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) Touch(ctx context.Context, channelID string, ttl time.Duration) error {
	if err := r.c.Expire(ctx, ttl,
		r.queueKey(channelID),
		r.historyKey(channelID),
		r.currentKey(channelID),
		r.statusKey(channelID),
	); err != nil {
		r.l.Errorf(ctx, "musicRepository.Touch: %v", err)
		return err
	}
	return nil
}

func (r *musicRepository) Reset(ctx context.Context, channelID string) error {
	if err := r.c.Del(ctx,
		r.queueKey(channelID),
		r.currentKey(channelID),
		r.statusKey(channelID),
	); err != nil {
		r.l.Errorf(ctx, "musicRepository.Reset: %v", err)
		return err
	}
	return nil
}
