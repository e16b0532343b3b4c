// Package cache abstracts the shared ephemeral store used for presence, voice
// and playback state. Values are strings; callers own their encoding.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNil is returned when a key (or list element) does not exist.
	ErrNil       = errors.New("cache: nil")
	ErrWrongType = errors.New("cache: operation against a key holding the wrong kind of value")
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals deletes key only while it still holds value.
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) (string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)
	// ReplaceList atomically swaps the whole list for values.
	ReplaceList(ctx context.Context, key string, values []string, ttl time.Duration) error
}

// listBounds resolves redis style inclusive indexes (negative counts from the
// tail) against a list of length n. ok is false when the range is empty.
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
