package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// LockRepository provides short lived mutual exclusion across gateway instances.
type LockRepository interface {
	// Acquire retries until ctx is done or wait elapses. The returned token
	// must be handed back to Release.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

type lockRepository struct {
	c     cache.Cache
	l     logger.Logger
	retry time.Duration
}

func NewLockRepository(c cache.Cache, l logger.Logger) LockRepository {
	return &lockRepository{c: c, l: l, retry: 25 * time.Millisecond}
}

func (r *lockRepository) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.c.SetNX(ctx, key, token, ttl)
		if err != nil {
			r.l.Errorf(ctx, "lockRepository.Acquire: %v", err)
			return "", err
		}
		if ok {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

func (r *lockRepository) Release(ctx context.Context, key, token string) error {
	if _, err := r.c.DelIfEquals(ctx, key, token); err != nil {
		r.l.Errorf(ctx, "lockRepository.Release: %v", err)
		return err
	}
	return nil
}
