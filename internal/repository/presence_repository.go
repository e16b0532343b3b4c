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

type PresenceRepository interface {
	Set(ctx context.Context, rec models.PresenceRecord, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*models.PresenceRecord, error)
	Delete(ctx context.Context, userID string) error
}

type presenceRepository struct {
	c cache.Cache
	l logger.Logger
}

func NewPresenceRepository(c cache.Cache, l logger.Logger) PresenceRepository {
	return &presenceRepository{c: c, l: l}
}

func (r *presenceRepository) presenceKey(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

func (r *presenceRepository) Set(ctx context.Context, rec models.PresenceRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	if err := r.c.Set(ctx, r.presenceKey(rec.UserID), string(data), ttl); err != nil {
		r.l.Errorf(ctx, "presenceRepository.Set: %v", err)
		return err
	}
	return nil
}

func (r *presenceRepository) Get(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	data, err := r.c.Get(ctx, r.presenceKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrNil) {
			return nil, ErrNotFound
		}
		r.l.Errorf(ctx, "presenceRepository.Get: %v", err)
		return nil, err
	}

	var rec models.PresenceRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		r.l.Errorf(ctx, "presenceRepository.Get: %v", err)
		return nil, err
	}
	return &rec, nil
}

func (r *presenceRepository) Delete(ctx context.Context, userID string) error {
	if err := r.c.Del(ctx, r.presenceKey(userID)); err != nil {
		r.l.Errorf(ctx, "presenceRepository.Delete: %v", err)
		return err
	}
	return nil
}
