package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

type presenceService struct {
	repo  repository.PresenceRepository
	store PersistenceStore
	pub   Publisher
	prod  ActivityProducer
	ttl   time.Duration
	l     logger.Logger
}

// NewPresenceService builds the presence tracker. prod may be nil.
func NewPresenceService(
	repo repository.PresenceRepository,
	st PersistenceStore,
	pub Publisher,
	prod ActivityProducer,
	ttl time.Duration,
	l logger.Logger,
) PresenceService {
	return &presenceService{
		repo:  repo,
		store: st,
		pub:   pub,
		prod:  prod,
		ttl:   ttl,
		l:     l,
	}
}

func (s *presenceService) SetStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	rec := models.PresenceRecord{
		UserID:    userID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Set(ctx, rec, s.ttl); err != nil {
		return err
	}

	return s.broadcast(ctx, userID, status)
}

func (s *presenceService) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	return s.broadcast(ctx, userID, models.PresenceOffline)
}

func (s *presenceService) Get(ctx context.Context, userID string) (models.PresenceRecord, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.PresenceRecord{UserID: userID, Status: models.PresenceOffline}, nil
		}
		return models.PresenceRecord{}, err
	}
	return *rec, nil
}

// broadcast sends the change to every server the user belongs to. The user's
// own connections may receive it too.
func (s *presenceService) broadcast(ctx context.Context, userID string, status models.PresenceStatus) error {
	serverIDs, err := s.store.GetServerIDs(ctx, userID)
	if err != nil {
		s.l.Errorf(ctx, "service.presenceService.broadcast: %v", err)
		return err
	}

	evt := models.Event{
		Type: models.OpPresenceUpdate,
		Data: models.PresenceUpdateData{UserID: userID, Status: status},
	}
	for _, id := range serverIDs {
		if err := s.pub.Publish(ctx, ServerTopic(id), evt, ""); err != nil {
			s.l.Warnf(ctx, "service.presenceService.broadcast: server %s: %v", id, err)
		}
	}

	if s.prod != nil {
		if err := s.prod.PublishPresenceChanged(ctx, userID, status); err != nil {
			s.l.Warnf(ctx, "service.presenceService.broadcast: producer: %v", err)
		}
	}

	return nil
}
