package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/store"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

const cleanupTimeout = 5 * time.Second

type sessionService struct {
	verifier          IdentityVerifier
	store             PersistenceStore
	reg               ConnRegistry
	users             UserRelay
	presence          PresenceService
	voice             VoiceService
	heartbeatInterval time.Duration
	l                 logger.Logger
}

func NewSessionService(
	verifier IdentityVerifier,
	st PersistenceStore,
	reg ConnRegistry,
	users UserRelay,
	presence PresenceService,
	voice VoiceService,
	heartbeatInterval time.Duration,
	l logger.Logger,
) SessionService {
	return &sessionService{
		verifier:          verifier,
		store:             st,
		reg:               reg,
		users:             users,
		presence:          presence,
		voice:             voice,
		heartbeatInterval: heartbeatInterval,
		l:                 l,
	}
}

func (s *sessionService) Identify(ctx context.Context, c *gateway.Conn, token string) (models.ReadyData, error) {
	if c.UserID() != "" {
		return models.ReadyData{}, ErrAlreadyIdentified
	}

	userID, err := s.verifier.Verify(token)
	if err != nil {
		return models.ReadyData{}, err
	}

	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ReadyData{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		s.l.Errorf(ctx, "service.sessionService.Identify: %v", err)
		return models.ReadyData{}, err
	}

	prev, err := s.reg.Bind(c, profile)
	if err != nil {
		if errors.Is(err, gateway.ErrAlreadyIdentified) {
			return models.ReadyData{}, ErrAlreadyIdentified
		}
		return models.ReadyData{}, err
	}

	// A user keeps a single live session: the older connection is closed,
	// here or on whichever instance holds it.
	if prev != nil {
		s.reg.Terminate(ctx, prev, gateway.ReasonSessionReplaced)
	}
	s.users.ClaimSession(ctx, c)

	if err := s.presence.SetStatus(ctx, profile.ID, models.PresenceOnline); err != nil {
		s.l.Warnf(ctx, "service.sessionService.Identify: presence for %s: %v", profile.ID, err)
	}

	return models.ReadyData{
		User:              profile,
		ConnectionID:      c.ID(),
		HeartbeatInterval: s.heartbeatInterval.Milliseconds(),
	}, nil
}

func (s *sessionService) HandleDisconnect(ctx context.Context, c *gateway.Conn, ownedSession bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if channelID := c.VoiceChannel(); channelID != "" {
		if err := s.voice.Leave(ctx, c, channelID); err != nil {
			s.l.Warnf(ctx, "service.sessionService.HandleDisconnect: voice leave %s: %v", channelID, err)
		}
	}

	userID := c.UserID()
	if userID == "" || !ownedSession {
		return
	}

	if err := s.presence.Clear(ctx, userID); err != nil {
		s.l.Warnf(ctx, "service.sessionService.HandleDisconnect: presence for %s: %v", userID, err)
	}
}
