package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

type voiceService struct {
	repo   repository.VoiceRepository
	users  UserRelay
	topics TopicSubscriber
	pub    Publisher
	prod   ActivityProducer
	ttl    time.Duration
	l      logger.Logger
}

func NewVoiceService(
	repo repository.VoiceRepository,
	users UserRelay,
	topics TopicSubscriber,
	pub Publisher,
	prod ActivityProducer,
	ttl time.Duration,
	l logger.Logger,
) VoiceService {
	return &voiceService{
		repo:   repo,
		users:  users,
		topics: topics,
		pub:    pub,
		prod:   prod,
		ttl:    ttl,
		l:      l,
	}
}

func (s *voiceService) Join(ctx context.Context, c *gateway.Conn, channelID string) error {
	u, ok := c.User()
	if !ok {
		return ErrNotIdentified
	}

	if current := c.VoiceChannel(); current != "" && current != channelID {
		if err := s.Leave(ctx, c, current); err != nil {
			s.l.Warnf(ctx, "service.voiceService.Join: leave %s: %v", current, err)
		}
	}

	// Joiners follow the channel so they see later joins, leaves and state
	// changes. A topic the client subscribed itself is left alone on leave.
	joinedTopic := false
	if !s.topics.IsSubscribed(c, channelID) {
		if err := s.topics.Subscribe(c, channelID); err != nil {
			return err
		}
		joinedTopic = true
	}

	state := models.VoiceMemberState{
		ChannelID:   channelID,
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		JoinedAt:    time.Now().UTC(),
	}
	if existing, err := s.repo.GetState(ctx, channelID, u.ID); err == nil && c.VoiceChannel() == channelID {
		state = *existing
	}

	if err := s.repo.AddMember(ctx, state, s.ttl); err != nil {
		return err
	}
	// The disconnect cleanup may have run while the member was being added;
	// it could not see the channel yet, so the join undoes itself.
	if err := c.SetVoiceChannel(channelID, joinedTopic); err != nil {
		if _, rmErr := s.repo.RemoveMember(ctx, channelID, u.ID); rmErr != nil {
			s.l.Warnf(ctx, "service.voiceService.Join: rollback %s: %v", channelID, rmErr)
		}
		return err
	}

	if err := s.pub.Publish(ctx, channelID, models.Event{Type: models.OpVoiceJoin, Data: state}, ""); err != nil {
		s.l.Warnf(ctx, "service.voiceService.Join: %v", err)
	}

	participants, err := s.Participants(ctx, channelID)
	if err != nil {
		return err
	}
	c.SendEvent(models.Event{
		Type: models.EventVoiceParticipants,
		Data: models.VoiceParticipantsData{ChannelID: channelID, Participants: participants},
	})

	s.emit(ctx, channelID, u.ID, VoiceActionJoin)
	return nil
}

// Leave removes the connection's user from channelID. An empty channelID
// means the channel the connection is currently in.
func (s *voiceService) Leave(ctx context.Context, c *gateway.Conn, channelID string) error {
	userID := c.UserID()
	if userID == "" {
		return ErrNotIdentified
	}

	current := c.VoiceChannel()
	if channelID == "" {
		channelID = current
	}
	if channelID == "" || channelID != current {
		return ErrNotInVoiceChannel
	}

	if _, err := s.repo.RemoveMember(ctx, channelID, userID); err != nil {
		return err
	}
	if c.ClearVoiceChannel(channelID) {
		s.topics.Unsubscribe(c, channelID)
	}

	evt := models.Event{
		Type: models.OpVoiceLeave,
		Data: models.VoiceLeaveData{ChannelID: channelID, UserID: userID},
	}
	if err := s.pub.Publish(ctx, channelID, evt, ""); err != nil {
		s.l.Warnf(ctx, "service.voiceService.Leave: %v", err)
	}

	s.emit(ctx, channelID, userID, VoiceActionLeave)
	return nil
}

// Signal relays payload to the target user's connection, on this instance or
// another one. It reports whether the frame was handed off; an unreachable
// target is not an error.
func (s *voiceService) Signal(ctx context.Context, c *gateway.Conn, targetUserID string, payload json.RawMessage) bool {
	sent := s.users.SendToUser(ctx, targetUserID, models.Event{
		Type: models.OpVoiceSignal,
		Data: models.VoiceSignalData{FromUserID: c.UserID(), Payload: payload},
	})
	if !sent {
		s.l.Debugf(ctx, "service.voiceService.Signal: %s not reachable, dropped", targetUserID)
	}
	return sent
}

func (s *voiceService) UpdateState(ctx context.Context, c *gateway.Conn, in VoiceStateInput) error {
	userID := c.UserID()
	if userID == "" {
		return ErrNotIdentified
	}

	channelID := in.ChannelID
	if channelID == "" {
		channelID = c.VoiceChannel()
	}

	state, err := s.repo.GetState(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVoiceStateNotFound
		}
		return err
	}

	if in.Muted != nil {
		state.Muted = *in.Muted
	}
	if in.Deafened != nil {
		state.Deafened = *in.Deafened
	}
	if in.Streaming != nil {
		state.Streaming = *in.Streaming
	}

	if err := s.repo.SaveState(ctx, *state, s.ttl); err != nil {
		return err
	}

	evt := models.Event{Type: models.EventVoiceStateUpdate, Data: state}
	if err := s.pub.Publish(ctx, channelID, evt, c.ID()); err != nil {
		s.l.Warnf(ctx, "service.voiceService.UpdateState: %v", err)
	}
	return nil
}

// Participants lists members that still have a state entry, oldest first.
func (s *voiceService) Participants(ctx context.Context, channelID string) ([]models.VoiceMemberState, error) {
	members, err := s.repo.Members(ctx, channelID)
	if err != nil {
		return nil, err
	}

	out := make([]models.VoiceMemberState, 0, len(members))
	for _, userID := range members {
		state, err := s.repo.GetState(ctx, channelID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *state)
	}

	slices.SortFunc(out, func(a, b models.VoiceMemberState) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return out, nil
}

func (s *voiceService) emit(ctx context.Context, channelID, userID, action string) {
	if s.prod == nil {
		return
	}
	if err := s.prod.PublishVoiceActivity(ctx, channelID, userID, action); err != nil {
		s.l.Warnf(ctx, "service.voiceService: producer: %v", err)
	}
}
