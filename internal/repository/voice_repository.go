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

type VoiceRepository interface {
	// AddMember writes the membership and the member state together.
	AddMember(ctx context.Context, state models.VoiceMemberState, ttl time.Duration) error
	// RemoveMember drops membership and state and returns the remaining member count.
	RemoveMember(ctx context.Context, channelID, userID string) (int64, error)
	Members(ctx context.Context, channelID string) ([]string, error)
	GetState(ctx context.Context, channelID, userID string) (*models.VoiceMemberState, error)
	SaveState(ctx context.Context, state models.VoiceMemberState, ttl time.Duration) error
}

type voiceRepository struct {
	c cache.Cache
	l logger.Logger
}

func NewVoiceRepository(c cache.Cache, l logger.Logger) VoiceRepository {
	return &voiceRepository{c: c, l: l}
}

func (r *voiceRepository) membersKey(channelID string) string {
	return fmt.Sprintf("voice:%s:members", channelID)
}

func (r *voiceRepository) stateKey(channelID, userID string) string {
	return fmt.Sprintf("voice:%s:state:%s", channelID, userID)
}

func (r *voiceRepository) AddMember(ctx context.Context, state models.VoiceMemberState, ttl time.Duration) error {
	key := r.membersKey(state.ChannelID)
	if err := r.c.SAdd(ctx, key, state.UserID); err != nil {
		r.l.Errorf(ctx, "voiceRepository.AddMember: %v", err)
		return err
	}

	if err := r.c.Expire(ctx, ttl, key); err != nil {
		r.l.Errorf(ctx, "voiceRepository.AddMember: %v", err)
		return err
	}

	if err := r.SaveState(ctx, state, ttl); err != nil {
		// Keep membership and state in lockstep.
		_ = r.c.SRem(ctx, key, state.UserID)
		return err
	}
	return nil
}

func (r *voiceRepository) RemoveMember(ctx context.Context, channelID, userID string) (int64, error) {
	key := r.membersKey(channelID)

	// State first so it never outlives the membership entry.
	if err := r.c.Del(ctx, r.stateKey(channelID, userID)); err != nil {
		r.l.Errorf(ctx, "voiceRepository.RemoveMember: %v", err)
		return 0, err
	}

	if err := r.c.SRem(ctx, key, userID); err != nil {
		r.l.Errorf(ctx, "voiceRepository.RemoveMember: %v", err)
		return 0, err
	}

	n, err := r.c.SCard(ctx, key)
	if err != nil {
		r.l.Errorf(ctx, "voiceRepository.RemoveMember: %v", err)
		return 0, err
	}
	return n, nil
}

func (r *voiceRepository) Members(ctx context.Context, channelID string) ([]string, error) {
	members, err := r.c.SMembers(ctx, r.membersKey(channelID))
	if err != nil {
		r.l.Errorf(ctx, "voiceRepository.Members: %v", err)
		return nil, err
	}
	return members, nil
}

func (r *voiceRepository) GetState(ctx context.Context, channelID, userID string) (*models.VoiceMemberState, error) {
	data, err := r.c.Get(ctx, r.stateKey(channelID, userID))
	if err != nil {
		if errors.Is(err, cache.ErrNil) {
			return nil, ErrNotFound
		}
		r.l.Errorf(ctx, "voiceRepository.GetState: %v", err)
		return nil, err
	}

	var state models.VoiceMemberState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		r.l.Errorf(ctx, "voiceRepository.GetState: %v", err)
		return nil, err
	}
	return &state, nil
}

func (r *voiceRepository) SaveState(ctx context.Context, state models.VoiceMemberState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal voice state: %w", err)
	}

	if err := r.c.Set(ctx, r.stateKey(state.ChannelID, state.UserID), string(data), ttl); err != nil {
		r.l.Errorf(ctx, "voiceRepository.SaveState: %v", err)
		return err
	}
	return nil
}
