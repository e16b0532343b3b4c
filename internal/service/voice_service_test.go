package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

// terminatingVoiceRepo drops the connection right before the member is
// stored, the way a transport error lands while a join is in flight.
type terminatingVoiceRepo struct {
	repository.VoiceRepository
	terminate func()
}

func (r terminatingVoiceRepo) AddMember(ctx context.Context, state models.VoiceMemberState, ttl time.Duration) error {
	r.terminate()
	return r.VoiceRepository.AddMember(ctx, state, ttl)
}

func TestVoiceJoinLeave(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")
	env.store.addUser("u2")

	a := env.connect(t, "u1")
	b := env.connect(t, "u2")

	require.NoError(t, env.voice.Join(ctx, a, "v1"))
	assert.Equal(t, "v1", a.VoiceChannel())
	assert.True(t, env.index.IsSubscribed(a, "v1"))
	drain(t, a)

	require.NoError(t, env.voice.Join(ctx, b, "v1"))

	evts := drain(t, a)
	require.Len(t, evts, 1)
	assert.Equal(t, models.OpVoiceJoin, evts[0].Type)

	evts = drain(t, b)
	assert.Equal(t, []string{models.OpVoiceJoin, models.EventVoiceParticipants}, eventTypes(evts))
	var participants models.VoiceParticipantsData
	evts[1].decode(t, &participants)
	require.Len(t, participants.Participants, 2)
	assert.Equal(t, "u1", participants.Participants[0].UserID)
	assert.Equal(t, "u2", participants.Participants[1].UserID)

	require.NoError(t, env.voice.Leave(ctx, b, "v1"))
	assert.Empty(t, b.VoiceChannel())

	evts = drain(t, a)
	require.Len(t, evts, 1)
	assert.Equal(t, models.OpVoiceLeave, evts[0].Type)

	members, err := env.voice.Participants(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].UserID)

	actions := []string{}
	for _, p := range env.prod.all() {
		if p.Kind == "voice" {
			actions = append(actions, p.UserID+":"+p.Value)
		}
	}
	assert.Equal(t, []string{"u1:join", "u2:join", "u2:leave"}, actions)
}

func TestVoiceJoinMovesChannel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")

	c := env.connect(t, "u1")
	require.NoError(t, env.voice.Join(ctx, c, "v1"))
	require.NoError(t, env.voice.Join(ctx, c, "v2"))

	assert.Equal(t, "v2", c.VoiceChannel())
	assert.False(t, env.index.IsSubscribed(c, "v1"))
	assert.True(t, env.index.IsSubscribed(c, "v2"))

	old, err := env.voice.Participants(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, old)

	current, err := env.voice.Participants(ctx, "v2")
	require.NoError(t, err)
	require.Len(t, current, 1)
}

func TestVoiceJoinRacingDisconnectLeavesNoMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")
	l := logger.InitializeTestZapLogger()

	c := env.connect(t, "u1")
	repo := terminatingVoiceRepo{
		VoiceRepository: repository.NewVoiceRepository(env.cache, l),
		terminate: func() {
			env.reg.Terminate(ctx, c, gateway.ReasonTransportClosed)
		},
	}
	voice := NewVoiceService(repo, env.fanout, env.index, env.fanout, env.prod, time.Hour, l)

	err := voice.Join(ctx, c, "v1")
	require.ErrorIs(t, err, gateway.ErrConnClosed)

	assert.Empty(t, c.VoiceChannel())
	assert.False(t, env.index.IsSubscribed(c, "v1"))

	members, err := repo.Members(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, members, "a terminated connection must not stay in the channel")

	_, err = repo.GetState(ctx, "v1", "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVoiceLeaveUnsubscribesJoinedTopicOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")
	env.store.addUser("u2")
	env.store.addUser("u3")

	t.Run("subscribed by join", func(t *testing.T) {
		c := env.connect(t, "u1")
		require.NoError(t, env.voice.Join(ctx, c, "v1"))
		require.NoError(t, env.voice.Join(ctx, c, "v1"))
		require.NoError(t, env.voice.Leave(ctx, c, ""))
		assert.False(t, env.index.IsSubscribed(c, "v1"))
	})

	t.Run("subscribed before join", func(t *testing.T) {
		c := env.connect(t, "u2")
		require.NoError(t, env.index.Subscribe(c, "v1"))
		require.NoError(t, env.voice.Join(ctx, c, "v1"))
		require.NoError(t, env.voice.Leave(ctx, c, "v1"))
		assert.True(t, env.index.IsSubscribed(c, "v1"))
	})

	t.Run("subscribed after join", func(t *testing.T) {
		c := env.connect(t, "u3")
		require.NoError(t, env.voice.Join(ctx, c, "v1"))
		c.KeepVoiceTopic("v1")
		require.NoError(t, env.voice.Leave(ctx, c, "v1"))
		assert.True(t, env.index.IsSubscribed(c, "v1"))
	})
}

func TestVoiceLeaveNotJoined(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")

	c := env.connect(t, "u1")
	err := env.voice.Leave(ctx, c, "v1")
	require.ErrorIs(t, err, ErrNotInVoiceChannel)
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestVoiceUpdateState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")
	env.store.addUser("u2")

	a := env.connect(t, "u1")
	b := env.connect(t, "u2")

	t.Run("absent state", func(t *testing.T) {
		muted := true
		err := env.voice.UpdateState(ctx, a, VoiceStateInput{ChannelID: "v1", Muted: &muted})
		require.ErrorIs(t, err, ErrVoiceStateNotFound)
		assert.Empty(t, drain(t, a))
	})

	t.Run("merges and excludes sender", func(t *testing.T) {
		require.NoError(t, env.voice.Join(ctx, a, "v1"))
		require.NoError(t, env.voice.Join(ctx, b, "v1"))
		drain(t, a)
		drain(t, b)

		muted := true
		require.NoError(t, env.voice.UpdateState(ctx, a, VoiceStateInput{Muted: &muted}))

		assert.Empty(t, drain(t, a))

		evts := drain(t, b)
		require.Len(t, evts, 1)
		assert.Equal(t, models.EventVoiceStateUpdate, evts[0].Type)

		var state models.VoiceMemberState
		evts[0].decode(t, &state)
		assert.True(t, state.Muted)
		assert.False(t, state.Deafened)
		assert.Equal(t, "u1", state.UserID)

		deafened := true
		require.NoError(t, env.voice.UpdateState(ctx, a, VoiceStateInput{Deafened: &deafened}))
		members, err := env.voice.Participants(ctx, "v1")
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.True(t, members[0].Muted)
		assert.True(t, members[0].Deafened)
	})
}

func TestVoiceSignal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.addUser("u1")
	env.store.addUser("u2")

	a := env.connect(t, "u1")
	b := env.connect(t, "u2")

	payload := json.RawMessage(`{"sdp":"offer"}`)
	assert.True(t, env.voice.Signal(ctx, a, "u2", payload))

	evts := drain(t, b)
	require.Len(t, evts, 1)
	assert.Equal(t, models.OpVoiceSignal, evts[0].Type)

	var sig models.VoiceSignalData
	evts[0].decode(t, &sig)
	assert.Equal(t, "u1", sig.FromUserID)
	assert.JSONEq(t, `{"sdp":"offer"}`, string(sig.Payload))

	assert.False(t, env.voice.Signal(ctx, a, "offline-user", payload))

	env.reg.Terminate(ctx, b, gateway.ReasonTransportClosed)
	assert.False(t, env.voice.Signal(ctx, a, "u2", payload))
}
