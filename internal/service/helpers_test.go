package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/store"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

const testSecret = "test-secret"

type fakeStore struct {
	mu         sync.Mutex
	users      map[string]models.UserProfile
	servers    map[string][]string
	music      map[string]models.MusicConfig
	musicReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]models.UserProfile),
		servers: make(map[string][]string),
		music:   make(map[string]models.MusicConfig),
	}
}

func (s *fakeStore) addUser(id string, servers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = models.UserProfile{ID: id, Username: "user-" + id}
	s.servers[id] = servers
}

func (s *fakeStore) GetUserProfile(_ context.Context, userID string) (models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.UserProfile{}, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetServerIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers[userID], nil
}

func (s *fakeStore) GetMusicConfig(_ context.Context, serverID string) (models.MusicConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.musicReads++
	cfg, ok := s.music[serverID]
	if !ok {
		return models.MusicConfig{}, store.ErrNotFound
	}
	return cfg, nil
}

func (s *fakeStore) UpdateMusicConfig(_ context.Context, cfg models.MusicConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.music[cfg.ServerID] = cfg
	return nil
}

type producedActivity struct {
	Kind   string
	Key    string
	UserID string
	Value  string
}

type fakeProducer struct {
	mu     sync.Mutex
	events []producedActivity
}

func (p *fakeProducer) PublishPresenceChanged(_ context.Context, userID string, status models.PresenceStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, producedActivity{Kind: "presence", Key: userID, UserID: userID, Value: string(status)})
	return nil
}

func (p *fakeProducer) PublishVoiceActivity(_ context.Context, channelID, userID, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, producedActivity{Kind: "voice", Key: channelID, UserID: userID, Value: action})
	return nil
}

func (p *fakeProducer) all() []producedActivity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]producedActivity(nil), p.events...)
}

type nopTransport struct{}

func (nopTransport) Ping() error  { return nil }
func (nopTransport) Close() error { return nil }

type testEnv struct {
	cache    *cache.MemoryCache
	index    *gateway.TopicIndex
	reg      *gateway.Registry
	fanout   *gateway.Fanout
	store    *fakeStore
	prod     *fakeProducer
	presence PresenceService
	voice    VoiceService
	music    MusicService
	session  SessionService
	events   EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(c.Close)
	return newInstanceEnv(t, c, newFakeStore(), nil, "test")
}

// newInstanceEnv builds one gateway instance. Instances sharing c, st and
// relay behave like a multi instance deployment.
func newInstanceEnv(t *testing.T, c *cache.MemoryCache, st *fakeStore, relay gateway.Relay, origin string) *testEnv {
	t.Helper()

	l := logger.InitializeTestZapLogger()
	index := gateway.NewTopicIndex(0)
	reg := gateway.NewRegistry(index, l)
	fanout := gateway.NewFanout(reg, relay, origin, l)
	prod := &fakeProducer{}

	presence := NewPresenceService(repository.NewPresenceRepository(c, l), st, fanout, prod, time.Minute, l)
	voice := NewVoiceService(repository.NewVoiceRepository(c, l), fanout, index, fanout, prod, time.Hour, l)
	music := NewMusicService(
		repository.NewMusicRepository(c, l),
		repository.NewLockRepository(c, l),
		st,
		fanout,
		MusicOptions{StateTTL: time.Hour, HistorySize: 50, ConfigCacheTTL: time.Minute},
		l,
	)
	t.Cleanup(music.Close)
	session := NewSessionService(NewJWTVerifier(testSecret), st, reg, fanout, presence, voice, 30*time.Second, l)
	reg.OnDisconnect(session.HandleDisconnect)

	return &testEnv{
		cache:    c,
		index:    index,
		reg:      reg,
		fanout:   fanout,
		store:    st,
		prod:     prod,
		presence: presence,
		voice:    voice,
		music:    music,
		session:  session,
		events:   NewEventService(fanout, l),
	}
}

// loopRelay links instances in one process the way redis pub/sub does.
type loopRelay struct {
	mu    sync.Mutex
	subs  []func(gateway.RelayMessage)
	ready chan struct{}
}

func newLoopRelay() *loopRelay {
	return &loopRelay{ready: make(chan struct{}, 8)}
}

func (r *loopRelay) Publish(_ context.Context, msg gateway.RelayMessage) error {
	r.mu.Lock()
	subs := append([]func(gateway.RelayMessage){}, r.subs...)
	r.mu.Unlock()

	for _, s := range subs {
		s(msg)
	}
	return nil
}

func (r *loopRelay) Subscribe(ctx context.Context, handle func(gateway.RelayMessage)) error {
	r.mu.Lock()
	r.subs = append(r.subs, handle)
	r.mu.Unlock()
	r.ready <- struct{}{}

	<-ctx.Done()
	return nil
}

// start runs every instance's fanout and waits until all of them listen.
func (r *loopRelay) start(t *testing.T, ctx context.Context, envs ...*testEnv) {
	t.Helper()

	for _, e := range envs {
		go e.fanout.Run(ctx)
	}
	for range envs {
		select {
		case <-r.ready:
		case <-time.After(time.Second):
			t.Fatal("relay subscribers did not start")
		}
	}
}

func signToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// connect opens a connection for userID, identifies it and discards the
// frames produced by the handshake.
func (e *testEnv) connect(t *testing.T, userID string) *gateway.Conn {
	t.Helper()

	c := e.reg.Accept(nopTransport{}, 64)
	_, err := e.session.Identify(context.Background(), c, signToken(t, userID))
	require.NoError(t, err)
	drain(t, c)
	return c
}

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e rawEvent) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v))
}

func drain(t *testing.T, c *gateway.Conn) []rawEvent {
	t.Helper()

	var out []rawEvent
	for {
		select {
		case data, ok := <-c.Outbound():
			if !ok {
				return out
			}
			var evt rawEvent
			require.NoError(t, json.Unmarshal(data, &evt))
			out = append(out, evt)
		default:
			return out
		}
	}
}

func eventTypes(evts []rawEvent) []string {
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}
