package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

var (
	ErrConnClosed        = errors.New("connection closed")
	ErrAlreadyIdentified = errors.New("connection already identified")
	ErrTooManyTopics     = errors.New("too many topic subscriptions")
)

// Transport is the socket side of a connection. Ping and Close must be safe to
// call concurrently with the writer goroutine.
type Transport interface {
	Ping() error
	Close() error
}

// Conn is one live client session. Outbound frames go through a buffered
// channel drained by the transport writer; Send never blocks.
type Conn struct {
	id        string
	transport Transport
	send      chan []byte
	done      chan struct{}
	createdAt time.Time
	alive     atomic.Bool

	mu           sync.RWMutex
	closed       bool
	user         *models.UserProfile
	boundAt      time.Time
	voiceChannel string
	// voiceTopic is set while the channel topic was subscribed by the voice
	// join rather than by the client.
	voiceTopic bool
}

func NewConn(id string, t Transport, bufSize int) *Conn {
	c := &Conn{
		id:        id,
		transport: t,
		send:      make(chan []byte, bufSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	c.alive.Store(true)
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// Outbound is closed once the connection is terminated.
func (c *Conn) Outbound() <-chan []byte { return c.send }

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) User() (models.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil {
		return models.UserProfile{}, false
	}
	return *c.user, true
}

func (c *Conn) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil {
		return ""
	}
	return c.user.ID
}

func (c *Conn) VoiceChannel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voiceChannel
}

// BoundAt is when the connection was identified; zero before that.
func (c *Conn) BoundAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boundAt
}

// SetVoiceChannel records channelID as the connection's voice channel.
// joinedTopic tells whether the join subscribed the channel topic. It fails
// with ErrConnClosed once the connection is terminated, so a join racing the
// disconnect cleanup can roll itself back.
func (c *Conn) SetVoiceChannel(channelID string, joinedTopic bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	if c.voiceChannel == channelID {
		joinedTopic = joinedTopic || c.voiceTopic
	}
	c.voiceChannel = channelID
	c.voiceTopic = joinedTopic
	return nil
}

// ClearVoiceChannel resets the voice channel only if it is still channelID.
// It reports whether the channel topic was subscribed by the join and should
// be dropped with it.
func (c *Conn) ClearVoiceChannel(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voiceChannel != channelID {
		return false
	}
	joinedTopic := c.voiceTopic
	c.voiceChannel = ""
	c.voiceTopic = false
	return joinedTopic
}

// KeepVoiceTopic marks topics as subscribed by the client, so leaving voice
// does not unsubscribe the channel among them.
func (c *Conn) KeepVoiceTopic(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range topics {
		if t == c.voiceChannel {
			c.voiceTopic = false
		}
	}
}

func (c *Conn) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Send queues data for the writer. It reports false when the connection is
// closed or its buffer is full; the frame is dropped in both cases.
func (c *Conn) Send(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) SendEvent(evt models.Event) bool {
	data, err := json.Marshal(evt)
	if err != nil {
		return false
	}
	return c.Send(data)
}

func (c *Conn) MarkAlive() {
	c.alive.Store(true)
}

func (c *Conn) bind(u models.UserProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	if c.user != nil {
		return ErrAlreadyIdentified
	}
	c.user = &u
	c.boundAt = time.Now()
	return nil
}

// markClosed flips the connection to closed and reports whether this call did it.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	close(c.done)
	return true
}
