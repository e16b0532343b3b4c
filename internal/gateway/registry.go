package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

const (
	ReasonHeartbeatTimeout = "heartbeat_timeout"
	ReasonIdentifyTimeout  = "identify_timeout"
	ReasonSessionReplaced  = "session_replaced"
	ReasonAuthFailed       = "auth_failed"
	ReasonTransportClosed  = "transport_closed"
	ReasonShutdown         = "shutdown"
)

// DisconnectHook runs once per terminated connection, after it has left the
// registry and the topic index. ownedSession is true when the connection was
// still the registered session of its user.
type DisconnectHook func(ctx context.Context, c *Conn, ownedSession bool)

// Registry owns every live connection on this instance and the user to
// connection mapping. A user maps to at most one connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	users map[string]*Conn

	topics       *TopicIndex
	onDisconnect DisconnectHook
	l            logger.Logger
}

func NewRegistry(topics *TopicIndex, l logger.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		users:  make(map[string]*Conn),
		topics: topics,
		l:      l,
	}
}

// OnDisconnect installs the cleanup hook. It must be set before connections are accepted.
func (r *Registry) OnDisconnect(h DisconnectHook) {
	r.onDisconnect = h
}

func (r *Registry) Accept(t Transport, bufSize int) *Conn {
	c := NewConn(uuid.NewString(), t, bufSize)

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	return c
}

// Bind attaches the user to c and makes c the user's registered connection.
// The previously registered connection, if any, is returned untouched.
func (r *Registry) Bind(c *Conn, u models.UserProfile) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return nil, ErrConnClosed
	}
	if err := c.bind(u); err != nil {
		return nil, err
	}

	prev := r.users[u.ID]
	r.users[u.ID] = c
	if prev == c {
		prev = nil
	}
	return prev, nil
}

func (r *Registry) Lookup(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.users[userID]
	return c, ok
}

// Release terminates the user's connection if it was identified before
// since. The connection is dropped from the user mapping first, so the
// disconnect hook sees it as not owning the session: a newer session on
// another instance holds the user's presence now.
func (r *Registry) Release(ctx context.Context, userID string, since time.Time, reason string) bool {
	r.mu.Lock()
	c, ok := r.users[userID]
	if !ok || !c.BoundAt().Before(since) {
		r.mu.Unlock()
		return false
	}
	delete(r.users, userID)
	r.mu.Unlock()

	r.Terminate(ctx, c, reason)
	return true
}

// Evict terminates the connection registered for userID.
func (r *Registry) Evict(ctx context.Context, userID, reason string) bool {
	c, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	r.Terminate(ctx, c, reason)
	return true
}

// Terminate closes c. It is safe to call from several goroutines; only the
// first call has any effect.
func (r *Registry) Terminate(ctx context.Context, c *Conn, reason string) {
	if !c.markClosed() {
		return
	}

	userID := c.UserID()

	r.mu.Lock()
	delete(r.conns, c.id)
	owned := false
	if userID != "" && r.users[userID] == c {
		delete(r.users, userID)
		owned = true
	}
	r.mu.Unlock()

	r.topics.RemoveConn(c)

	if r.onDisconnect != nil {
		r.onDisconnect(ctx, c, owned)
	}

	if err := c.transport.Close(); err != nil {
		r.l.Debugf(ctx, "gateway.Registry.Terminate: close %s: %v", c.id, err)
	}

	r.l.Infof(ctx, "connection %s terminated: user=%q reason=%s", c.id, userID, reason)
}

// Sweep runs one heartbeat cycle: connections that did not show any sign of
// life since the previous cycle are terminated, the rest are pinged.
func (r *Registry) Sweep(ctx context.Context) {
	for _, c := range r.snapshot() {
		if !c.alive.Swap(false) {
			r.Terminate(ctx, c, ReasonHeartbeatTimeout)
			continue
		}
		if err := c.transport.Ping(); err != nil {
			r.l.Debugf(ctx, "gateway.Registry.Sweep: ping %s: %v", c.id, err)
			r.Terminate(ctx, c, ReasonTransportClosed)
		}
	}
}

// RunHeartbeat sweeps every interval until ctx is done.
func (r *Registry) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) CloseAll(ctx context.Context, reason string) {
	for _, c := range r.snapshot() {
		r.Terminate(ctx, c, reason)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) IdentifiedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
