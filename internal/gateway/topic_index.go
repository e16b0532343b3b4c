package gateway

import (
	"slices"
	"sync"
)

// TopicIndex maps topics to subscribed connections and back. Topics are
// dropped as soon as their last subscriber leaves.
type TopicIndex struct {
	mu         sync.RWMutex
	topics     map[string]map[*Conn]struct{}
	byConn     map[*Conn]map[string]struct{}
	maxPerConn int
}

// NewTopicIndex builds an index; maxPerConn <= 0 disables the per-connection cap.
func NewTopicIndex(maxPerConn int) *TopicIndex {
	return &TopicIndex{
		topics:     make(map[string]map[*Conn]struct{}),
		byConn:     make(map[*Conn]map[string]struct{}),
		maxPerConn: maxPerConn,
	}
}

func (t *TopicIndex) Subscribe(c *Conn, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Checked under the index lock so a terminated connection is never re-added.
	if c.IsClosed() {
		return ErrConnClosed
	}

	owned := t.byConn[c]
	if t.maxPerConn > 0 {
		added := 0
		for _, topic := range topics {
			if _, ok := owned[topic]; !ok {
				added++
			}
		}
		if len(owned)+added > t.maxPerConn {
			return ErrTooManyTopics
		}
	}

	if owned == nil {
		owned = make(map[string]struct{}, len(topics))
		t.byConn[c] = owned
	}

	for _, topic := range topics {
		subs, ok := t.topics[topic]
		if !ok {
			subs = make(map[*Conn]struct{})
			t.topics[topic] = subs
		}
		subs[c] = struct{}{}
		owned[topic] = struct{}{}
	}

	return nil
}

func (t *TopicIndex) Unsubscribe(c *Conn, topics ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, topic := range topics {
		t.removeLocked(c, topic)
	}
}

// RemoveConn drops every subscription held by c and returns the topics it had.
func (t *TopicIndex) RemoveConn(c *Conn) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	owned := t.byConn[c]
	removed := make([]string, 0, len(owned))
	for topic := range owned {
		removed = append(removed, topic)
		t.removeLocked(c, topic)
	}
	delete(t.byConn, c)
	return removed
}

func (t *TopicIndex) removeLocked(c *Conn, topic string) {
	if subs, ok := t.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(t.topics, topic)
		}
	}

	if owned, ok := t.byConn[c]; ok {
		delete(owned, topic)
		if len(owned) == 0 {
			delete(t.byConn, c)
		}
	}
}

// Publish sends data to every subscriber of topic except the connection with
// id excludeConnID. Subscribers that cannot take the frame right now are
// skipped. It returns the number of connections that accepted the frame.
func (t *TopicIndex) Publish(topic string, data []byte, excludeConnID string) int {
	t.mu.RLock()
	subs := make([]*Conn, 0, len(t.topics[topic]))
	for c := range t.topics[topic] {
		subs = append(subs, c)
	}
	t.mu.RUnlock()

	delivered := 0
	for _, c := range subs {
		if excludeConnID != "" && c.ID() == excludeConnID {
			continue
		}
		if c.Send(data) {
			delivered++
		}
	}
	return delivered
}

func (t *TopicIndex) Topics(c *Conn) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.byConn[c]))
	for topic := range t.byConn[c] {
		out = append(out, topic)
	}
	slices.Sort(out)
	return out
}

func (t *TopicIndex) IsSubscribed(c *Conn, topic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.topics[topic][c]
	return ok
}

func (t *TopicIndex) SubscriberCount(topic string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.topics[topic])
}

func (t *TopicIndex) TopicCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.topics)
}
