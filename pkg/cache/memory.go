package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type kind int

const (
	kindString kind = iota
	kindSet
	kindList
)

type item struct {
	kind      kind
	str       string
	set       map[string]struct{}
	list      []string
	expiresAt time.Time
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// MemoryCache is a process-local Cache. It mirrors the redis semantics the
// gateway relies on so a single instance can run without redis.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*item
	stop  chan struct{}
	once  sync.Once
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]*item),
		stop:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stop:
				return
			}
		}
	}()

	return c
}

func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}

// lookup must be called with mu held.
func (c *MemoryCache) lookup(key string, k kind) (*item, error) {
	it, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	if it.expired(time.Now()) {
		delete(c.items, key)
		return nil, nil
	}
	if it.kind != k {
		return nil, ErrWrongType
	}
	return it, nil
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindString)
	if err != nil {
		return "", err
	}
	if it == nil {
		return "", ErrNil
	}
	return it.str, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{kind: kindString, str: value, expiresAt: expiry(ttl)}
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok && !it.expired(time.Now()) {
		return false, nil
	}
	c.items[key] = &item{kind: kindString, str: value, expiresAt: expiry(ttl)}
	return true, nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemoryCache) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindString)
	if err != nil || it == nil || it.str != value {
		return false, err
	}
	delete(c.items, key)
	return true, nil
}

func (c *MemoryCache) Expire(_ context.Context, ttl time.Duration, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, k := range keys {
		it, ok := c.items[k]
		if !ok || it.expired(now) {
			continue
		}
		if ttl <= 0 {
			delete(c.items, k)
			continue
		}
		it.expiresAt = now.Add(ttl)
	}
	return nil
}

func (c *MemoryCache) SAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindSet)
	if err != nil {
		return err
	}
	if it == nil {
		it = &item{kind: kindSet, set: make(map[string]struct{})}
		c.items[key] = it
	}
	for _, m := range members {
		it.set[m] = struct{}{}
	}
	return nil
}

func (c *MemoryCache) SRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindSet)
	if err != nil || it == nil {
		return err
	}
	for _, m := range members {
		delete(it.set, m)
	}
	if len(it.set) == 0 {
		delete(c.items, key)
	}
	return nil
}

func (c *MemoryCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindSet)
	if err != nil || it == nil {
		return []string{}, err
	}
	out := make([]string, 0, len(it.set))
	for m := range it.set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out, nil
}

func (c *MemoryCache) SCard(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindSet)
	if err != nil || it == nil {
		return 0, err
	}
	return int64(len(it.set)), nil
}

func (c *MemoryCache) listFor(key string) (*item, error) {
	it, err := c.lookup(key, kindList)
	if err != nil {
		return nil, err
	}
	if it == nil {
		it = &item{kind: kindList}
		c.items[key] = it
	}
	return it, nil
}

// LPush inserts values one at a time at the head, so the last value ends up first.
func (c *MemoryCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.listFor(key)
	if err != nil {
		return err
	}
	head := make([]string, len(values))
	for i, v := range values {
		head[len(values)-1-i] = v
	}
	it.list = append(head, it.list...)
	return nil
}

func (c *MemoryCache) RPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.listFor(key)
	if err != nil {
		return err
	}
	it.list = append(it.list, values...)
	return nil
}

func (c *MemoryCache) LPop(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindList)
	if err != nil {
		return "", err
	}
	if it == nil || len(it.list) == 0 {
		return "", ErrNil
	}
	v := it.list[0]
	it.list = it.list[1:]
	if len(it.list) == 0 {
		delete(c.items, key)
	}
	return v, nil
}

func (c *MemoryCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindList)
	if err != nil || it == nil {
		return []string{}, err
	}
	lo, hi, ok := listBounds(int64(len(it.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(it.list[lo : hi+1]), nil
}

func (c *MemoryCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindList)
	if err != nil || it == nil {
		return err
	}
	lo, hi, ok := listBounds(int64(len(it.list)), start, stop)
	if !ok {
		delete(c.items, key)
		return nil
	}
	it.list = slices.Clone(it.list[lo : hi+1])
	return nil
}

func (c *MemoryCache) LLen(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.lookup(key, kindList)
	if err != nil || it == nil {
		return 0, err
	}
	return int64(len(it.list)), nil
}

func (c *MemoryCache) ReplaceList(_ context.Context, key string, values []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(values) == 0 {
		delete(c.items, key)
		return nil
	}
	c.items[key] = &item{kind: kindList, list: slices.Clone(values), expiresAt: expiry(ttl)}
	return nil
}
