package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	memStore struct {
		// serializes read-modify-write in Touch against Destroy, bigcache
		// only locks single operations
		mu    sync.Mutex
		cache *bigcache.BigCache
		now   func() time.Time
	}
)

// InMemoryStore keeps sessions in a bigcache instance. Entries are evicted
// by bigcache once they have not been written for idle, and Load also
// rejects payloads past their own expiry, so a restart or an eviction
// simply logs the user out.
func InMemoryStore(idle time.Duration) (Store, error) {
	cfg := bigcache.DefaultConfig(idle)
	cfg.CleanWindow = idle / 4
	if cfg.CleanWindow < time.Second {
		cfg.CleanWindow = time.Second
	}
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create in-memory session cache, cause %w", err)
	}
	return &memStore{
		cache: cache,
		now:   time.Now,
	}, nil
}

func (m *memStore) Create(ctx context.Context, p Payload) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	if err := m.put(id, p); err != nil {
		return "", err
	}
	return id, nil
}

func (m *memStore) Load(ctx context.Context, id string) (Payload, error) {
	buf, err := m.cache.Get(id)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Payload{}, ErrNotFound
	} else if err != nil {
		return Payload{}, fmt.Errorf("unable to read session, cause %w", err)
	}
	var p Payload
	if err := json.Unmarshal(buf, &p); err != nil {
		return Payload{}, fmt.Errorf("unable to decode session, cause %w", err)
	}
	if p.Expired(m.now()) {
		m.cache.Delete(id)
		return Payload{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.Load(ctx, id)
	if err != nil {
		return err
	}
	p.ExpiresAt = expiresAt
	return m.put(id, p)
}

func (m *memStore) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.cache.Delete(id)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("unable to destroy session, cause %w", err)
	}
	return nil
}

// Sweep walks the cache and drops expired payloads. bigcache evicts idle
// entries on its own, this only catches entries that were touched with a
// shorter expiry than the cache life window.
func (m *memStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	var expired []string
	it := m.cache.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			// entry evicted while iterating
			continue
		}
		var p Payload
		if err := json.Unmarshal(entry.Value(), &p); err != nil || p.Expired(now) {
			expired = append(expired, entry.Key())
		}
	}
	for _, k := range expired {
		m.cache.Delete(k)
	}
	return len(expired), nil
}

func (m *memStore) put(id string, p Payload) error {
	buf, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("unable to encode session, cause %w", err)
	}
	if err := m.cache.Set(id, buf); err != nil {
		return fmt.Errorf("unable to store session, cause %w", err)
	}
	return nil
}
