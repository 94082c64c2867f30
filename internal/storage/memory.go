package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps session storage in process memory. Like the Redis
// backend, an area expires ttl after its last write; expired areas read as
// empty and are reclaimed by Expire.
type MemoryBackend struct {
	mu      sync.RWMutex
	data    map[string]map[string]string
	written map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryBackend returns an empty in-memory backend. A ttl of zero keeps
// areas until they are purged.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		data:    make(map[string]map[string]string),
		written: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Scope returns the Local area for sessionKey.
func (b *MemoryBackend) Scope(sessionKey string) Local {
	return &memoryLocal{backend: b, session: sessionKey}
}

// Purge drops every key of the session.
func (b *MemoryBackend) Purge(_ context.Context, sessionKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(sessionKey)
	return nil
}

// Expire reclaims areas whose last write is older than the ttl at now and
// returns how many were dropped.
func (b *MemoryBackend) Expire(now time.Time) int {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for key, at := range b.written {
		if b.expiredAt(at, now) {
			b.dropLocked(key)
			n++
		}
	}
	return n
}

func (b *MemoryBackend) expiredAt(written, now time.Time) bool {
	return b.ttl > 0 && !now.Before(written.Add(b.ttl))
}

func (b *MemoryBackend) dropLocked(sessionKey string) {
	delete(b.data, sessionKey)
	delete(b.written, sessionKey)
}

type memoryLocal struct {
	backend *MemoryBackend
	session string
}

func (m *memoryLocal) Get(_ context.Context, key string) (string, bool, error) {
	b := m.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if at, ok := b.written[m.session]; ok && b.expiredAt(at, b.now()) {
		return "", false, nil
	}
	v, ok := b.data[m.session][key]
	return v, ok, nil
}

func (m *memoryLocal) Set(_ context.Context, key, value string) error {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	area, ok := b.data[m.session]
	if !ok || b.expiredAt(b.written[m.session], now) {
		area = make(map[string]string)
		b.data[m.session] = area
	}
	area[key] = value
	b.written[m.session] = now
	return nil
}

func (m *memoryLocal) Delete(_ context.Context, key string) error {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data[m.session], key)
	return nil
}
