package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore — in-memory реализация Store с поддержкой TTL.
// Используется в тестах и при локальной разработке без Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memItem
}

type memItem struct {
	value   string
	expires time.Time // zero — без срока
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memItem)}
}

func (m *MemoryStore) get(key string) (memItem, bool) {
	it, ok := m.items[key]
	if !ok {
		return memItem{}, false
	}
	if !it.expires.IsZero() && time.Now().After(it.expires) {
		delete(m.items, key)
		return memItem{}, false
	}
	return it, true
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return it.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memItem{value: value}
	if ttl > 0 {
		it.expires = time.Now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(key)
	n := int64(0)
	if ok {
		parsed, err := strconv.ParseInt(it.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	// INCR сохраняет прежний TTL ключа, как в Redis
	m.items[key] = memItem{value: strconv.FormatInt(n, 10), expires: it.expires}
	return n, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(key)
	if !ok {
		return nil
	}
	it.expires = time.Now().Add(ttl)
	m.items[key] = it
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.get(key)
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
