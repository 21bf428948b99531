package testutil

import (
	"context"
	"sync"
	"time"
)

// KV is an in-memory cache.KV. Setting Down makes every call fail.
type KV struct {
	mu      sync.Mutex
	data    map[string][]byte
	expires map[string]time.Time
	Now     func() time.Time
	Down    bool
}

func NewKV() *KV {
	return &KV{
		data:    make(map[string][]byte),
		expires: make(map[string]time.Time),
		Now:     time.Now,
	}
}

func (m *KV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return nil, ErrInjected
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	if exp, ok := m.expires[key]; ok && !m.Now().Before(exp) {
		delete(m.data, key)
		delete(m.expires, key)
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *KV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return ErrInjected
	}
	m.data[key] = append([]byte(nil), value...)
	if ttl > 0 {
		m.expires[key] = m.Now().Add(ttl)
	} else {
		delete(m.expires, key)
	}
	return nil
}

func (m *KV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return ErrInjected
	}
	delete(m.data, key)
	delete(m.expires, key)
	return nil
}

// Has reports whether key is present, ignoring expiry
func (m *KV) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// TTL returns the remaining lifetime of key
func (m *KV) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[key]
	if !ok {
		return 0
	}
	return exp.Sub(m.Now())
}
