package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, state State) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps states in process memory. States not saved for ttl are
// dropped, matching the TTL of the redis-backed store; a zero ttl keeps them
// forever.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
}

type memoryEntry struct {
	state   State
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]memoryEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns the zero State for unknown or expired ids.
func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.states[id]
	if !ok || m.expired(e, m.now()) {
		return State{}, nil
	}
	return e.state, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.states {
		if m.expired(e, now) {
			delete(m.states, k)
		}
	}
	e := memoryEntry{state: state}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	m.states[id] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *MemoryStore) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

func (m *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

type kv interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// KVStore keeps JSON-encoded states in a key-value backend such as
// cache.RedisCache.
type KVStore struct {
	kv kv
}

func NewKVStore(backend kv) *KVStore {
	return &KVStore{kv: backend}
}

func (s *KVStore) Load(ctx context.Context, id string) (State, error) {
	var state State
	raw, found, err := s.kv.Get(ctx, id)
	if err != nil {
		return state, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return state, nil
	}
	if err := sonic.UnmarshalString(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return state, nil
}

func (s *KVStore) Save(ctx context.Context, id string, state State) error {
	raw, err := sonic.MarshalString(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := s.kv.Set(ctx, id, raw); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, id)
}
