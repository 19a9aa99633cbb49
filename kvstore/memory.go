package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	lists  map[string][][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		lists:  make(map[string][][]byte),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = cloneBytes(value)
	return nil
}

// Apply validates the whole batch, then writes it under a single lock
func (m *MemoryStore) Apply(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		if op.Kind < OpSet || op.Kind > OpPrepend {
			return fmt.Errorf("unsupported op %s on key %s", op.Kind, op.Key)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			m.values[op.Key] = cloneBytes(op.Value)
		case OpRemove:
			delete(m.values, op.Key)
			delete(m.lists, op.Key)
		case OpAppend:
			m.lists[op.Key] = append(m.lists[op.Key], cloneBytes(op.Value))
		case OpPrepend:
			m.lists[op.Key] = prependCapped(m.lists[op.Key], cloneBytes(op.Value), op.Max)
		}
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) Append(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[key] = append(m.lists[key], cloneBytes(value))
	return nil
}

func (m *MemoryStore) Prepend(ctx context.Context, key string, value []byte, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[key] = prependCapped(m.lists[key], cloneBytes(value), max)
	return nil
}

func prependCapped(list [][]byte, value []byte, max int) [][]byte {
	list = append([][]byte{value}, list...)
	if max > 0 && len(list) > max {
		list = list[:max]
	}
	return list
}

func (m *MemoryStore) List(ctx context.Context, key string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.lists[key]
	out := make([][]byte, len(src))
	for i, v := range src {
		out[i] = cloneBytes(v)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

var _ Store = (*MemoryStore)(nil)
