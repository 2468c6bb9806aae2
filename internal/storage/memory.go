package storage

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// Memory keeps values in process. A positive maxBytes caps the combined
// size of keys and values, rejecting writes that would exceed it.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	maxBytes int
	logg     *logger.Logger
}

// NewMemory returns an empty in-memory store.
func NewMemory(maxBytes int, logg *logger.Logger) *Memory {
	return &Memory{data: map[string][]byte{}, maxBytes: maxBytes, logg: logg}
}

func (m *Memory) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return decodeInto(ctx, m.logg, key, raw, dest), nil
}

func (m *Memory) Set(ctx context.Context, key string, value any) error {
	return m.Apply(ctx, SetOp(key, value))
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	return m.Apply(ctx, RemoveOp(key))
}

// Apply builds the next map on a copy and swaps it in only when it fits.
func (m *Memory) Apply(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "memory store write cancelled")
	}
	encoded, err := encodeOps(ops)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string][]byte, len(m.data)+len(encoded))
	for k, v := range m.data {
		next[k] = v
	}
	for _, op := range encoded {
		if op.isDelete() {
			delete(next, op.key)
			continue
		}
		next[op.key] = op.data
	}

	if m.maxBytes > 0 {
		if used := sizeOf(next); used > m.maxBytes {
			return pkgerrors.New(pkgerrors.CodeStorage, "storage quota exceeded").
				WithDetails(map[string]any{"used_bytes": used, "max_bytes": m.maxBytes})
		}
	}

	m.data = next
	return nil
}

// Len reports how many keys are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Raw returns the stored bytes for key.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.data[key]
	return raw, ok
}

// Put writes raw bytes without encoding, for seeding tests with arbitrary payloads.
func (m *Memory) Put(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
}

func sizeOf(data map[string][]byte) int {
	total := 0
	for k, v := range data {
		total += len(k) + len(v)
	}
	return total
}
