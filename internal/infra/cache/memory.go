package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
)

// Memory is a process-local query cache. Values are stored encoded so every
// hit decodes a private copy.
type Memory struct {
	mu         sync.RWMutex
	ttl        time.Duration
	generation uint64
	entries    map[string]memoryEntry
	now        func() time.Time
}

type memoryEntry struct {
	generation uint64
	payload    []byte
	expires    time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	gen := m.generation
	m.mu.RUnlock()
	if !ok || entry.generation != gen {
		return false, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{generation: m.generation, payload: payload}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

// Invalidate starts a new generation; older entries are dropped lazily.
func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	clear(m.entries)
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ middleware.QueryCache = (*Memory)(nil)
