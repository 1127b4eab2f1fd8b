package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
)

// ErrResultNotFound is returned when no result is stored for a job, or it
// has expired.
var ErrResultNotFound = errors.New("result not found")

// ResultStore keeps comparison results of finished jobs.
// Implementations must be safe for concurrent use.
type ResultStore interface {
	Save(ctx context.Context, jobID string, result *experiment.Comparison) error
	Load(ctx context.Context, jobID string) (*experiment.Comparison, error)
	Delete(ctx context.Context, jobID string) error

	// Backend names the implementation for health reporting
	Backend() string
	Close() error
}

type memoryEntry struct {
	result    *experiment.Comparison
	expiresAt time.Time
}

// MemoryStore keeps results in process memory with a TTL
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of zero keeps results
// until they are deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(ctx context.Context, jobID string, result *experiment.Comparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{result: result}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[jobID] = entry
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, jobID string) (*experiment.Comparison, error) {
	m.mu.RLock()
	entry, exists := m.entries[jobID]
	m.mu.RUnlock()

	if !exists || m.expired(entry) {
		return nil, ErrResultNotFound
	}
	return entry.result, nil
}

func (m *MemoryStore) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, jobID)
	return nil
}

// Sweep drops expired results and returns how many were removed
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jobID, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, jobID)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Backend() string { return "memory" }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)
}
