package session

import (
	"context"
	"sync"
	"time"

	"github.com/adargal/pelles/internal/domain"
)

// sessionEntry holds one stored comparison with its own lock so overrides
// on the same comparison id are serialized without blocking other ids.
type sessionEntry struct {
	mu         sync.Mutex
	comparison *domain.Comparison
	expiration time.Time
}

// MemoryStore is a thread-safe in-memory session store with TTL eviction.
// Get and Update hand out deep copies so callers can serialize a session
// while another request mutates it.
type MemoryStore struct {
	mutex    sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
}

// NewMemoryStore creates a session store whose sessions expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
	}

	// Cleanup goroutine removes expired sessions every 10 minutes
	go store.cleanupExpired()

	return store
}

// Get returns a snapshot of the session, or ErrComparisonNotFound.
func (s *MemoryStore) Get(ctx context.Context, comparisonID string) (*domain.Comparison, error) {
	entry, err := s.lookup(comparisonID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.comparison.Clone(), nil
}

// Put stores a snapshot of the comparison under its id.
func (s *MemoryStore) Put(ctx context.Context, comparisonID string, comparison *domain.Comparison) error {
	entry := &sessionEntry{
		comparison: comparison.Clone(),
		expiration: time.Now().Add(s.ttl),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[comparisonID] = entry
	return nil
}

// Update applies fn to the stored session while holding that session's
// lock, then returns a snapshot of the result. The session's expiration is
// refreshed, since an override means the user is still working with it.
func (s *MemoryStore) Update(ctx context.Context, comparisonID string, fn func(*domain.Comparison)) (*domain.Comparison, error) {
	entry, err := s.lookup(comparisonID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	fn(entry.comparison)
	entry.expiration = time.Now().Add(s.ttl)
	return entry.comparison.Clone(), nil
}

// Remove deletes the session if present.
func (s *MemoryStore) Remove(ctx context.Context, comparisonID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, comparisonID)
}

// lookup finds a live entry under the map lock. Expired entries count as
// not found even before the janitor removes them.
func (s *MemoryStore) lookup(comparisonID string) (*sessionEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.sessions[comparisonID]
	if !exists || time.Now().After(entry.expiration) {
		return nil, domain.ErrComparisonNotFound
	}
	return entry, nil
}

// cleanupExpired removes expired sessions periodically
func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mutex.Lock()
		now := time.Now()
		for id, entry := range s.sessions {
			if now.After(entry.expiration) {
				delete(s.sessions, id)
			}
		}
		s.mutex.Unlock()
	}
}

// Size returns the current number of stored sessions (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}
