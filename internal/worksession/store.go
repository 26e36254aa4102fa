// Package worksession tracks which proposal a staff member is currently
// building. The pointer is advisory: losing it never loses data, the staff
// member just re-selects a customer.
package worksession

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultTTL bounds how long a stale pointer survives.
const DefaultTTL = 12 * time.Hour

type Store interface {
	Set(ctx context.Context, staffID, proposalID snowflake.ID) error
	Get(ctx context.Context, staffID snowflake.ID) (snowflake.ID, bool, error)
	Clear(ctx context.Context, staffID snowflake.ID) error
}

type memoryEntry struct {
	proposalID snowflake.ID
	expiresAt  time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[snowflake.ID]memoryEntry
	ttl     time.Duration
}

func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[snowflake.ID]memoryEntry),
		ttl:     DefaultTTL,
	}
}

func (s *memoryStore) Set(_ context.Context, staffID, proposalID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[staffID] = memoryEntry{
		proposalID: proposalID,
		expiresAt:  time.Now().Add(s.ttl),
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, staffID snowflake.ID) (snowflake.ID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[staffID]
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, staffID)
		return 0, false, nil
	}
	return entry.proposalID, true, nil
}

func (s *memoryStore) Clear(_ context.Context, staffID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, staffID)
	return nil
}
