package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing; swap for Postgres in production.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	entries  []Entry
	balances map[int64]int
}

// NewMemoryStore creates a new in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		balances: make(map[int64]int),
	}
}

// Append records an entry and assigns the next sequential ID.
func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// ByReference returns all entries for a reference, oldest first.
func (s *MemoryStore) ByReference(_ context.Context, refType string, refID int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Entry
	for _, e := range s.entries {
		if e.RefType == refType && e.RefID == refID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ByUser returns all entries for a user, newest first.
func (s *MemoryStore) ByUser(_ context.Context, userID int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].ID > result[k].ID
	})
	return result, nil
}

// Balance returns the current credit balance of a user.
func (s *MemoryStore) Balance(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return balance, nil
}

// SetBalance updates the stored balance of a user.
func (s *MemoryStore) SetBalance(_ context.Context, userID int64, balance int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
	return nil
}
