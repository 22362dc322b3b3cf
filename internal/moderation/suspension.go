package moderation

import (
	"sync"
	"time"
)

// SuspensionStore tracks per-user chat suspensions ("muted until").
//
// IsSuspended returns the time left on an active suspension. A record whose
// expiry is at or before now is treated as absent and may be evicted.
// Suspend replaces any existing record; a zero duration clears it.
type SuspensionStore interface {
	IsSuspended(userID string, now time.Time) (time.Duration, bool)
	Suspend(userID string, now time.Time, d time.Duration)
}

// MemSuspensionStore is an in-process SuspensionStore guarded by a single
// mutex. Records are evicted lazily when an expired record is looked up, or
// in bulk by Sweep; records of users who never chat again are otherwise kept.
type MemSuspensionStore struct {
	mu      sync.Mutex
	records map[string]time.Time // userID -> expires at
}

// NewMemSuspensionStore creates an empty store.
func NewMemSuspensionStore() *MemSuspensionStore {
	return &MemSuspensionStore{
		records: make(map[string]time.Time),
	}
}

// IsSuspended returns the remaining suspension for userID, or false if the
// user has no active record. Expired records are deleted on observation.
func (s *MemSuspensionStore) IsSuspended(userID string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.records[userID]
	if !ok {
		return 0, false
	}

	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		delete(s.records, userID)
		return 0, false
	}
	return remaining, true
}

// Suspend sets userID's suspension to expire at now+d, overwriting any
// pending suspension even if it would have lasted longer. d <= 0 removes the
// record.
func (s *MemSuspensionStore) Suspend(userID string, now time.Time, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d <= 0 {
		delete(s.records, userID)
		return
	}
	s.records[userID] = now.Add(d)
}

// Sweep deletes every record that has expired by now and returns how many
// were removed.
func (s *MemSuspensionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, expiresAt := range s.records {
		if !expiresAt.After(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired or not.
func (s *MemSuspensionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
