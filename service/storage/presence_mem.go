package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryPresence is a process-local PresenceStore. It backs tests and
// single-node deployments that run without Redis. Clock is injectable
// for tests; nil means time.Now.
type MemoryPresence struct {
	mu    sync.Mutex
	byID  map[int]*memEntry
	Clock func() time.Time
}

type memEntry struct {
	rec      PresenceRecord
	expireAt time.Time
}

var _ PresenceStore = (*MemoryPresence)(nil)

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{byID: make(map[int]*memEntry)}
}

func (s *MemoryPresence) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// expired must be called with mu held.
func (s *MemoryPresence) expired(e *memEntry) bool {
	return !e.expireAt.IsZero() && s.now().After(e.expireAt)
}

func (s *MemoryPresence) Put(_ context.Context, rec *PresenceRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &memEntry{rec: *rec}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.byID[rec.UserID] = e
	return nil
}

func (s *MemoryPresence) Get(_ context.Context, userID int) (*PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[userID]
	if !ok || s.expired(e) {
		delete(s.byID, userID)
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

func (s *MemoryPresence) Delete(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, userID)
	return nil
}

func (s *MemoryPresence) CompareAndDelete(_ context.Context, userID int, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[userID]
	if !ok || s.expired(e) {
		delete(s.byID, userID)
		return false, nil
	}
	if e.rec.SessionID != sessionID {
		return false, nil
	}
	delete(s.byID, userID)
	return true, nil
}

func (s *MemoryPresence) Refresh(_ context.Context, userID int, lastActive int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[userID]
	if !ok || s.expired(e) {
		delete(s.byID, userID)
		return false, nil
	}
	e.rec.LastActive = lastActive
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	} else {
		e.expireAt = time.Time{}
	}
	return true, nil
}

func (s *MemoryPresence) DeleteIfStale(_ context.Context, userID int, cutoff int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[userID]
	if !ok {
		return false, nil
	}
	if s.expired(e) {
		delete(s.byID, userID)
		return true, nil
	}
	if e.rec.LastActive > cutoff {
		return false, nil
	}
	delete(s.byID, userID)
	return true, nil
}

func (s *MemoryPresence) ListAll(_ context.Context) ([]*PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PresenceRecord, 0, len(s.byID))
	for id, e := range s.byID {
		if s.expired(e) {
			delete(s.byID, id)
			continue
		}
		rec := e.rec
		out = append(out, &rec)
	}
	return out, nil
}
