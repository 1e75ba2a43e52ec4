package storage

import (
	"context"
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

const DefaultRoom = "public"

// PresenceRecord is the ephemeral per-user online state. At most one
// record exists per user id; SessionID names the live connection that
// owns it. Timestamps are unix seconds so the backing store can
// compare them without parsing.
type PresenceRecord struct {
	UserID     int            `json:"userId"`
	Username   string         `json:"username"`
	Nickname   string         `json:"nickname"`
	SessionID  string         `json:"sessionId"`
	Status     PresenceStatus `json:"status"`
	LastActive int64          `json:"lastActive"`
	LoginAt    int64          `json:"loginAt"`
	RoomID     string         `json:"roomId"`
}

// PresenceStore is the time-bounded registry of online users. The
// registry is both cache and source of truth; entries expire on their
// own after the inactivity window unless refreshed by Put.
//
// CompareAndDelete and DeleteIfStale must be atomic at the store
// level: handlers run in arbitrarily many goroutines, possibly across
// processes, and must not need an external lock.
type PresenceStore interface {
	// Put upserts the record and resets its expiry clock.
	Put(ctx context.Context, rec *PresenceRecord, ttl time.Duration) error
	// Get returns (nil, nil) when the user has no record.
	Get(ctx context.Context, userID int) (*PresenceRecord, error)
	// Delete removes unconditionally.
	Delete(ctx context.Context, userID int) error
	// CompareAndDelete removes only if the stored record's session id
	// equals sessionID. Returns whether a record was removed; false is
	// the expected outcome for a superseded session, not an error.
	CompareAndDelete(ctx context.Context, userID int, sessionID string) (bool, error)
	// Refresh rewrites lastActive and resets the expiry clock, but
	// only while a record exists. Returns whether one did; a refresh
	// must never resurrect a record a concurrent delete removed.
	Refresh(ctx context.Context, userID int, lastActive int64, ttl time.Duration) (bool, error)
	// DeleteIfStale removes only if the stored record's lastActive is
	// at or before cutoff (unix seconds). A record refreshed after the
	// caller read it survives.
	DeleteIfStale(ctx context.Context, userID int, cutoff int64) (bool, error)
	// ListAll returns a point-in-time snapshot, not a live view.
	ListAll(ctx context.Context) ([]*PresenceRecord, error)
}
