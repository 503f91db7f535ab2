// Package session stores server-side wizard sessions.
//
// A session is a wizard snapshot plus its ID and expiry. The server loads the
// snapshot, restores a wizard from it, applies the request and stores the new
// snapshot back, so any instance sharing the store can serve the next request.
//
//	store := session.NewMemoryStore()                      // single instance
//	store, err := session.NewRedisStore(ctx, redisOptions) // shared
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/frederic-klein/eapkg/internal/wizard"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an untouched session lives.
const DefaultTTL = 2 * time.Hour

// Session is a stored wizard session.
type Session struct {
	ID        string          `json:"id"`
	Profile   string          `json:"profile,omitempty"`
	State     wizard.Snapshot `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// New creates a session with a fresh ID.
func New(profile string, state wizard.Snapshot, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Profile:   profile,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch moves the expiry ttl into the future.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session until its ExpiresAt.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions. May be a no-op.
	Cleanup(ctx context.Context) error
}
