/*
Package session implements request-scoped session state for the pad server.

A Session couples an opaque ID with the identity attached to it. Sessions are
persisted through a Store (memory or PostgreSQL) and bound to browsers by a
signed cookie; see Manager. Destroy is asynchronous and reports completion on
a channel, so callers can wait for invalidation to finish before answering
the request.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"epguest/internal/app/user"
)

var (
	// ErrNotFound is returned by a Store when the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrDestroyed is returned when saving a session that has already been destroyed.
	ErrDestroyed = errors.New("session destroyed")
)

// Record is the persisted form of a session.
type Record struct {
	// Username of the attached identity, empty for an anonymous session.
	Username string

	// ExpiresAt is when the store may forget the record.
	ExpiresAt time.Time
}

// Store persists session records.
type Store interface {
	// Load returns the record for id, or ErrNotFound.
	Load(ctx context.Context, id string) (Record, error)

	// Save creates or replaces the record for id.
	Save(ctx context.Context, id string, rec Record) error

	// Delete removes the record for id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}

// Session is the state shared by every handler serving one request.
type Session struct {
	id     string
	store  Store
	maxAge time.Duration

	mu        sync.Mutex
	user      *user.User
	destroyed bool
}

// New returns an anonymous session with the given ID backed by store.
func New(id string, store Store, maxAge time.Duration) *Session {
	return &Session{id: id, store: store, maxAge: maxAge}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// User returns the identity attached to the session, or nil. A nil session has no user.
func (s *Session) User() *user.User {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Username returns the attached username, or "" for an anonymous session.
func (s *Session) Username() string {
	if u := s.User(); u != nil {
		return u.Username
	}
	return ""
}

// SetUser attaches u to the session. Call Save to persist the change.
func (s *Session) SetUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// Destroyed reports whether Destroy has been called.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Save persists the session. Saving a destroyed session returns ErrDestroyed.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	rec := Record{ExpiresAt: time.Now().Add(s.maxAge)}
	if s.user != nil {
		rec.Username = s.user.Username
	}
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.id, rec); err != nil {
		return fmt.Errorf("save session %s: %w", s.id, err)
	}
	return nil
}

// Destroy detaches the identity and removes the session from the store.
// The returned channel yields exactly one value (nil on success) once the
// store has finished, then is closed. Callers must receive from it before
// sending a response that depends on the session being gone.
func (s *Session) Destroy(ctx context.Context) <-chan error {
	s.mu.Lock()
	s.user = nil
	s.destroyed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := s.store.Delete(ctx, s.id); err != nil {
			done <- fmt.Errorf("destroy session %s: %w", s.id, err)
			return
		}
		done <- nil
	}()
	return done
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
