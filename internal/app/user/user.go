/*
Package user contains the identity records known to the server.

A User is an immutable snapshot once it has been handed out: code that wants a
different user builds a new value (see Clone) and registers it. The Registry is
the shared, settings-derived table of known users that authentication plugins
consult and may extend.
*/
package user

import (
	"sort"
	"sync"
)

// User represents an account that can be attached to a session.
// Fields use JSON tags for serialization in pad client messages.
type User struct {
	// Username is the unique login name; it is also the registry key.
	Username string `json:"username"`

	// DisplayName is the name shown to other editors.
	DisplayName string `json:"displayName"`

	// DisplayNameChangeable reports whether the user may rename themselves in a pad.
	DisplayNameChangeable bool `json:"displayNameChangeable"`

	// ReadOnly users may open pads but not change them.
	ReadOnly bool `json:"readOnly"`

	// IsAdmin grants access to administrative pages.
	IsAdmin bool `json:"isAdmin"`

	// Password is a plaintext password from settings. Never serialized.
	Password string `json:"-"`

	// PasswordHash is a bcrypt hash from settings. Never serialized.
	PasswordHash string `json:"-"`
}

// Clone returns a shallow copy of u; nil stays nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Registry is the concurrency-safe set of known users keyed by username.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewRegistry builds a Registry from the given users. Each entry is cloned and
// its Username forced to the map key.
func NewRegistry(users map[string]*User) *Registry {
	reg := &Registry{users: make(map[string]*User, len(users))}
	for name, u := range users {
		if u == nil {
			continue
		}
		c := u.Clone()
		c.Username = name
		reg.users[name] = c
	}
	return reg
}

// Lookup returns the user registered under username, or nil.
// A nil Registry has no users.
func (r *Registry) Lookup(username string) *User {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[username]
}

// Register stores u under u.Username, replacing any previous entry.
func (r *Registry) Register(u *User) {
	if r == nil || u == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.Username] = u
}

// Usernames returns the registered usernames in sorted order.
func (r *Registry) Usernames() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.users))
	for name := range r.users {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
