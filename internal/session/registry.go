package session

import (
	"sync"
)

// Registry maps block ids to editor sessions. It is the one piece of
// shared state touched by the toolbar, the annotation panel and the
// block list, so it is handed to those components explicitly rather
// than reached through a package global. Every Register during a
// block's mount must have a matching Unregister on unmount or sessions
// silently accumulate.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	active   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds a session under its block id. Registering over an
// existing id closes the old session first.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[s.ID()]; ok && old != s {
		old.Close()
	}
	r.sessions[s.ID()] = s
}

// Unregister removes the session for a block id and disposes its
// resources. It reports whether a session was registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Close()
	delete(r.sessions, id)
	if r.active == id {
		r.active = ""
	}
	return true
}

// Get returns the session for a block id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SetActive marks a block's session as the focused one. At most one
// session is active; any previously active session is blurred. It
// reports whether the id was registered.
func (r *Registry) SetActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if r.active != "" && r.active != id {
		if prev, ok := r.sessions[r.active]; ok {
			prev.Blur()
		}
	}
	r.active = id
	s.Focus()
	return true
}

// ClearActive blurs the active session, if any.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return
	}
	if s, ok := r.sessions[r.active]; ok {
		s.Blur()
	}
	r.active = ""
}

// Active returns the focused session, if any.
func (r *Registry) Active() (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return nil, false
	}
	s, ok := r.sessions[r.active]
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close disposes every session and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
	r.active = ""
}
