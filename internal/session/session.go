// Package session tracks the per-block editing surfaces of an open
// article and the registry that lets the toolbar and annotation panel
// address the currently focused one.
package session

import (
	"sync"
)

// Session is one block's editing surface. It owns the block's undo
// history and focus state. External content changes are applied only
// while the surface is unfocused — a focused surface holds in-flight
// keystrokes that must not be clobbered.
type Session struct {
	mu      sync.Mutex
	id      string
	content string
	focused bool
	closed  bool
	undo    []string
}

// New creates a session for a block with its initial content.
func New(id, content string) *Session {
	return &Session{id: id, content: content}
}

// ID returns the owning block's id.
func (s *Session) ID() string { return s.id }

// Focus marks the surface as holding focus.
func (s *Session) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = true
}

// Blur releases focus. A subsequent external change will be reflected.
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = false
}

// Focused reports whether the surface currently holds focus.
func (s *Session) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Edit records a user edit, pushing the previous content onto the undo
// stack.
func (s *Session) Edit(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || content == s.content {
		return
	}
	s.undo = append(s.undo, s.content)
	s.content = content
}

// Sync applies an externally originated content change. It reports
// whether the change was applied; a focused or closed surface rejects
// it. Synchronization is one-directional and downstream only.
func (s *Session) Sync(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.focused {
		return false
	}
	s.content = content
	return true
}

// Content returns the surface's current content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Undo reverts the last user edit and returns the restored content.
func (s *Session) Undo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.undo) == 0 {
		return s.content, false
	}
	s.content = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return s.content, true
}

// Close disposes the session's internal resources. A closed session
// rejects edits and syncs. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.focused = false
	s.undo = nil
}

// Closed reports whether the session has been disposed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
