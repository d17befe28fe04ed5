// Package suggest implements the trigger-character-driven autocomplete
// used to insert citations and quotes at the cursor. Each trigger runs
// its own small state machine: Idle until the trigger character is typed
// in an allowed position, Open while a live query refetches candidates,
// back to Idle on commit or cancel.
package suggest

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultLimit bounds the candidate list when a trigger does not set
// its own limit.
const DefaultLimit = 5

// Item is one candidate row.
type Item struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}

// Fetcher returns candidates for a query, truncated to limit.
type Fetcher func(ctx context.Context, query string, limit int) ([]Item, error)

// Resolver resolves a committed candidate into the markup to insert.
type Resolver func(ctx context.Context, id string) (string, error)

// Cursor describes where the trigger was typed, for Allow predicates.
type Cursor struct {
	BlockID          string
	ParagraphText    string
	AtParagraphStart bool
}

// Trigger configures one trigger character.
type Trigger struct {
	Prefix  string
	Allow   func(Cursor) bool
	Limit   int
	Fetch   Fetcher
	Resolve Resolver
}

// State of the engine.
type State int

const (
	Idle State = iota
	Open
)

// Engine drives one trigger's suggestion flow. Keystrokes arrive faster
// than network resolution; results are applied last-query-wins — a
// stale fetch never overwrites a newer query's candidates.
type Engine struct {
	trigger Trigger

	mu         sync.Mutex
	state      State
	query      string
	seq        uint64
	candidates []Item
	selected   int

	// onCandidates is invoked (outside the lock) whenever the visible
	// candidate list changes.
	onCandidates func(query string, items []Item)
}

// NewEngine creates an engine for a trigger.
func NewEngine(t Trigger) *Engine {
	if t.Limit <= 0 {
		t.Limit = DefaultLimit
	}
	return &Engine{trigger: t}
}

// OnCandidates registers the re-render callback.
func (e *Engine) OnCandidates(fn func(query string, items []Item)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCandidates = fn
}

// TryOpen transitions Idle→Open when the trigger is typed at an allowed
// cursor position. It reports whether the dialog opened.
func (e *Engine) TryOpen(ctx context.Context, at Cursor) bool {
	if e.trigger.Allow != nil && !e.trigger.Allow(at) {
		return false
	}
	e.mu.Lock()
	e.state = Open
	e.query = ""
	e.candidates = nil
	e.selected = 0
	e.mu.Unlock()

	e.Input(ctx, "")
	return true
}

// Input updates the live query and refetches candidates asynchronously.
func (e *Engine) Input(ctx context.Context, query string) {
	e.mu.Lock()
	if e.state != Open {
		e.mu.Unlock()
		return
	}
	e.query = query
	e.seq++
	seq := e.seq
	limit := e.trigger.Limit
	e.mu.Unlock()

	go func() {
		items, err := e.trigger.Fetch(ctx, query, limit)
		if err != nil {
			logrus.Debugf("suggest: fetch for %q failed: %v", query, err)
			return
		}
		if len(items) > limit {
			items = items[:limit]
		}
		e.apply(seq, query, items)
	}()
}

// apply installs fetched candidates unless a newer query superseded
// this one.
func (e *Engine) apply(seq uint64, query string, items []Item) {
	e.mu.Lock()
	if e.state != Open || seq != e.seq {
		e.mu.Unlock()
		return
	}
	e.candidates = items
	if e.selected >= len(items) {
		e.selected = 0
	}
	fn := e.onCandidates
	e.mu.Unlock()

	if fn != nil {
		fn(query, items)
	}
}

// Move advances the selection cursor circularly through the list.
func (e *Engine) Move(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.candidates)
	if e.state != Open || n == 0 {
		return
	}
	e.selected = ((e.selected+delta)%n + n) % n
}

// Selected returns the highlighted candidate.
func (e *Engine) Selected() (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Open || len(e.candidates) == 0 {
		return Item{}, false
	}
	return e.candidates[e.selected], true
}

// Commit resolves the highlighted candidate into markup and returns to
// Idle. A failed resolution is a silent no-op: the caller deletes the
// trigger range either way and inserts nothing.
func (e *Engine) Commit(ctx context.Context) (string, bool) {
	e.mu.Lock()
	if e.state != Open || len(e.candidates) == 0 {
		e.state = Idle
		e.mu.Unlock()
		return "", false
	}
	item := e.candidates[e.selected]
	e.state = Idle
	e.candidates = nil
	e.mu.Unlock()

	body, err := e.trigger.Resolve(ctx, item.ID)
	if err != nil || body == "" {
		logrus.Debugf("suggest: resolve of %q failed: %v", item.ID, err)
		return "", false
	}
	return body, true
}

// Cancel returns to Idle without committing.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Idle
	e.candidates = nil
	e.query = ""
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Query returns the live query string.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Candidates returns the visible candidate list.
func (e *Engine) Candidates() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Item, len(e.candidates))
	copy(out, e.candidates)
	return out
}
