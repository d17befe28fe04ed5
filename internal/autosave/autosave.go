// Package autosave debounces article mutations into save calls. Title
// and block edits feed one combined draft signal; after the quiescence
// window the whole draft is serialized and persisted in a single call.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"

	"github.com/medhayu/grantha"
)

// DefaultDelay is the quiescence window after the last edit before a
// save is issued.
const DefaultDelay = 2 * time.Second

// Draft is the full article state captured at the moment the timer
// fires.
type Draft struct {
	BookID    string
	ChapterID string
	Verse     string
	Title     string
	Blocks    []*grantha.ContentBlock
	Tags      []string
}

// SaveFunc persists a draft. It is the spec's persistence action.
type SaveFunc func(ctx context.Context, d Draft) error

// Coordinator owns the debounce window. Edits during an in-flight save
// are not blocked; the debounce window is the only backpressure. Save
// failures surface through the notice callback, leave in-memory state
// untouched, and are not retried — the next edit cycle re-attempts with
// the latest state.
type Coordinator struct {
	snapshot func() Draft
	save     SaveFunc
	notify   func(error)
	debounce func(func())

	mu       sync.Mutex
	loaded   bool
	lastSave time.Time
	lastErr  error
}

// New creates a coordinator. snapshot captures the current draft, save
// persists it, notify (optional) surfaces failures to the user.
func New(delay time.Duration, snapshot func() Draft, save SaveFunc, notify func(error)) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coordinator{
		snapshot: snapshot,
		save:     save,
		notify:   notify,
		debounce: debounce.New(delay),
	}
}

// MarkLoaded opens the gate. Changes before the initial data has fully
// loaded never trigger a save, preventing a spurious save-of-nothing.
func (c *Coordinator) MarkLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
}

// Changed signals a block or title mutation. Each call resets the
// quiescence timer; the save reflects whatever the state is when the
// timer finally fires.
func (c *Coordinator) Changed() {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		return
	}
	c.debounce(c.fire)
}

// Flush saves immediately, bypassing the debounce window. Used on
// shutdown.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		return nil
	}
	return c.doSave(ctx)
}

// Status returns the time and error of the last completed save attempt.
func (c *Coordinator) Status() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSave, c.lastErr
}

func (c *Coordinator) fire() {
	if err := c.doSave(context.Background()); err != nil {
		logrus.Warnf("autosave: save failed: %v", err)
		if c.notify != nil {
			c.notify(err)
		}
	}
}

func (c *Coordinator) doSave(ctx context.Context) error {
	d := c.snapshot()
	err := c.save(ctx, d)

	c.mu.Lock()
	c.lastSave = time.Now()
	c.lastErr = err
	c.mu.Unlock()
	return err
}
