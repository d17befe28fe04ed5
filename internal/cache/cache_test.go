package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewMemory()
	defer c.Stop()

	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	if !ok || v.(string) != "v" {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get found an absent key")
	}
}

func TestExpiry(t *testing.T) {
	c := NewMemory()
	defer c.Stop()

	c.Set("k", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, expired entry not removed on access", c.Len())
	}
}

func TestSetOverwrites(t *testing.T) {
	c := NewMemory()
	defer c.Stop()

	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Minute)
	v, _ := c.Get("k")
	if v.(string) != "new" {
		t.Errorf("Get = %v", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	c := NewMemory()
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated entry returned")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("unrelated entry lost")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Len = %d after InvalidateAll", c.Len())
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := &Memory{
		entries:         make(map[string]*entry),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	c.Set("stale", 1, -time.Second)
	c.Set("fresh", 2, time.Minute)
	c.cleanup()
	if c.Len() != 1 {
		t.Errorf("Len = %d after cleanup, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry removed by cleanup")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := NewMemory()
	c.Stop()
	c.Stop()
}
