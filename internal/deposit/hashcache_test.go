package deposit

import (
	"testing"
	"time"
)

func TestHashCache_MarkSeen(t *testing.T) {
	c := NewHashCache()

	if c.Seen("aa") {
		t.Error("fresh cache should not know aa")
	}
	c.Mark("aa")
	if !c.Seen("aa") {
		t.Error("marked hash should be seen")
	}
	if c.Seen("bb") {
		t.Error("unmarked hash should not be seen")
	}
}

func TestHashCache_TTLExpiry(t *testing.T) {
	c := NewHashCache()
	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	c.Mark("aa")

	now = base.Add(HashCacheTTL - time.Second)
	if !c.Seen("aa") {
		t.Error("hash inside TTL should be seen")
	}

	now = base.Add(HashCacheTTL)
	if c.Seen("aa") {
		t.Error("hash at TTL should no longer be seen")
	}
}

func TestHashCache_Sweep(t *testing.T) {
	c := NewHashCache()
	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	c.Mark("old")
	now = base.Add(HashCacheTTL + time.Minute)
	c.Mark("new")

	c.Sweep()

	if c.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", c.Len())
	}
	if !c.Seen("new") {
		t.Error("fresh entry should survive the sweep")
	}
}
