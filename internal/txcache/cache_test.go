package txcache

import (
	"context"
	"testing"
	"time"

	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

func sample() []parser.ParsedTransaction {
	return []parser.ParsedTransaction{{
		Hash:   "aa",
		To:     "TTarget",
		Amount: "5",
		Status: parser.StatusSuccess,
	}}
}

func TestCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryKV(), "tron", 10*time.Minute)

	_, ok, err := c.Get(ctx, "TTarget")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Fatal("empty cache should miss")
	}

	if err := c.Put(ctx, "TTarget", sample()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	txs, ok, err := c.Get(ctx, "TTarget")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("populated cache should hit")
	}
	if len(txs) != 1 || txs[0].Hash != "aa" {
		t.Errorf("Get() = %+v", txs)
	}
}

func TestCache_ExpiryByStoredTimestamp(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := New(kv, "tron", 10*time.Minute)

	base := time.Now()
	now := base
	c.now = func() time.Time { return now }
	kv.now = func() time.Time { return now }

	if err := c.Put(ctx, "TTarget", sample()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Just inside the TTL: hit.
	now = base.Add(10*time.Minute - time.Second)
	if _, ok, _ := c.Get(ctx, "TTarget"); !ok {
		t.Error("record inside TTL should hit")
	}

	// At the TTL boundary: miss.
	now = base.Add(10 * time.Minute)
	if _, ok, _ := c.Get(ctx, "TTarget"); ok {
		t.Error("record at TTL should miss")
	}
}

func TestCache_CorruptRecordIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := New(kv, "tron", 10*time.Minute)

	key := c.key("TTarget")
	if err := kv.SetEX(ctx, key, "{not json", time.Minute); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Get(ctx, "TTarget")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("corrupt record should behave like a miss")
	}
}

func TestCache_KeyFormat(t *testing.T) {
	c := New(NewMemoryKV(), "tron", time.Minute)
	want := "wallet:TTarget:transactions:tron"
	if got := c.key("TTarget"); got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}
