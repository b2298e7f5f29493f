// Package txcache is a read-through cache of an address's recent parsed
// transactions, backed by an external key-value store.
package txcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

// ErrMiss is returned by KV implementations when a key is absent.
var ErrMiss = errors.New("txcache: miss")

// KV is the key-value collaborator contract.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
}

// envelope is the stored cache record. The timestamp is authoritative for
// freshness; the store-level TTL only bounds garbage.
type envelope struct {
	Timestamp    int64                      `json:"timestamp"` // unix ms
	Transactions []parser.ParsedTransaction `json:"transactions"`
}

// Cache caches parsed transaction history per address.
type Cache struct {
	kv    KV
	chain string
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Cache for the given chain identifier with the given
// freshness TTL.
func New(kv KV, chain string, ttl time.Duration) *Cache {
	return &Cache{kv: kv, chain: chain, ttl: ttl, now: time.Now}
}

// key is the storage key for an address's history.
func (c *Cache) key(address string) string {
	return fmt.Sprintf("wallet:%s:transactions:%s", address, c.chain)
}

// Get returns the cached transactions for address. ok is false on a miss or
// when the stored record is older than the TTL; the caller then re-derives
// from the scanner and repopulates via Put.
func (c *Cache) Get(ctx context.Context, address string) ([]parser.ParsedTransaction, bool, error) {
	raw, err := c.kv.Get(ctx, c.key(address))
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read %s: %w", address, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// A corrupt record behaves like a miss; the next Put repairs it.
		return nil, false, nil
	}

	storedAt := time.UnixMilli(env.Timestamp)
	if c.now().Sub(storedAt) >= c.ttl {
		return nil, false, nil
	}
	return env.Transactions, true, nil
}

// Put stores the transactions for address, stamped with the current time.
func (c *Cache) Put(ctx context.Context, address string, txs []parser.ParsedTransaction) error {
	env := envelope{
		Timestamp:    c.now().UnixMilli(),
		Transactions: txs,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}
	// Keep the record around a little past freshness so clock skew between
	// writer and reader cannot strand a fresh entry.
	if err := c.kv.SetEX(ctx, c.key(address), string(data), c.ttl*2); err != nil {
		return fmt.Errorf("cache write %s: %w", address, err)
	}
	return nil
}
