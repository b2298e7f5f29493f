package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory, for tests and local runs
// without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record // by ID
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// FindByHashAndWallet returns the record referencing hash for walletID.
func (s *MemoryStore) FindByHashAndWallet(ctx context.Context, hash, walletID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.Hash == hash && rec.WalletID == walletID {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

// Create inserts a new record.
func (s *MemoryStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("ledger record %s already exists", rec.ID)
	}
	stored := *rec
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[rec.ID] = &stored
	return nil
}

// SetStatus applies the terminal state for a record.
func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status, txHash, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("ledger record %s not found", id)
	}
	rec.Status = status
	if txHash != "" {
		rec.Hash = txHash
	}
	rec.Description = description
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a record by ID, for test assertions.
func (s *MemoryStore) Get(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	out := *rec
	return &out, true
}

// Count returns the number of records, for test assertions.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
