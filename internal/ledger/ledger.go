// Package ledger is the durable record of deposits and withdrawals.
//
// The ledger is the de-duplication authority: a deposit is credited only if
// no record already references its chain hash for the owning wallet.
package ledger

import (
	"context"
	"time"
)

// Status is the lifecycle state of a ledger record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Type distinguishes inbound from outbound records.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
)

// Record is one ledger entry.
type Record struct {
	ID          string
	WalletID    string
	Chain       string
	Hash        string // chain transaction hash; empty until broadcast for withdrawals
	Type        Type
	Status      Status
	Amount      string // whole-unit decimal string
	Fee         string
	FromAddress string
	ToAddress   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the ledger contract consumed by the engine.
type Store interface {
	// FindByHashAndWallet returns the record referencing hash for
	// walletID, or nil when none exists.
	FindByHashAndWallet(ctx context.Context, hash, walletID string) (*Record, error)
	// Create inserts a new record.
	Create(ctx context.Context, rec *Record) error
	// SetStatus applies the terminal state for a record. txHash may be
	// empty (failed withdrawals have no chain hash).
	SetStatus(ctx context.Context, id string, status Status, txHash, description string) error
}
