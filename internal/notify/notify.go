// Package notify fans confirmed deposits out to downstream consumers
// (balance credit, user notification).
package notify

import "context"

// DepositEvent is the canonical payload handed to the broadcast pipeline.
type DepositEvent struct {
	ContractType string `json:"contractType"` // always "NATIVE" for TRX
	WalletID     string `json:"walletId"`
	Chain        string `json:"chain"`
	Hash         string `json:"hash"`
	Type         string `json:"type"` // always "DEPOSIT"
	From         string `json:"from"`
	Address      string `json:"address"`
	Amount       string `json:"amount"`
	Fee          string `json:"fee"`
	Status       string `json:"status"` // always "COMPLETED"
}

// Notifier accepts canonical deposit payloads.
type Notifier interface {
	PublishDeposit(ctx context.Context, event *DepositEvent) error
}
