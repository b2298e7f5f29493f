// Package deposit credits discovered inbound transfers.
package deposit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/internal/notify"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

// ChainReader is the subset of the chain client the processor needs.
type ChainReader interface {
	GetTransactionByID(ctx context.Context, hash string) (*chainclient.Transaction, error)
	GetTransactionInfoByID(ctx context.Context, hash string) (*chainclient.TransactionInfo, error)
}

// Processor builds the canonical deposit payload for a confirmed transfer
// and hands it to the ledger and broadcast collaborators.
type Processor struct {
	client   ChainReader
	ledger   ledger.Store
	notifier notify.Notifier
	hashes   *HashCache
	chain    string
	log      zerolog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(client ChainReader, store ledger.Store, notifier notify.Notifier, chain string, log zerolog.Logger) *Processor {
	return &Processor{
		client:   client,
		ledger:   store,
		notifier: notifier,
		hashes:   NewHashCache(),
		chain:    chain,
		log:      log,
	}
}

// Hashes exposes the processed-hash cache so the owning service can run its
// maintenance sweep.
func (p *Processor) Hashes() *HashCache {
	return p.hashes
}

// Process credits one deposit.
//
// The transaction is re-fetched and re-parsed rather than trusting the scan
// pass; the scan's view may be stale by the time the monitor gets here. The
// ledger record is written before the broadcast so a crash between the two
// can never double-credit.
func (p *Processor) Process(ctx context.Context, hash, walletID, address string) error {
	if p.hashes.Seen(hash) {
		p.log.Debug().Str("hash", hash).Msg("hash already processed recently, skipping")
		return nil
	}

	tx, err := p.client.GetTransactionByID(ctx, hash)
	if err != nil {
		return fmt.Errorf("fetch transaction %s: %w", hash, err)
	}
	info, err := p.client.GetTransactionInfoByID(ctx, hash)
	if err != nil {
		return fmt.Errorf("fetch transaction info %s: %w", hash, err)
	}

	parsed := parser.Parse(tx, info, 0)
	if parsed.Status != parser.StatusSuccess {
		return fmt.Errorf("transaction %s is not successful on chain", hash)
	}
	if parsed.To != address {
		return fmt.Errorf("transaction %s does not pay %s", hash, address)
	}

	rec := &ledger.Record{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Chain:       p.chain,
		Hash:        hash,
		Type:        ledger.TypeDeposit,
		Status:      ledger.StatusCompleted,
		Amount:      parsed.Amount,
		Fee:         parsed.Fee,
		FromAddress: parsed.From,
		ToAddress:   address,
	}
	if err := p.ledger.Create(ctx, rec); err != nil {
		return fmt.Errorf("record deposit %s: %w", hash, err)
	}

	event := &notify.DepositEvent{
		ContractType: "NATIVE",
		WalletID:     walletID,
		Chain:        p.chain,
		Hash:         hash,
		Type:         "DEPOSIT",
		From:         parsed.From,
		Address:      address,
		Amount:       parsed.Amount,
		Fee:          parsed.Fee,
		Status:       "COMPLETED",
	}
	if err := p.notifier.PublishDeposit(ctx, event); err != nil {
		// The ledger record exists; downstream reconciliation picks the
		// event up from there. Not a processing failure.
		p.log.Error().Err(err).Str("hash", hash).Msg("deposit broadcast failed")
	}

	p.hashes.Mark(hash)
	p.log.Info().
		Str("wallet_id", walletID).
		Str("hash", hash).
		Str("amount", parsed.Amount).
		Msg("deposit processed")
	return nil
}
