// Package transfer signs and broadcasts outbound TRX transfers from
// custodial keys and orchestrates the withdrawal ledger lifecycle.
package transfer

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/keystore"
	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/pkg/tron"
)

// Custodial key material is stored per currency and chain.
const (
	Currency = "TRX"
	Chain    = "tron"
)

// Chain-level fee constants. getTransactionFee is the committee parameter
// for the per-byte bandwidth price; its current mainnet value doubles as
// the fallback when the node does not report it.
const (
	feeParamKey       = "getTransactionFee"
	defaultBytePrice  = 1000 // SUN per byte
	signatureOverhead = 69   // one 65-byte signature plus protobuf framing
)

// TransferError is returned when the network rejects a broadcast. It carries
// the node's receipt so the withdrawal path can record the raw reason.
type TransferError struct {
	Code    string
	Message string // decoded node detail
}

func (e *TransferError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("broadcast rejected: %s", e.Code)
	}
	return fmt.Sprintf("broadcast rejected: %s: %s", e.Code, e.Message)
}

// ChainWriter is the chain client surface the executor needs.
type ChainWriter interface {
	CreateTransaction(ctx context.Context, ownerHex, toHex string, amountSun int64) (*chainclient.Transaction, error)
	BroadcastTransaction(ctx context.Context, tx *chainclient.Transaction) (*chainclient.BroadcastResult, error)
	GetChainParameter(ctx context.Context, key string, def int64) (int64, error)
	GetAccountResource(ctx context.Context, addressHex string) (*chainclient.AccountResource, error)
}

// KeySource resolves decrypted custodial key material.
type KeySource interface {
	Get(walletID, currency, chain string) (*keystore.KeyMaterial, error)
}

// Executor builds, signs, and broadcasts outbound transfers.
type Executor struct {
	client ChainWriter
	keys   KeySource
	ledger ledger.Store
	log    zerolog.Logger
}

// New creates an Executor.
func New(client ChainWriter, keys KeySource, store ledger.Store, log zerolog.Logger) *Executor {
	return &Executor{
		client: client,
		keys:   keys,
		ledger: store,
		log:    log,
	}
}

// Transfer sends amountSun from the wallet's custodial address to toAddress
// (base58) and returns the chain transaction id.
//
// Missing key material is a precondition failure; a rejected broadcast is
// returned as a *TransferError carrying the node's receipt.
func (e *Executor) Transfer(ctx context.Context, walletID, toAddress string, amountSun int64) (string, error) {
	if amountSun <= 0 {
		return "", fmt.Errorf("transfer amount %d must be positive", amountSun)
	}

	km, err := e.keys.Get(walletID, Currency, Chain)
	if err != nil {
		return "", fmt.Errorf("load key material for wallet %s: %w", walletID, err)
	}
	privBytes, err := hex.DecodeString(km.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("decode private key for wallet %s: %w", walletID, err)
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)

	ownerHex, err := tron.AddressToHex(km.Address)
	if err != nil {
		return "", fmt.Errorf("decode owner address: %w", err)
	}
	toHex, err := tron.AddressToHex(toAddress)
	if err != nil {
		return "", fmt.Errorf("decode recipient address: %w", err)
	}

	unsigned, err := e.client.CreateTransaction(ctx, ownerHex, toHex, amountSun)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	signed, err := chainclient.SignTransaction(unsigned, priv)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	receipt, err := e.client.BroadcastTransaction(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}
	if !receipt.Result {
		return "", &TransferError{
			Code:    receipt.Code,
			Message: chainclient.DecodeMessage(receipt.Message),
		}
	}

	txID := receipt.TxID
	if txID == "" {
		txID = signed.TxID
	}
	e.log.Info().
		Str("wallet_id", walletID).
		Str("to", toAddress).
		Int64("amount_sun", amountSun).
		Str("txid", txID).
		Msg("transfer broadcast")
	return txID, nil
}

// EstimateFee estimates the bandwidth fee in SUN for a transfer from fromHex
// to toHex of amountSun. The estimate prices the serialized transaction plus
// one signature at the committee byte price, discounted by the sender's
// remaining free bandwidth.
func (e *Executor) EstimateFee(ctx context.Context, fromHex, toHex string, amountSun int64) (int64, error) {
	unsigned, err := e.client.CreateTransaction(ctx, fromHex, toHex, amountSun)
	if err != nil {
		return 0, fmt.Errorf("build transaction for estimate: %w", err)
	}
	size := int64(len(unsigned.RawDataHex)/2) + signatureOverhead

	res, err := e.client.GetAccountResource(ctx, fromHex)
	if err != nil {
		return 0, fmt.Errorf("fetch account resources: %w", err)
	}
	if res.FreeBandwidth() >= size {
		return 0, nil
	}

	price, err := e.client.GetChainParameter(ctx, feeParamKey, defaultBytePrice)
	if err != nil {
		return 0, fmt.Errorf("fetch fee parameter: %w", err)
	}
	return size * price, nil
}

// HandleWithdrawal runs a withdrawal attempt for an existing ledger record
// and applies exactly one terminal status transition: COMPLETED with the
// chain transaction id on success, FAILED with a descriptive message on any
// error.
func (e *Executor) HandleWithdrawal(ctx context.Context, recordID, walletID string, amountSun int64, toAddress string) error {
	txID, err := e.Transfer(ctx, walletID, toAddress, amountSun)
	if err != nil {
		e.log.Error().Err(err).
			Str("record_id", recordID).
			Str("wallet_id", walletID).
			Msg("withdrawal failed")
		if serr := e.ledger.SetStatus(ctx, recordID, ledger.StatusFailed, "", err.Error()); serr != nil {
			return fmt.Errorf("mark withdrawal %s failed: %w", recordID, serr)
		}
		return err
	}

	if err := e.ledger.SetStatus(ctx, recordID, ledger.StatusCompleted, txID, ""); err != nil {
		return fmt.Errorf("mark withdrawal %s completed: %w", recordID, err)
	}
	e.log.Info().
		Str("record_id", recordID).
		Str("txid", txID).
		Msg("withdrawal completed")
	return nil
}
