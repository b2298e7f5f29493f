// Package service is the engine facade consumed by the wider platform.
//
// It wires the chain client, scanner, cache, keystore, monitor, and transfer
// executor behind one construction point, and enforces the chain activation
// gate on every wallet-affecting operation.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/keystore"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
	"github.com/Klingon-tech/klingex-tron/internal/txcache"
	"github.com/Klingon-tech/klingex-tron/internal/wallet"
	"github.com/Klingon-tech/klingex-tron/pkg/tron"
)

// ChainName identifies this engine's chain in key material and events.
const ChainName = "tron"

// ErrChainInactive is returned by wallet-affecting operations while the
// activation gate is closed. Operations are rejected outright rather than
// proceeding with a warning.
var ErrChainInactive = errors.New("tron chain is not active")

// ChainAPI is the chain client surface the facade calls directly.
type ChainAPI interface {
	GetNowBlock(ctx context.Context) (*chainclient.Block, error)
	GetAccount(ctx context.Context, addressHex string) (*chainclient.Account, error)
	GetBalance(ctx context.Context, addressHex string) (int64, error)
}

// Scanner retrieves inbound transfers for an address.
type Scanner interface {
	Scan(ctx context.Context, address string) ([]parser.ParsedTransaction, error)
}

// Monitor registers deposit watches.
type Monitor interface {
	Start(walletID, address string)
}

// Withdrawer executes the withdrawal path.
type Withdrawer interface {
	HandleWithdrawal(ctx context.Context, recordID, walletID string, amountSun int64, toAddress string) error
	EstimateFee(ctx context.Context, fromHex, toHex string, amountSun int64) (int64, error)
}

// KeyStore persists custodial key material.
type KeyStore interface {
	Put(km *keystore.KeyMaterial) error
}

// WalletCreation is the result of CreateWallet.
type WalletCreation struct {
	WalletID       string `json:"wallet_id"`
	Address        string `json:"address"`
	Mnemonic       string `json:"mnemonic"`
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key"`
	DerivationPath string `json:"derivation_path"`
}

// Service is the chain engine facade.
type Service struct {
	client     ChainAPI
	scanner    Scanner
	cache      *txcache.Cache
	keys       KeyStore
	monitor    Monitor
	withdrawer Withdrawer
	active     bool
	log        zerolog.Logger
}

// New constructs the facade and health-checks the chain endpoint by fetching
// the head block. An unreachable node is a construction failure.
func New(ctx context.Context, client ChainAPI, scanner Scanner, cache *txcache.Cache, keys KeyStore, monitor Monitor, withdrawer Withdrawer, active bool, log zerolog.Logger) (*Service, error) {
	head, err := client.GetNowBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain health check: %w", err)
	}
	log.Info().
		Int64("head", head.Number()).
		Bool("chain_active", active).
		Msg("chain service ready")

	return &Service{
		client:     client,
		scanner:    scanner,
		cache:      cache,
		keys:       keys,
		monitor:    monitor,
		withdrawer: withdrawer,
		active:     active,
		log:        log,
	}, nil
}

// Active reports the activation gate state.
func (s *Service) Active() bool {
	return s.active
}

// gate rejects wallet-affecting operations while the chain is inactive.
func (s *Service) gate() error {
	if !s.active {
		return ErrChainInactive
	}
	return nil
}

// CreateWallet derives a fresh custodial wallet, stores its encrypted key
// material, and returns the creation result.
func (s *Service) CreateWallet() (*WalletCreation, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}

	w, err := wallet.Create()
	if err != nil {
		return nil, fmt.Errorf("derive wallet: %w", err)
	}

	walletID := uuid.NewString()
	err = s.keys.Put(&keystore.KeyMaterial{
		WalletID:       walletID,
		Currency:       "TRX",
		Chain:          ChainName,
		Address:        w.Address,
		Mnemonic:       w.Mnemonic,
		PrivateKey:     w.PrivateKey,
		PublicKey:      w.PublicKey,
		DerivationPath: w.DerivationPath,
	})
	if err != nil {
		return nil, fmt.Errorf("store key material: %w", err)
	}

	s.log.Info().
		Str("wallet_id", walletID).
		Str("address", w.Address).
		Msg("wallet created")

	return &WalletCreation{
		WalletID:       walletID,
		Address:        w.Address,
		Mnemonic:       w.Mnemonic,
		PublicKey:      w.PublicKey,
		PrivateKey:     w.PrivateKey,
		DerivationPath: w.DerivationPath,
	}, nil
}

// FetchTransactions returns the inbound transfer history for an address,
// serving from the cache when fresh and falling back to a chain scan.
func (s *Service) FetchTransactions(ctx context.Context, address string) ([]parser.ParsedTransaction, error) {
	if s.cache != nil {
		txs, hit, err := s.cache.Get(ctx, address)
		if err != nil {
			// A broken cache degrades to a scan.
			s.log.Warn().Err(err).Str("address", address).Msg("cache read failed")
		} else if hit {
			return txs, nil
		}
	}

	txs, err := s.scanner.Scan(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, address, txs); err != nil {
			s.log.Warn().Err(err).Str("address", address).Msg("cache write failed")
		}
	}
	return txs, nil
}

// GetBalance returns the TRX balance of a base58 address as a whole-unit
// decimal string. Network errors propagate to the caller unchanged.
func (s *Service) GetBalance(ctx context.Context, address string) (string, error) {
	addrHex, err := tron.AddressToHex(address)
	if err != nil {
		return "", fmt.Errorf("decode address: %w", err)
	}
	sun, err := s.client.GetBalance(ctx, addrHex)
	if err != nil {
		return "", err
	}
	return tron.SunToTRX(sun), nil
}

// MonitorDeposits starts a fire-and-forget deposit watch for the pair.
func (s *Service) MonitorDeposits(walletID, address string) error {
	if err := s.gate(); err != nil {
		return err
	}
	s.monitor.Start(walletID, address)
	return nil
}

// HandleWithdrawal runs a withdrawal attempt for an existing ledger record.
func (s *Service) HandleWithdrawal(ctx context.Context, recordID, walletID string, amountSun int64, toAddress string) error {
	if err := s.gate(); err != nil {
		return err
	}
	return s.withdrawer.HandleWithdrawal(ctx, recordID, walletID, amountSun, toAddress)
}

// IsAddressActivated reports whether the base58 address exists on chain.
// TRON accounts come into existence on first funding.
func (s *Service) IsAddressActivated(ctx context.Context, address string) (bool, error) {
	addrHex, err := tron.AddressToHex(address)
	if err != nil {
		return false, fmt.Errorf("decode address: %w", err)
	}
	account, err := s.client.GetAccount(ctx, addrHex)
	if err != nil {
		return false, err
	}
	return account.Exists(), nil
}

// EstimateTransactionFee estimates the fee in SUN for a transfer between two
// base58 addresses.
func (s *Service) EstimateTransactionFee(ctx context.Context, from, to string, amountSun int64) (int64, error) {
	fromHex, err := tron.AddressToHex(from)
	if err != nil {
		return 0, fmt.Errorf("decode sender address: %w", err)
	}
	toHex, err := tron.AddressToHex(to)
	if err != nil {
		return 0, fmt.Errorf("decode recipient address: %w", err)
	}
	return s.withdrawer.EstimateFee(ctx, fromHex, toHex, amountSun)
}
