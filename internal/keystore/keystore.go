// Package keystore stores encrypted custodial key material.
//
// Each record is an encrypted blob keyed by (walletID, currency, chain).
// Blobs are sealed with the service keystore password using the house
// Argon2id + XChaCha20-Poly1305 format. The rest of the engine reads key
// material only at transfer time; nothing outside this package sees
// plaintext keys at rest.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/klingex-tron/internal/storage"
)

// ErrNotFound is returned when no key material exists for a wallet.
var ErrNotFound = errors.New("keystore: key material not found")

// KeyMaterial is the decrypted custodial key record for a wallet.
type KeyMaterial struct {
	WalletID       string    `json:"wallet_id"`
	Currency       string    `json:"currency"`
	Chain          string    `json:"chain"`
	Address        string    `json:"address"`
	Mnemonic       string    `json:"mnemonic"`
	PrivateKey     string    `json:"private_key"` // hex
	PublicKey      string    `json:"public_key"`  // hex, compressed
	DerivationPath string    `json:"derivation_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ref identifies one stored record without exposing its contents.
type Ref struct {
	WalletID string
	Currency string
	Chain    string
}

// Store persists encrypted key material in the embedded database.
type Store struct {
	db       storage.DB
	password []byte
	params   EncryptionParams
}

// NewStore creates a Store over db, sealing records with password.
func NewStore(db storage.DB, password string) (*Store, error) {
	if password == "" {
		return nil, fmt.Errorf("keystore password is empty")
	}
	return &Store{
		db:       storage.NewPrefixDB(db, storage.PrefixKeyMaterial),
		password: []byte(password),
		params:   DefaultParams(),
	}, nil
}

// recordKey builds the storage key for a (walletID, currency, chain) triple.
func recordKey(walletID, currency, chain string) []byte {
	return []byte(walletID + ":" + currency + ":" + chain)
}

// Put encrypts and stores key material. An existing record for the same
// triple is never overwritten; custodial keys are write-once.
func (s *Store) Put(km *KeyMaterial) error {
	key := recordKey(km.WalletID, km.Currency, km.Chain)
	exists, err := s.db.Has(key)
	if err != nil {
		return fmt.Errorf("check key material: %w", err)
	}
	if exists {
		return fmt.Errorf("key material for wallet %s already exists", km.WalletID)
	}

	plain, err := json.Marshal(km)
	if err != nil {
		return fmt.Errorf("marshal key material: %w", err)
	}
	blob, err := Encrypt(plain, s.password, s.params)
	if err != nil {
		return fmt.Errorf("encrypt key material: %w", err)
	}
	if err := s.db.Put(key, blob); err != nil {
		return fmt.Errorf("store key material: %w", err)
	}
	return nil
}

// Get loads and decrypts the key material for a wallet. Returns ErrNotFound
// when no record exists.
func (s *Store) Get(walletID, currency, chain string) (*KeyMaterial, error) {
	blob, err := s.db.Get(recordKey(walletID, currency, chain))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load key material: %w", err)
	}

	plain, err := Decrypt(blob, s.password)
	if err != nil {
		return nil, fmt.Errorf("decrypt key material for wallet %s: %w", walletID, err)
	}

	var km KeyMaterial
	if err := json.Unmarshal(plain, &km); err != nil {
		return nil, fmt.Errorf("unmarshal key material: %w", err)
	}
	return &km, nil
}

// List enumerates stored records without decrypting them.
func (s *Store) List() ([]Ref, error) {
	var refs []Ref
	err := s.db.ForEach(nil, func(key, _ []byte) error {
		parts := strings.SplitN(string(key), ":", 3)
		if len(parts) != 3 {
			return nil // Skip records that predate the key format.
		}
		refs = append(refs, Ref{WalletID: parts[0], Currency: parts[1], Chain: parts[2]})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list key material: %w", err)
	}
	return refs, nil
}
