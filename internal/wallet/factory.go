// Package wallet derives custodial keypairs and addresses.
package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/Klingon-tech/klingex-tron/pkg/tron"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// BIP-44 derivation constants. Every custodial wallet uses the first
// external address of its own seed: m/44'/195'/0'/0/0.
const (
	purposeBIP44 = bip32.FirstHardenedChild + 44
	coinTypeTron = bip32.FirstHardenedChild + 195
)

// DerivationPath is the fixed path every custodial wallet is derived at.
const DerivationPath = "m/44'/195'/0'/0/0"

// Wallet is a freshly derived custodial keypair.
type Wallet struct {
	Address        string
	Mnemonic       string
	PrivateKey     string // hex
	PublicKey      string // hex, compressed
	DerivationPath string
}

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// Create generates a new custodial wallet from a fresh mnemonic.
func Create() (*Wallet, error) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic)
}

// FromMnemonic derives the custodial wallet for an existing mnemonic at the
// fixed derivation path.
func FromMnemonic(mnemonic string) (*Wallet, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := deriveKey(seed)
	if err != nil {
		return nil, err
	}

	priv := secp256k1.PrivKeyFromBytes(privateKeyBytes(key))
	address := tron.AddressFromPublicKey(priv.PubKey())
	if address == "" {
		return nil, fmt.Errorf("address derivation yielded empty output")
	}

	return &Wallet{
		Address:        address,
		Mnemonic:       mnemonic,
		PrivateKey:     hex.EncodeToString(priv.Serialize()),
		PublicKey:      hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		DerivationPath: DerivationPath,
	}, nil
}

// deriveKey walks the fixed path m/44'/195'/0'/0/0 from the seed.
func deriveKey(seed []byte) (*bip32.Key, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	for _, index := range []uint32{
		purposeBIP44,
		coinTypeTron,
		bip32.FirstHardenedChild, // account 0'
		0,                        // external chain
		0,                        // index 0
	} {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
	}
	return key, nil
}

// privateKeyBytes returns the raw 32-byte private key scalar.
func privateKeyBytes(key *bip32.Key) []byte {
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}
