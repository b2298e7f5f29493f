package chainclient

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignTransaction signs an unsigned transaction with the given private key
// and returns the transaction with its signature list populated.
//
// The signed digest is SHA-256 over the raw transaction bytes, which must
// equal the node-reported transaction id. A mismatch means the node returned
// a transaction it did not build from our request, and signing is refused.
func SignTransaction(tx *Transaction, priv *secp256k1.PrivateKey) (*Transaction, error) {
	if tx.RawDataHex == "" {
		return nil, fmt.Errorf("transaction has no raw data")
	}
	raw, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return nil, fmt.Errorf("decode raw data: %w", err)
	}

	digest := sha256.Sum256(raw)
	if tx.TxID != "" && tx.TxID != hex.EncodeToString(digest[:]) {
		return nil, fmt.Errorf("transaction id %s does not match raw data digest", tx.TxID)
	}

	// Compact signatures carry the recovery header first; the chain wants
	// r || s || v with v in {0,1}.
	compact := ecdsa.SignCompact(priv, digest[:], true)
	v := compact[0] - 27
	if v >= 4 {
		v -= 4
	}
	sig := make([]byte, 0, 65)
	sig = append(sig, compact[1:]...)
	sig = append(sig, v)

	signed := *tx
	signed.Signature = append([]string(nil), hex.EncodeToString(sig))
	return &signed, nil
}

// TransactionID computes the canonical id (SHA-256 of raw bytes) for a
// transaction's raw data hex.
func TransactionID(rawDataHex string) (string, error) {
	raw, err := hex.DecodeString(rawDataHex)
	if err != nil {
		return "", fmt.Errorf("decode raw data: %w", err)
	}
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:]), nil
}
