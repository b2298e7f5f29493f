// Package tron provides TRON address and unit encoding primitives.
package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// AddressPrefix is the version byte of every TRON address.
const AddressPrefix = 0x41

// AddressSize is the length of a raw address in bytes (prefix + 20-byte hash).
const AddressSize = 21

// checksumSize is the number of double-SHA256 bytes appended in base58check.
const checksumSize = 4

// HexToAddress converts the chain's internal hex address form (0x41-prefixed,
// 21 bytes) into the human-readable base58check form.
func HexToAddress(h string) (string, error) {
	h = strings.TrimPrefix(h, "0x")
	raw, err := hex.DecodeString(h)
	if err != nil {
		return "", fmt.Errorf("decode hex address: %w", err)
	}
	if len(raw) != AddressSize {
		return "", fmt.Errorf("hex address must be %d bytes, got %d", AddressSize, len(raw))
	}
	if raw[0] != AddressPrefix {
		return "", fmt.Errorf("hex address has version byte %#02x, want %#02x", raw[0], AddressPrefix)
	}
	return EncodeBase58(raw), nil
}

// AddressToHex converts a base58check address back into the 21-byte hex form
// used by the RPC node.
func AddressToHex(addr string) (string, error) {
	raw, err := DecodeBase58(addr)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// EncodeBase58 encodes a raw 21-byte address as base58check.
func EncodeBase58(raw []byte) string {
	sum := doubleSHA256(raw)
	buf := make([]byte, 0, len(raw)+checksumSize)
	buf = append(buf, raw...)
	buf = append(buf, sum[:checksumSize]...)
	return base58.Encode(buf)
}

// DecodeBase58 decodes a base58check address and verifies its checksum,
// returning the raw 21-byte address.
func DecodeBase58(addr string) ([]byte, error) {
	buf, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode base58 address: %w", err)
	}
	if len(buf) != AddressSize+checksumSize {
		return nil, fmt.Errorf("address must decode to %d bytes, got %d", AddressSize+checksumSize, len(buf))
	}
	raw, check := buf[:AddressSize], buf[AddressSize:]
	sum := doubleSHA256(raw)
	if sum[0] != check[0] || sum[1] != check[1] || sum[2] != check[2] || sum[3] != check[3] {
		return nil, fmt.Errorf("address checksum mismatch")
	}
	if raw[0] != AddressPrefix {
		return nil, fmt.Errorf("address has version byte %#02x, want %#02x", raw[0], AddressPrefix)
	}
	return raw, nil
}

// ValidAddress reports whether addr is a well-formed base58check TRON address.
func ValidAddress(addr string) bool {
	_, err := DecodeBase58(addr)
	return err == nil
}

// AddressFromPublicKey derives the base58check address for a secp256k1
// public key: the last 20 bytes of Keccak-256 over the uncompressed key
// (without the 0x04 marker), prefixed with the version byte.
func AddressFromPublicKey(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	digest := h.Sum(nil)

	raw := make([]byte, 0, AddressSize)
	raw = append(raw, AddressPrefix)
	raw = append(raw, digest[12:]...)
	return EncodeBase58(raw)
}

func doubleSHA256(b []byte) [sha256.Size]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}
