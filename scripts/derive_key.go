// derive_key.go prints the pubkey and TRON address for a hex-encoded private key file.
// Usage: go run scripts/derive_key.go <keyfile>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Klingon-tech/klingex-tron/pkg/tron"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyHex := strings.TrimSpace(string(data))
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(keyBytes) != 32 {
		fmt.Fprintln(os.Stderr, "private key must be 32 bytes")
		os.Exit(1)
	}
	key := secp256k1.PrivKeyFromBytes(keyBytes)
	pub := key.PubKey()
	addr := tron.AddressFromPublicKey(pub)
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(pub.SerializeCompressed()))
	fmt.Printf("address=%s\n", addr)
}
