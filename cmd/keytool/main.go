// keytool inspects the encrypted custodial keystore of a chain service
// data directory.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingex-tron/internal/keystore"
	"github.com/Klingon-tech/klingex-tron/internal/storage"
	"github.com/Klingon-tech/klingex-tron/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	dataDir := "./data"
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		cmdList(dataDir)
	case "export":
		if len(args) < 2 {
			fatal("export requires a wallet id")
		}
		cmdExport(dataDir, args[1])
	case "verify":
		if len(args) < 2 {
			fatal("verify requires a wallet id")
		}
		cmdVerify(dataDir, args[1])
	case "help", "--help", "-h":
		usage()
	default:
		fatal("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: keytool [--datadir <path>] <command>

Commands:
  list               List stored key records
  export <walletID>  Decrypt and print one key record as JSON
  verify <walletID>  Re-derive the address from the stored mnemonic and
                     compare it against the stored address
  help               Show this help
`)
}

// openStore prompts for the keystore password and opens the store. The
// database must not be in use by a running daemon.
func openStore(dataDir string) (*keystore.Store, func()) {
	password, err := readPassword("Keystore password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	db, err := storage.NewBadger(dataDir)
	if err != nil {
		fatal("open database: %v", err)
	}
	store, err := keystore.NewStore(db, string(password))
	if err != nil {
		db.Close()
		fatal("open keystore: %v", err)
	}
	return store, func() { db.Close() }
}

func cmdList(dataDir string) {
	store, closeDB := openStore(dataDir)
	defer closeDB()

	refs, err := store.List()
	if err != nil {
		fatal("list keystore: %v", err)
	}
	if len(refs) == 0 {
		fmt.Println("keystore is empty")
		return
	}
	for _, ref := range refs {
		fmt.Printf("%s  %s/%s\n", ref.WalletID, ref.Currency, ref.Chain)
	}
}

func cmdExport(dataDir, walletID string) {
	store, closeDB := openStore(dataDir)
	defer closeDB()

	km, err := store.Get(walletID, "TRX", "tron")
	if err != nil {
		fatal("load key material: %v", err)
	}
	out, err := json.MarshalIndent(km, "", "  ")
	if err != nil {
		fatal("marshal key material: %v", err)
	}
	fmt.Println(string(out))
}

func cmdVerify(dataDir, walletID string) {
	store, closeDB := openStore(dataDir)
	defer closeDB()

	km, err := store.Get(walletID, "TRX", "tron")
	if err != nil {
		fatal("load key material: %v", err)
	}
	derived, err := wallet.FromMnemonic(km.Mnemonic)
	if err != nil {
		fatal("re-derive wallet: %v", err)
	}
	if derived.Address != km.Address {
		fatal("address mismatch: stored %s, derived %s", km.Address, derived.Address)
	}
	fmt.Printf("OK: %s derives %s\n", walletID, km.Address)
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
