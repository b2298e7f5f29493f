package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

type fakeScanner struct {
	mu      sync.Mutex
	results map[string][]parser.ParsedTransaction
	err     error
	passes  int
}

func (s *fakeScanner) Scan(ctx context.Context, address string) ([]parser.ParsedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	if s.err != nil {
		return nil, s.err
	}
	return s.results[address], nil
}

func (s *fakeScanner) passCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

func (s *fakeScanner) setResults(address string, txs []parser.ParsedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results == nil {
		s.results = make(map[string][]parser.ParsedTransaction)
	}
	s.results[address] = txs
}

type fakeProcessor struct {
	mu        sync.Mutex
	err       error
	processed []string
	store     *ledger.MemoryStore
}

func (p *fakeProcessor) Process(ctx context.Context, hash, walletID, address string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.processed = append(p.processed, hash)
	if p.store != nil {
		return p.store.Create(ctx, &ledger.Record{
			ID:       hash,
			WalletID: walletID,
			Hash:     hash,
			Type:     ledger.TypeDeposit,
			Status:   ledger.StatusCompleted,
		})
	}
	return nil
}

func (p *fakeProcessor) processedHashes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.processed))
	copy(out, p.processed)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func successTx(hash, to string) parser.ParsedTransaction {
	return parser.ParsedTransaction{
		Hash:   hash,
		To:     to,
		From:   "TSender11111111111111111111111111",
		Amount: "2",
		Status: parser.StatusSuccess,
	}
}

func TestMonitorCreditsDepositAndStops(t *testing.T) {
	scan := &fakeScanner{}
	store := ledger.NewMemory()
	proc := &fakeProcessor{store: store}
	m := New(context.Background(), scan, store, proc, 10*time.Millisecond, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	scan.setResults(addr, []parser.ParsedTransaction{successTx("aa11", addr)})

	m.Start("wallet-1", addr)

	waitFor(t, time.Second, func() bool { return !m.Active("wallet-1", addr) })

	hashes := proc.processedHashes()
	if len(hashes) != 1 || hashes[0] != "aa11" {
		t.Fatalf("processed = %v, want [aa11]", hashes)
	}
}

func TestMonitorIgnoresFailedAndForeignTransfers(t *testing.T) {
	scan := &fakeScanner{}
	store := ledger.NewMemory()
	proc := &fakeProcessor{store: store}
	m := New(context.Background(), scan, store, proc, 10*time.Millisecond, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	failed := successTx("bb22", addr)
	failed.Status = parser.StatusFailed
	foreign := successTx("cc33", "TSomeoneElse1111111111111111111111")
	scan.setResults(addr, []parser.ParsedTransaction{failed, foreign})

	m.Start("wallet-1", addr)

	waitFor(t, time.Second, func() bool { return scan.passCount() >= 3 })
	m.Cancel("wallet-1", addr)
	m.Wait()

	if got := proc.processedHashes(); len(got) != 0 {
		t.Fatalf("processed = %v, want none", got)
	}
}

func TestMonitorSkipsAlreadyCreditedHash(t *testing.T) {
	scan := &fakeScanner{}
	store := ledger.NewMemory()
	proc := &fakeProcessor{store: store}
	m := New(context.Background(), scan, store, proc, 10*time.Millisecond, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	if err := store.Create(context.Background(), &ledger.Record{
		ID:       "existing",
		WalletID: "wallet-1",
		Hash:     "aa11",
		Type:     ledger.TypeDeposit,
		Status:   ledger.StatusCompleted,
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	scan.setResults(addr, []parser.ParsedTransaction{successTx("aa11", addr)})

	m.Start("wallet-1", addr)

	waitFor(t, time.Second, func() bool { return scan.passCount() >= 3 })
	m.Cancel("wallet-1", addr)
	m.Wait()

	if got := proc.processedHashes(); len(got) != 0 {
		t.Fatalf("processed = %v, want none", got)
	}
	if store.Count() != 1 {
		t.Fatalf("ledger count = %d, want 1", store.Count())
	}
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	scan := &fakeScanner{}
	m := New(context.Background(), scan, ledger.NewMemory(), &fakeProcessor{}, time.Hour, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	m.Start("wallet-1", addr)
	m.Start("wallet-1", addr)
	m.Start("wallet-1", addr)

	if n := m.ActiveCount(); n != 1 {
		t.Fatalf("active count = %d, want 1", n)
	}

	// A different pair registers independently.
	m.Start("wallet-2", addr)
	if n := m.ActiveCount(); n != 2 {
		t.Fatalf("active count = %d, want 2", n)
	}

	m.Cancel("wallet-1", addr)
	m.Cancel("wallet-2", addr)
	m.Wait()
}

func TestMonitorSurvivesScanAndProcessErrors(t *testing.T) {
	scan := &fakeScanner{err: errors.New("node unreachable")}
	store := ledger.NewMemory()
	proc := &fakeProcessor{store: store}
	m := New(context.Background(), scan, store, proc, 10*time.Millisecond, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	m.Start("wallet-1", addr)

	// Loop keeps polling through scan failures.
	waitFor(t, time.Second, func() bool { return scan.passCount() >= 2 })

	// Scans recover but processing fails; the watch stays registered.
	scan.mu.Lock()
	scan.err = nil
	scan.mu.Unlock()
	scan.setResults(addr, []parser.ParsedTransaction{successTx("aa11", addr)})
	proc.mu.Lock()
	proc.err = errors.New("ledger write failed")
	proc.mu.Unlock()

	before := scan.passCount()
	waitFor(t, time.Second, func() bool { return scan.passCount() >= before+2 })
	if !m.Active("wallet-1", addr) {
		t.Fatal("watch deregistered despite processing failure")
	}

	// Processing recovers and the watch completes.
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	waitFor(t, time.Second, func() bool { return !m.Active("wallet-1", addr) })
	if got := proc.processedHashes(); len(got) != 1 || got[0] != "aa11" {
		t.Fatalf("processed = %v, want [aa11]", got)
	}
}

func TestMonitorCancelStopsWatch(t *testing.T) {
	scan := &fakeScanner{}
	m := New(context.Background(), scan, ledger.NewMemory(), &fakeProcessor{}, 10*time.Millisecond, zerolog.New(nil))

	addr := "TRecipient111111111111111111111111"
	m.Start("wallet-1", addr)
	waitFor(t, time.Second, func() bool { return scan.passCount() >= 1 })

	m.Cancel("wallet-1", addr)
	waitFor(t, time.Second, func() bool { return !m.Active("wallet-1", addr) })
	m.Wait()

	// Cancel of an unknown pair is a no-op.
	m.Cancel("wallet-9", addr)
}

func TestMonitorRootContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scan := &fakeScanner{}
	m := New(ctx, scan, ledger.NewMemory(), &fakeProcessor{}, 10*time.Millisecond, zerolog.New(nil))

	m.Start("wallet-1", "TRecipient111111111111111111111111")
	m.Start("wallet-2", "TRecipient222222222222222222222222")

	cancel()
	m.Wait()

	if n := m.ActiveCount(); n != 0 {
		t.Fatalf("active count = %d after root cancel, want 0", n)
	}
}
