// Package monitor runs per-address polling loops that watch for one
// qualifying inbound transfer each.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

// DefaultInterval is the polling interval between scan passes.
const DefaultInterval = 60 * time.Second

// Scanner is the scan contract the monitor drives each pass.
type Scanner interface {
	Scan(ctx context.Context, address string) ([]parser.ParsedTransaction, error)
}

// Processor credits one discovered deposit.
type Processor interface {
	Process(ctx context.Context, hash, walletID, address string) error
}

// Monitor owns the registration table of active deposit watches.
//
// Each watch polls until it credits a single deposit, then deregisters
// itself: one expected deposit per call. Callers watching a reused address
// re-invoke Start for each expected deposit.
type Monitor struct {
	scanner   Scanner
	ledger    ledger.Store
	processor Processor
	interval  time.Duration
	log       zerolog.Logger

	ctx context.Context // root lifecycle, set at construction

	mu     sync.Mutex
	active map[string]context.CancelFunc // (walletID|address) -> cancel
	wg     sync.WaitGroup
}

// New creates a Monitor whose watches live within ctx. interval <= 0
// selects DefaultInterval.
func New(ctx context.Context, scanner Scanner, store ledger.Store, processor Processor, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		scanner:   scanner,
		ledger:    store,
		processor: processor,
		interval:  interval,
		log:       log,
		ctx:       ctx,
		active:    make(map[string]context.CancelFunc),
	}
}

// registrationKey identifies one (wallet, address) watch.
func registrationKey(walletID, address string) string {
	return walletID + "|" + address
}

// Start begins watching address for walletID. A second call while a watch
// for the same pair is active is a silent no-op.
func (m *Monitor) Start(walletID, address string) {
	key := registrationKey(walletID, address)

	m.mu.Lock()
	if _, exists := m.active[key]; exists {
		m.mu.Unlock()
		m.log.Debug().
			Str("wallet_id", walletID).
			Str("address", address).
			Msg("monitor already active")
		return
	}
	watchCtx, cancel := context.WithCancel(m.ctx)
	m.active[key] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info().
		Str("wallet_id", walletID).
		Str("address", address).
		Msg("deposit monitor started")

	go m.watch(watchCtx, key, walletID, address)
}

// Cancel stops the watch for a pair, if one is active. In-flight RPC calls
// are not aborted; their results are discarded when the loop observes the
// cancelled context.
func (m *Monitor) Cancel(walletID, address string) {
	m.mu.Lock()
	cancel, exists := m.active[registrationKey(walletID, address)]
	m.mu.Unlock()
	if exists {
		cancel()
	}
}

// Active reports whether a watch is registered for the pair.
func (m *Monitor) Active(walletID, address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.active[registrationKey(walletID, address)]
	return exists
}

// ActiveCount returns the number of registered watches.
func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Wait blocks until every watch has stopped. Used during shutdown.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// watch is the polling loop body. First pass is immediate; each later pass
// waits one interval. Any error in a pass is logged and the loop survives.
func (m *Monitor) watch(ctx context.Context, key, walletID, address string) {
	defer m.wg.Done()
	defer m.deregister(key)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if done := m.pass(ctx, walletID, address); done {
			return
		}
		select {
		case <-ctx.Done():
			m.log.Info().
				Str("wallet_id", walletID).
				Str("address", address).
				Msg("deposit monitor cancelled")
			return
		case <-ticker.C:
		}
	}
}

// pass runs one scan iteration. It returns true when a deposit was credited
// and the watch should stop.
func (m *Monitor) pass(ctx context.Context, walletID, address string) bool {
	txs, err := m.scanner.Scan(ctx, address)
	if err != nil {
		// Partial results are still usable; the scanner's watermark
		// stays pinned so nothing is lost.
		m.log.Warn().Err(err).
			Str("address", address).
			Msg("scan pass failed, will retry")
	}

	for _, tx := range txs {
		if tx.To != address || tx.Status != parser.StatusSuccess {
			continue
		}

		existing, err := m.ledger.FindByHashAndWallet(ctx, tx.Hash, walletID)
		if err != nil {
			m.log.Warn().Err(err).
				Str("hash", tx.Hash).
				Msg("ledger lookup failed, will retry")
			continue
		}
		if existing != nil {
			continue // Already credited.
		}

		if err := m.processor.Process(ctx, tx.Hash, walletID, address); err != nil {
			// The deposit stays unprocessed and re-discoverable; the
			// next pass or a manual rescan retries it.
			m.log.Error().Err(err).
				Str("hash", tx.Hash).
				Msg("deposit processing failed")
			continue
		}

		m.log.Info().
			Str("wallet_id", walletID).
			Str("address", address).
			Str("hash", tx.Hash).
			Msg("deposit monitor completed")
		return true
	}
	return false
}

// deregister removes the watch's registration entry.
func (m *Monitor) deregister(key string) {
	m.mu.Lock()
	if cancel, exists := m.active[key]; exists {
		cancel()
		delete(m.active, key)
	}
	m.mu.Unlock()
}
