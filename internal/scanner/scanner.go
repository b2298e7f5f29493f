// Package scanner discovers inbound transfers by walking ledger blocks
// between a per-address watermark and the chain head.
package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
)

// DefaultBatchSize is the number of blocks fetched concurrently per batch.
const DefaultBatchSize = 10

// ChainReader is the subset of the chain client the scanner needs.
type ChainReader interface {
	GetNowBlock(ctx context.Context) (*chainclient.Block, error)
	GetBlockByNum(ctx context.Context, num int64) (*chainclient.Block, error)
}

// Scanner finds inbound transfers to monitored addresses.
//
// Blocks are fetched in fixed-size concurrent batches, sequential across
// batches, so RPC load stays bounded without a fully serial walk. Results
// are always in ascending block order.
type Scanner struct {
	client     ChainReader
	watermarks WatermarkStore
	batchSize  int
	log        zerolog.Logger

	// Serializes scans per address; two polls for the same address must
	// not interleave watermark updates.
	mu       sync.Mutex
	scanning map[string]*sync.Mutex
}

// New creates a Scanner. batchSize <= 0 selects DefaultBatchSize.
func New(client ChainReader, watermarks WatermarkStore, batchSize int, log zerolog.Logger) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scanner{
		client:     client,
		watermarks: watermarks,
		batchSize:  batchSize,
		log:        log,
		scanning:   make(map[string]*sync.Mutex),
	}
}

// Scan returns all inbound transfers to address between the address's
// watermark and the chain head.
//
// On the first scan for an address the watermark is initialized to head-1:
// history is never backfilled. The watermark advances to head only after a
// fully successful pass; a failed batch returns the transfers accumulated so
// far along with the error, and the next scan re-covers the gap. Duplicate
// discovery is absorbed downstream by the ledger.
func (s *Scanner) Scan(ctx context.Context, address string) ([]parser.ParsedTransaction, error) {
	lock := s.addressLock(address)
	lock.Lock()
	defer lock.Unlock()

	head, err := s.currentHead(ctx)
	if err != nil {
		return nil, err
	}

	watermark, ok, err := s.watermarks.Get(address)
	if err != nil {
		return nil, err
	}
	if !ok {
		watermark = head - 1
		if err := s.watermarks.Set(address, watermark); err != nil {
			return nil, err
		}
	}

	if head <= watermark {
		return nil, nil // Common case on each poll: nothing new.
	}

	var results []parser.ParsedTransaction
	for start := watermark + 1; start <= head; start += int64(s.batchSize) {
		end := start + int64(s.batchSize) - 1
		if end > head {
			end = head
		}

		blocks, err := s.fetchBatch(ctx, start, end)
		if err != nil {
			s.log.Error().Err(err).
				Str("address", address).
				Int64("from", start).
				Int64("to", end).
				Msg("batch fetch failed, returning partial scan")
			return results, fmt.Errorf("fetch blocks %d-%d: %w", start, end, err)
		}

		for _, block := range blocks {
			results = append(results, s.matchTransfers(block, address, head)...)
		}
	}

	if err := s.watermarks.Set(address, head); err != nil {
		return results, err
	}
	return results, nil
}

// Watermark exposes the stored watermark for an address.
func (s *Scanner) Watermark(address string) (int64, bool, error) {
	return s.watermarks.Get(address)
}

// currentHead reads the chain head height.
func (s *Scanner) currentHead(ctx context.Context) (int64, error) {
	block, err := s.client.GetNowBlock(ctx)
	if err != nil {
		return 0, err
	}
	head := block.Number()
	if head <= 0 {
		return 0, fmt.Errorf("node reported head height %d", head)
	}
	return head, nil
}

// fetchBatch retrieves blocks [start, end] concurrently, returned in
// ascending order.
func (s *Scanner) fetchBatch(ctx context.Context, start, end int64) ([]*chainclient.Block, error) {
	blocks := make([]*chainclient.Block, end-start+1)

	g, gctx := errgroup.WithContext(ctx)
	for num := start; num <= end; num++ {
		g.Go(func() error {
			block, err := s.client.GetBlockByNum(gctx, num)
			if err != nil {
				return err
			}
			blocks[num-start] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// matchTransfers extracts transfers addressed to target from one block,
// preserving chain order.
func (s *Scanner) matchTransfers(block *chainclient.Block, target string, head int64) []parser.ParsedTransaction {
	var matched []parser.ParsedTransaction
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		p := parser.Parse(tx, nil, head)
		if p.To != target {
			continue
		}
		p.Confirmations = head - block.Number() + 1
		matched = append(matched, p)
	}
	return matched
}

// addressLock returns the per-address scan mutex, creating it on first use.
func (s *Scanner) addressLock(address string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.scanning[address]
	if !ok {
		lock = &sync.Mutex{}
		s.scanning[address] = lock
	}
	return lock
}
