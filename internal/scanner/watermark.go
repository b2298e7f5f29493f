package scanner

import (
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingex-tron/internal/storage"
)

// WatermarkStore tracks the highest scanned block height per address.
// Heights are monotonically non-decreasing.
type WatermarkStore interface {
	// Get returns the watermark for an address; ok is false when the
	// address has never been scanned.
	Get(address string) (height int64, ok bool, err error)
	// Set advances the watermark. Lower heights than the stored one are
	// ignored, never applied.
	Set(address string, height int64) error
}

// DBWatermarkStore persists watermarks in the embedded database so a restart
// does not trigger a full history rescan.
type DBWatermarkStore struct {
	db storage.DB
}

// NewWatermarkStore creates a watermark store over db, namespaced under the
// watermark prefix.
func NewWatermarkStore(db storage.DB) *DBWatermarkStore {
	return &DBWatermarkStore{db: storage.NewPrefixDB(db, storage.PrefixWatermark)}
}

// Get returns the stored watermark for address.
func (s *DBWatermarkStore) Get(address string) (int64, bool, error) {
	raw, err := s.db.Get([]byte(address))
	if err == storage.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read watermark %s: %w", address, err)
	}
	height, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt watermark %s: %w", address, err)
	}
	return height, true, nil
}

// Set advances the watermark for address. A height below the stored value is
// a no-op.
func (s *DBWatermarkStore) Set(address string, height int64) error {
	current, ok, err := s.Get(address)
	if err != nil {
		return err
	}
	if ok && height <= current {
		return nil
	}
	if err := s.db.Put([]byte(address), []byte(strconv.FormatInt(height, 10))); err != nil {
		return fmt.Errorf("write watermark %s: %w", address, err)
	}
	return nil
}
