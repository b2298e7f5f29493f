package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the platform ledger database.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// FindByHashAndWallet returns the record referencing hash for walletID.
func (s *PostgresStore) FindByHashAndWallet(ctx context.Context, hash, walletID string) (*Record, error) {
	const q = `
		SELECT id, wallet_id, chain, hash, type, status, amount, fee,
		       from_address, to_address, description, created_at, updated_at
		FROM transactions
		WHERE hash = $1 AND wallet_id = $2`

	var rec Record
	err := s.pool.QueryRow(ctx, q, hash, walletID).Scan(
		&rec.ID, &rec.WalletID, &rec.Chain, &rec.Hash, &rec.Type,
		&rec.Status, &rec.Amount, &rec.Fee, &rec.FromAddress,
		&rec.ToAddress, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger record: %w", err)
	}
	return &rec, nil
}

// Create inserts a new record.
func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	const q = `
		INSERT INTO transactions
			(id, wallet_id, chain, hash, type, status, amount, fee,
			 from_address, to_address, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, q,
		rec.ID, rec.WalletID, rec.Chain, rec.Hash, rec.Type, rec.Status,
		rec.Amount, rec.Fee, rec.FromAddress, rec.ToAddress,
		rec.Description, now,
	)
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

// SetStatus applies the terminal state for a record.
func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status, txHash, description string) error {
	const q = `
		UPDATE transactions
		SET status = $2,
		    hash = COALESCE(NULLIF($3, ''), hash),
		    description = $4,
		    updated_at = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id, status, txHash, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update ledger record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger record %s not found", id)
	}
	return nil
}
