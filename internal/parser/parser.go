// Package parser normalizes raw chain transactions into canonical records.
package parser

import (
	"time"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/pkg/tron"
)

// Status is the terminal outcome of a transaction.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// ParsedTransaction is the canonical view of one chain transaction. Amounts
// and fees are whole-unit decimal strings converted exactly from SUN.
type ParsedTransaction struct {
	Timestamp     time.Time `json:"timestamp"`
	Hash          string    `json:"hash"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	Status        Status    `json:"status"`
	IsError       string    `json:"isError"`
	Confirmations int64     `json:"confirmations"`
}

// Parse converts one raw transaction into a ParsedTransaction.
//
// Only transactions whose first contract entry is a native transfer populate
// From/To/Amount; every other contract type yields a zero amount and empty
// addresses, so it can never look like a deposit. info may be nil when the
// post-execution record is unavailable (fee defaults to 0, confirmations
// require a head height).
func Parse(tx *chainclient.Transaction, info *chainclient.TransactionInfo, head int64) ParsedTransaction {
	p := ParsedTransaction{
		Hash:      tx.TxID,
		Amount:    tron.SunToTRX(0),
		Fee:       tron.SunToTRX(0),
		Status:    StatusSuccess,
		IsError:   "0",
		Timestamp: time.UnixMilli(tx.RawData.Timestamp).UTC(),
	}

	if ret := tx.ContractResult(); ret != "" && ret != chainclient.RetSuccess {
		p.Status = StatusFailed
		p.IsError = "1"
	}

	if len(tx.RawData.Contract) > 0 {
		contract := tx.RawData.Contract[0]
		if contract.Type == chainclient.ContractTransfer {
			value := contract.Parameter.Value
			p.Amount = tron.SunToTRX(value.Amount)
			// Hex forms that fail to decode stay empty rather than
			// poisoning the record.
			if from, err := tron.HexToAddress(value.OwnerAddress); err == nil {
				p.From = from
			}
			if to, err := tron.HexToAddress(value.ToAddress); err == nil {
				p.To = to
			}
		}
	}

	if info != nil {
		p.Fee = tron.SunToTRX(feeOf(info))
		if info.BlockTimestamp > 0 {
			p.Timestamp = time.UnixMilli(info.BlockTimestamp).UTC()
		}
		if head > 0 && info.BlockNumber > 0 && head >= info.BlockNumber {
			p.Confirmations = head - info.BlockNumber + 1
		}
	}

	return p
}

// feeOf reads the transaction fee, falling back to the receipt's network fee
// when the primary field is absent.
func feeOf(info *chainclient.TransactionInfo) int64 {
	if info.Fee > 0 {
		return info.Fee
	}
	if info.Receipt.NetFee > 0 {
		return info.Receipt.NetFee
	}
	return 0
}
