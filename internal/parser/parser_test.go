package parser

import (
	"testing"
	"time"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
)

const (
	ownerHex = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
	ownerB58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func transferTx(amount int64, ret string) *chainclient.Transaction {
	return &chainclient.Transaction{
		TxID: "deadbeef",
		Ret:  []chainclient.Ret{{ContractRet: ret}},
		RawData: chainclient.RawData{
			Timestamp: 1_700_000_000_000,
			Contract: []chainclient.Contract{{
				Type: chainclient.ContractTransfer,
				Parameter: chainclient.Parameter{
					Value: chainclient.ContractValue{
						Amount:       amount,
						OwnerAddress: ownerHex,
						ToAddress:    ownerHex,
					},
				},
			}},
		},
	}
}

func TestParse_Transfer(t *testing.T) {
	p := Parse(transferTx(5_000_000, "SUCCESS"), nil, 0)

	if p.Amount != "5" {
		t.Errorf("Amount = %q, want %q", p.Amount, "5")
	}
	if p.From != ownerB58 {
		t.Errorf("From = %q, want %q", p.From, ownerB58)
	}
	if p.To != ownerB58 {
		t.Errorf("To = %q, want %q", p.To, ownerB58)
	}
	if p.Status != StatusSuccess {
		t.Errorf("Status = %q, want Success", p.Status)
	}
	if p.IsError != "0" {
		t.Errorf("IsError = %q, want 0", p.IsError)
	}
	if p.Hash != "deadbeef" {
		t.Errorf("Hash = %q", p.Hash)
	}
	want := time.UnixMilli(1_700_000_000_000).UTC()
	if !p.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", p.Timestamp, want)
	}
}

func TestParse_FailedContract(t *testing.T) {
	p := Parse(transferTx(1_000_000, "OUT_OF_ENERGY"), nil, 0)

	if p.Status != StatusFailed {
		t.Errorf("Status = %q, want Failed", p.Status)
	}
	if p.IsError != "1" {
		t.Errorf("IsError = %q, want 1", p.IsError)
	}
}

func TestParse_NonTransferContract(t *testing.T) {
	tx := transferTx(9_000_000, "SUCCESS")
	tx.RawData.Contract[0].Type = "TriggerSmartContract"

	p := Parse(tx, nil, 0)

	if p.Amount != "0" {
		t.Errorf("Amount = %q, want 0 for non-transfer contract", p.Amount)
	}
	if p.From != "" || p.To != "" {
		t.Errorf("addresses should be empty, got from=%q to=%q", p.From, p.To)
	}
}

func TestParse_NoRet(t *testing.T) {
	tx := transferTx(1, "SUCCESS")
	tx.Ret = nil

	p := Parse(tx, nil, 0)
	if p.Status != StatusSuccess {
		t.Errorf("missing ret should not mark Failed, got %q", p.Status)
	}
}

func TestParse_FeeFallback(t *testing.T) {
	tx := transferTx(1_000_000, "SUCCESS")

	tests := []struct {
		name string
		info *chainclient.TransactionInfo
		want string
	}{
		{"nil info", nil, "0"},
		{"primary fee", &chainclient.TransactionInfo{Fee: 1_100_000}, "1.1"},
		{
			name: "receipt fallback",
			info: func() *chainclient.TransactionInfo {
				i := &chainclient.TransactionInfo{}
				i.Receipt.NetFee = 100_000
				return i
			}(),
			want: "0.1",
		},
		{"no fee anywhere", &chainclient.TransactionInfo{}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tx, tt.info, 0)
			if p.Fee != tt.want {
				t.Errorf("Fee = %q, want %q", p.Fee, tt.want)
			}
		})
	}
}

func TestParse_Confirmations(t *testing.T) {
	tx := transferTx(1_000_000, "SUCCESS")
	info := &chainclient.TransactionInfo{BlockNumber: 990}

	p := Parse(tx, info, 1000)
	if p.Confirmations != 11 {
		t.Errorf("Confirmations = %d, want 11", p.Confirmations)
	}

	p = Parse(tx, info, 0)
	if p.Confirmations != 0 {
		t.Errorf("Confirmations without head = %d, want 0", p.Confirmations)
	}
}
