package deposit

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/internal/log"
	"github.com/Klingon-tech/klingex-tron/internal/notify"
)

const (
	depositHex = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
	depositB58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

// fakeChain serves one canned transaction.
type fakeChain struct {
	tx     *chainclient.Transaction
	info   *chainclient.TransactionInfo
	txErr  error
	calls  int
}

func (f *fakeChain) GetTransactionByID(ctx context.Context, hash string) (*chainclient.Transaction, error) {
	f.calls++
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.tx, nil
}

func (f *fakeChain) GetTransactionInfoByID(ctx context.Context, hash string) (*chainclient.TransactionInfo, error) {
	return f.info, nil
}

func confirmedTransfer(amount int64, ret string) *chainclient.Transaction {
	return &chainclient.Transaction{
		TxID: "hash-1",
		Ret:  []chainclient.Ret{{ContractRet: ret}},
		RawData: chainclient.RawData{
			Timestamp: 1_700_000_000_000,
			Contract: []chainclient.Contract{{
				Type: chainclient.ContractTransfer,
				Parameter: chainclient.Parameter{
					Value: chainclient.ContractValue{
						Amount:       amount,
						OwnerAddress: depositHex,
						ToAddress:    depositHex,
					},
				},
			}},
		},
	}
}

func newProcessor(chain *fakeChain) (*Processor, *ledger.MemoryStore, *notify.Recorder) {
	store := ledger.NewMemory()
	recorder := notify.NewRecorder()
	p := NewProcessor(chain, store, recorder, "tron", log.NewJSONLogger(nil, "error"))
	return p, store, recorder
}

func TestProcess(t *testing.T) {
	chain := &fakeChain{
		tx:   confirmedTransfer(2_000_000, "SUCCESS"),
		info: &chainclient.TransactionInfo{Fee: 100_000},
	}
	p, store, recorder := newProcessor(chain)

	err := p.Process(context.Background(), "hash-1", "w-1", depositB58)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	rec, err := store.FindByHashAndWallet(context.Background(), "hash-1", "w-1")
	if err != nil || rec == nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if rec.Status != ledger.StatusCompleted || rec.Amount != "2" || rec.Fee != "0.1" {
		t.Errorf("record = %+v", rec)
	}

	events := recorder.Events()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	e := events[0]
	if e.ContractType != "NATIVE" || e.Type != "DEPOSIT" || e.Status != "COMPLETED" {
		t.Errorf("event = %+v", e)
	}
	if e.Amount != "2" || e.Address != depositB58 || e.From != depositB58 {
		t.Errorf("event = %+v", e)
	}
}

func TestProcess_SecondCallIsNoop(t *testing.T) {
	chain := &fakeChain{
		tx:   confirmedTransfer(2_000_000, "SUCCESS"),
		info: &chainclient.TransactionInfo{},
	}
	p, store, recorder := newProcessor(chain)

	ctx := context.Background()
	if err := p.Process(ctx, "hash-1", "w-1", depositB58); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if err := p.Process(ctx, "hash-1", "w-1", depositB58); err != nil {
		t.Fatalf("second Process() error: %v", err)
	}

	if store.Count() != 1 {
		t.Errorf("ledger has %d records, want 1", store.Count())
	}
	if len(recorder.Events()) != 1 {
		t.Errorf("published %d events, want 1", len(recorder.Events()))
	}
}

func TestProcess_FailedTransactionRejected(t *testing.T) {
	chain := &fakeChain{
		tx:   confirmedTransfer(2_000_000, "OUT_OF_ENERGY"),
		info: &chainclient.TransactionInfo{},
	}
	p, store, _ := newProcessor(chain)

	if err := p.Process(context.Background(), "hash-1", "w-1", depositB58); err == nil {
		t.Fatal("Process() should reject a failed transaction")
	}
	if store.Count() != 0 {
		t.Error("failed transaction must not reach the ledger")
	}
}

func TestProcess_WrongRecipientRejected(t *testing.T) {
	chain := &fakeChain{
		tx:   confirmedTransfer(2_000_000, "SUCCESS"),
		info: &chainclient.TransactionInfo{},
	}
	p, store, _ := newProcessor(chain)

	if err := p.Process(context.Background(), "hash-1", "w-1", "TSomeoneElse"); err == nil {
		t.Fatal("Process() should reject a transfer to another address")
	}
	if store.Count() != 0 {
		t.Error("mismatched transfer must not reach the ledger")
	}
}

func TestProcess_FetchErrorLeavesHashRediscoverable(t *testing.T) {
	chain := &fakeChain{txErr: errors.New("node down")}
	p, _, _ := newProcessor(chain)

	ctx := context.Background()
	if err := p.Process(ctx, "hash-1", "w-1", depositB58); err == nil {
		t.Fatal("Process() should surface the fetch error")
	}

	// The hash must not be remembered; a later rescan can retry it.
	chain.txErr = nil
	chain.tx = confirmedTransfer(2_000_000, "SUCCESS")
	chain.info = &chainclient.TransactionInfo{}
	if err := p.Process(ctx, "hash-1", "w-1", depositB58); err != nil {
		t.Fatalf("retry Process() error: %v", err)
	}
}
