package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogNotifier writes deposit events to the log. Used when no broadcast
// backend is configured (local runs, tests).
type LogNotifier struct {
	log zerolog.Logger
}

// NewLog creates a LogNotifier.
func NewLog(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// PublishDeposit logs the event.
func (n *LogNotifier) PublishDeposit(ctx context.Context, event *DepositEvent) error {
	n.log.Info().
		Str("wallet_id", event.WalletID).
		Str("hash", event.Hash).
		Str("address", event.Address).
		Str("amount", event.Amount).
		Msg("deposit confirmed")
	return nil
}

// Recorder collects published events, for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []DepositEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// PublishDeposit records the event.
func (r *Recorder) PublishDeposit(ctx context.Context, event *DepositEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []DepositEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DepositEvent(nil), r.events...)
}
