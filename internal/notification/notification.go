package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	KindEtherDeposit     = "ether_deposit"
	KindEtherWithdraw    = "ether_withdraw"
	KindTokenDeposit     = "token_deposit"
	KindTokenWithdraw    = "token_withdraw"
	KindAuthorityAdded   = "authority_added"
	KindAuthorityRemoved = "authority_removed"
)

// Event describes a state change applied by the wrapper.
type Event struct {
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	Actor       string    `json:"actor"`
	Asset       string    `json:"asset,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Balance     string    `json:"balance,omitempty"`
	Authority   string    `json:"authority,omitempty"`
	Authorities []string  `json:"authorities,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", event.Kind,
		"account", event.Account,
		"actor", event.Actor,
		"asset", event.Asset,
		"amount", event.Amount,
		"balance", event.Balance,
		"authority", event.Authority,
	)
	return nil
}
