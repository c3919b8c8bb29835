package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger event kinds published after successful mutations.
const (
	EventAccountCreated        = "account.created"
	EventAccountBlocked        = "account.blocked"
	EventAccountUnblocked      = "account.unblocked"
	EventTransactionDeposit    = "transaction.deposit"
	EventTransactionWithdrawal = "transaction.withdrawal"
)

// LedgerEvent represents the message emitted on the ledger events exchange
// after an account mutation has committed.
type LedgerEvent struct {
	EventID       uuid.UUID        `json:"event_id"`
	Kind          string           `json:"kind"`
	AccountID     int64            `json:"account_id"`
	TransactionID *int64           `json:"transaction_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
