/**
 * @description
 * This file defines the core domain models for the ledger-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and statement views
 *   ensures clear separation of concerns and type safety.
 * - Monetary values are `decimal.Decimal` with a fixed 2-digit scale, matching the
 *   NUMERIC(18,2) columns in the database. Floats are never used for money.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Person is an identity record in the person registry. Accounts reference a
// person but never own it; many accounts may belong to one person.
type Person struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date"`
}

// Account represents a personal bank account. Balance and Active are mutated
// only through the account engine, never directly.
type Account struct {
	ID                   int64           `json:"id"`
	PersonID             int64           `json:"person_id"`
	Balance              decimal.Decimal `json:"balance"`
	DailyWithdrawalLimit decimal.Decimal `json:"daily_withdrawal_limit"`
	Active               bool            `json:"active"`
	AccountType          int             `json:"account_type"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Transaction is one append-only ledger entry belonging to an account. The sign
// of Amount encodes the kind: positive is a deposit, negative a withdrawal.
// There is no separate type field.
type Transaction struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreatePersonRequest is the DTO for registering a person. BirthDate is an
// ISO date string ("2006-01-02") and is parsed at the API boundary.
type CreatePersonRequest struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"`
}

// CreateAccountRequest is the DTO for opening a new account. A nil
// InitialDeposit defaults to zero.
type CreateAccountRequest struct {
	PersonID             int64            `json:"person_id"`
	InitialDeposit       *decimal.Decimal `json:"initial_deposit,omitempty"`
	DailyWithdrawalLimit decimal.Decimal  `json:"daily_withdrawal_limit"`
	AccountType          int              `json:"account_type"`
}

// OperationRequest is the DTO shared by the deposit and withdraw endpoints.
type OperationRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// StatementEntry is one transaction as presented on a statement: the human
// label and the absolute amount are derived from the signed ledger amount, and
// RunningBalance is the account balance immediately after the transaction.
type StatementEntry struct {
	ID             int64           `json:"id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StatementResponse is the full statement for an account, newest entries first.
type StatementResponse struct {
	AccountID    int64            `json:"account_id"`
	Balance      decimal.Decimal  `json:"balance"`
	Transactions []StatementEntry `json:"transactions"`
}
