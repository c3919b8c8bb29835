/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the account engine from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/shopspring/decimal: Exact decimal amounts.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tassi/ledger-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// CreditAccount, DebitAccount, BlockAccount and UnblockAccount are single
// atomic units of work: the balance/flag update and any ledger insert commit
// together or not at all, and concurrent mutations of the same account are
// serialized by row-level locking.
type Repository interface {
	// Person registry methods
	CreatePerson(ctx context.Context, person *domain.Person) (*domain.Person, error)
	FindPersonByID(ctx context.Context, personID int64) (*domain.Person, error)
	ListPersons(ctx context.Context) ([]domain.Person, error)

	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)
	BlockAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	UnblockAccount(ctx context.Context, accountID int64) (*domain.Account, error)

	// Ledger methods
	CreditAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error)
	DebitAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error)
	FindTransactionsByAccountID(ctx context.Context, accountID int64) ([]domain.Transaction, error)
}
