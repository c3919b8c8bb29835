/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the persons, accounts
 * and transactions tables.
 *
 * Deposit, withdrawal and block/unblock are implemented as single database
 * transactions: the account row is locked with SELECT ... FOR UPDATE before any
 * state check, so two concurrent withdrawals against the same account cannot both
 * observe a stale balance and jointly overdraw it.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Exact decimal amounts.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tassi/ledger-service/internal/domain"
)

var (
	ErrPersonNotFound          = errors.New("person not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountBlocked          = errors.New("account is blocked")
	ErrAccountAlreadyBlocked   = errors.New("account is already blocked")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrWithdrawalLimitExceeded = errors.New("withdrawal amount exceeds daily limit")
	ErrNationalIDTaken         = errors.New("national id already registered")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreatePerson inserts a new person record and returns it with its assigned id.
func (r *PostgresRepository) CreatePerson(ctx context.Context, person *domain.Person) (*domain.Person, error) {
	query := `
		INSERT INTO persons (name, national_id, birth_date)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, person.Name, person.NationalID, person.BirthDate).Scan(&person.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNationalIDTaken
		}
		return nil, err
	}
	return person, nil
}

// FindPersonByID retrieves a person from the registry by their id.
func (r *PostgresRepository) FindPersonByID(ctx context.Context, personID int64) (*domain.Person, error) {
	var person domain.Person
	query := `SELECT id, name, national_id, birth_date FROM persons WHERE id = $1`
	err := r.db.QueryRow(ctx, query, personID).Scan(&person.ID, &person.Name, &person.NationalID, &person.BirthDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	return &person, nil
}

// ListPersons returns every registered person, oldest first.
func (r *PostgresRepository) ListPersons(ctx context.Context) ([]domain.Person, error) {
	query := `SELECT id, name, national_id, birth_date FROM persons ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := []domain.Person{}
	for rows.Next() {
		var person domain.Person
		if err := rows.Scan(&person.ID, &person.Name, &person.NationalID, &person.BirthDate); err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

// CreateAccount inserts a new account and returns it with its assigned id and
// creation timestamp.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (person_id, balance, daily_withdrawal_limit, active, account_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		account.PersonID,
		account.Balance,
		account.DailyWithdrawalLimit,
		account.Active,
		account.AccountType,
	).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindAccountByID retrieves an account by its id.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	return r.scanAccount(ctx, r.db, accountID, false)
}

// BlockAccount flips an active account to blocked and returns the updated row.
// Blocking an already-blocked account is rejected, not silently accepted.
func (r *PostgresRepository) BlockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := r.scanAccount(ctx, tx, accountID, true)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, ErrAccountAlreadyBlocked
	}

	if _, err := tx.Exec(ctx, "UPDATE accounts SET active = FALSE WHERE id = $1", accountID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	account.Active = false
	return account, nil
}

// UnblockAccount flips an account back to active and returns the updated row.
// There is no "already active" guard: unblocking an active account succeeds
// and leaves it unchanged.
func (r *PostgresRepository) UnblockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := r.scanAccount(ctx, tx, accountID, true)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, "UPDATE accounts SET active = TRUE WHERE id = $1", accountID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	account.Active = true
	return account, nil
}

// CreditAccount applies a deposit as one atomic unit: lock the account row,
// verify it is active, increase the balance and append the ledger entry.
func (r *PostgresRepository) CreditAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := r.scanAccount(ctx, tx, accountID, true)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, ErrAccountBlocked
	}

	if _, err := tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1 WHERE id = $2", amount, accountID); err != nil {
		return nil, err
	}

	entry, err := insertTransaction(ctx, tx, accountID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitAccount applies a withdrawal as one atomic unit: lock the account row,
// then check active state, balance sufficiency and the per-withdrawal limit in
// that order before decreasing the balance and appending the ledger entry.
func (r *PostgresRepository) DebitAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := r.scanAccount(ctx, tx, accountID, true)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, ErrAccountBlocked
	}
	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}
	if account.DailyWithdrawalLimit.LessThan(amount) {
		return nil, ErrWithdrawalLimitExceeded
	}

	if _, err := tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1 WHERE id = $2", amount, accountID); err != nil {
		return nil, err
	}

	entry, err := insertTransaction(ctx, tx, accountID, amount.Neg())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// FindTransactionsByAccountID returns every ledger entry for an account,
// newest first. An unknown account id yields an empty slice, not an error.
func (r *PostgresRepository) FindTransactionsByAccountID(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		var entry domain.Transaction
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, entry)
	}
	return transactions, rows.Err()
}

// querier is the subset of pgx shared by the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresRepository) scanAccount(ctx context.Context, q querier, accountID int64, forUpdate bool) (*domain.Account, error) {
	query := `
		SELECT id, person_id, balance, daily_withdrawal_limit, active, account_type, created_at
		FROM accounts
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var account domain.Account
	err := q.QueryRow(ctx, query, accountID).Scan(
		&account.ID,
		&account.PersonID,
		&account.Balance,
		&account.DailyWithdrawalLimit,
		&account.Active,
		&account.AccountType,
		&account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	entry := domain.Transaction{AccountID: accountID, Amount: amount}
	query := `
		INSERT INTO transactions (account_id, amount)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, query, accountID, amount).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
