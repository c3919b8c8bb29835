/**
 * @description
 * This file contains the core business logic for the ledger-service. The `Service`
 * struct is the account engine: it orchestrates account creation, deposits,
 * withdrawals, balance inquiries, block/unblock transitions and statement assembly,
 * coordinating between the database repository and the message broker.
 *
 * Key features:
 * - Stateless preconditions (amount positivity) are checked here, before any lookup.
 * - Stateful checks and the balance/ledger mutation happen inside one database
 *   transaction in the repository, so no partial mutation survives a failed call.
 * - Publishes ledger events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - github.com/google/uuid: For event ids.
 * - github.com/shopspring/decimal: Exact decimal amounts.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tassi/ledger-service/internal/domain"
	"github.com/tassi/ledger-service/internal/store"
	"github.com/tassi/ledger-service/pkg/rabbitmq"
)

var (
	// ErrInvalidAmount rejects non-positive deposit/withdrawal amounts before
	// any account lookup happens.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrRateLimited signals that an account has exceeded the configured
	// mutation budget for the current window.
	ErrRateLimited = errors.New("too many ledger operations")
)

// RateLimitedError carries the retry-after hint alongside ErrRateLimited.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// OperationRateLimiter throttles ledger mutations per account. Implementations
// must be safe for concurrent use.
type OperationRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the ledger.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string

	rateLimiter      OperationRateLimiter
	opLimitPerMinute int
}

// NewService creates a new ledger service instance. The producer may be nil,
// in which case event publishing is disabled.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		eventExchange: eventExchange,
	}
}

// SetOperationRateLimiter enables per-account throttling of deposits and
// withdrawals. A nil limiter or a non-positive limit disables throttling.
func (s *Service) SetOperationRateLimiter(limiter OperationRateLimiter, limitPerMinute int) {
	s.rateLimiter = limiter
	s.opLimitPerMinute = limitPerMinute
}

// RegisterPerson adds a person to the registry.
func (s *Service) RegisterPerson(ctx context.Context, person *domain.Person) (*domain.Person, error) {
	return s.repo.CreatePerson(ctx, person)
}

// GetPerson looks up a person by id.
func (s *Service) GetPerson(ctx context.Context, personID int64) (*domain.Person, error) {
	return s.repo.FindPersonByID(ctx, personID)
}

// ListPersons returns every registered person.
func (s *Service) ListPersons(ctx context.Context) ([]domain.Person, error) {
	return s.repo.ListPersons(ctx)
}

// CreateAccount opens a new account for an existing person. A nil initial
// deposit defaults to zero; a supplied value is stored as-is, without a
// positivity check. The new account starts active.
func (s *Service) CreateAccount(ctx context.Context, personID int64, initialDeposit *decimal.Decimal, dailyLimit decimal.Decimal, accountType int) (*domain.Account, error) {
	person, err := s.repo.FindPersonByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if initialDeposit != nil {
		balance = *initialDeposit
	}

	account, err := s.repo.CreateAccount(ctx, &domain.Account{
		PersonID:             person.ID,
		Balance:              balance,
		DailyWithdrawalLimit: dailyLimit,
		Active:               true,
		AccountType:          accountType,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"account created\" account_id=%d person_id=%d", account.ID, person.ID)
	s.publishAccountEvent(ctx, domain.EventAccountCreated, account.ID)
	return account, nil
}

// Deposit credits an account and appends the matching ledger entry. The
// positivity check runs before any account lookup.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.checkOperationRate(ctx, "deposit", accountID); err != nil {
		return nil, err
	}

	entry, err := s.repo.CreditAccount(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	s.publishTransactionEvent(ctx, domain.EventTransactionDeposit, entry)
	return entry, nil
}

// Withdraw debits an account and appends the matching ledger entry. Checks run
// in a fixed order: positivity, existence, active state, balance sufficiency,
// per-withdrawal limit. Everything past positivity happens under the account
// row lock inside the repository.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.checkOperationRate(ctx, "withdraw", accountID); err != nil {
		return nil, err
	}

	entry, err := s.repo.DebitAccount(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	s.publishTransactionEvent(ctx, domain.EventTransactionWithdrawal, entry)
	return entry, nil
}

// GetBalance returns an account's current balance. Unlike GetStatement, a
// missing account is an error here.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// BlockAccount transitions an account from active to blocked. Blocking twice
// in a row fails the second time.
func (s *Service) BlockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.repo.BlockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"account blocked\" account_id=%d", account.ID)
	s.publishAccountEvent(ctx, domain.EventAccountBlocked, account.ID)
	return account, nil
}

// UnblockAccount transitions an account back to active. There is no guard
// against unblocking an account that is already active.
func (s *Service) UnblockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.repo.UnblockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"account unblocked\" account_id=%d", account.ID)
	s.publishAccountEvent(ctx, domain.EventAccountUnblocked, account.ID)
	return account, nil
}

// GetStatement returns every transaction for an account, newest first, with a
// sign-derived label and a running balance per entry. An unknown account id
// yields an empty statement rather than an error.
func (s *Service) GetStatement(ctx context.Context, accountID int64) (*domain.StatementResponse, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return &domain.StatementResponse{
				AccountID:    accountID,
				Balance:      decimal.Zero,
				Transactions: []domain.StatementEntry{},
			}, nil
		}
		return nil, err
	}

	transactions, err := s.repo.FindTransactionsByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &domain.StatementResponse{
		AccountID:    account.ID,
		Balance:      account.Balance,
		Transactions: buildStatementEntries(account.Balance, transactions),
	}, nil
}

// buildStatementEntries walks the newest-first transaction list, deriving each
// entry's label from the amount sign and its running balance backward from the
// current balance.
func buildStatementEntries(balance decimal.Decimal, transactions []domain.Transaction) []domain.StatementEntry {
	entries := make([]domain.StatementEntry, 0, len(transactions))
	running := balance
	for _, tx := range transactions {
		label := "deposit"
		if tx.Amount.Sign() < 0 {
			label = "withdrawal"
		}
		entries = append(entries, domain.StatementEntry{
			ID:             tx.ID,
			Type:           label,
			Amount:         tx.Amount.Abs(),
			RunningBalance: running,
			CreatedAt:      tx.CreatedAt,
		})
		running = running.Sub(tx.Amount)
	}
	return entries
}

// checkOperationRate consumes one unit of the per-account mutation budget.
// Limiter failures are logged and fail open so that a Redis outage does not
// take ledger writes down with it.
func (s *Service) checkOperationRate(ctx context.Context, scope string, accountID int64) error {
	if s.rateLimiter == nil || s.opLimitPerMinute <= 0 {
		return nil
	}

	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, scope, formatAccountID(accountID), s.opLimitPerMinute, time.Minute)
	if err != nil {
		log.Printf("level=warn component=app msg=\"rate limiter unavailable; allowing operation\" scope=%s account_id=%d err=%v", scope, accountID, err)
		return nil
	}
	if count > s.opLimitPerMinute {
		return &RateLimitedError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

func (s *Service) publishTransactionEvent(ctx context.Context, kind string, entry *domain.Transaction) {
	amount := entry.Amount.Abs()
	s.publishEvent(ctx, domain.LedgerEvent{
		EventID:       uuid.New(),
		Kind:          kind,
		AccountID:     entry.AccountID,
		TransactionID: &entry.ID,
		Amount:        &amount,
		OccurredAt:    entry.CreatedAt,
	})
}

func (s *Service) publishAccountEvent(ctx context.Context, kind string, accountID int64) {
	s.publishEvent(ctx, domain.LedgerEvent{
		EventID:    uuid.New(),
		Kind:       kind,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
	})
}

// publishEvent is best-effort: the mutation has already committed, so a broker
// failure is logged rather than surfaced to the caller.
func (s *Service) publishEvent(ctx context.Context, event domain.LedgerEvent) {
	if s.eventProducer == nil {
		return
	}
	routingKey := "ledger." + event.Kind
	if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=app msg=\"ledger event publish failed\" kind=%s account_id=%d err=%v", event.Kind, event.AccountID, err)
	}
}

func formatAccountID(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}
