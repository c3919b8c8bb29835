package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tassi/ledger-service/internal/domain"
	"github.com/tassi/ledger-service/internal/store"
)

// ledgerRepoStub records engine calls. Methods not overridden by a test panic
// via the embedded nil interface, which doubles as a "must not be called" check.
type ledgerRepoStub struct {
	store.Repository

	person  *domain.Person
	account *domain.Account

	creditCalled bool
	creditAmount decimal.Decimal
	creditErr    error

	debitCalled bool
	debitAmount decimal.Decimal
	debitErr    error

	createdAccount *domain.Account
}

func (s *ledgerRepoStub) FindPersonByID(ctx context.Context, personID int64) (*domain.Person, error) {
	if s.person == nil || s.person.ID != personID {
		return nil, store.ErrPersonNotFound
	}
	return s.person, nil
}

func (s *ledgerRepoStub) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	account.ID = 42
	account.CreatedAt = time.Now()
	s.createdAccount = account
	return account, nil
}

func (s *ledgerRepoStub) CreditAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	s.creditCalled = true
	s.creditAmount = amount
	if s.creditErr != nil {
		return nil, s.creditErr
	}
	return &domain.Transaction{ID: 1, AccountID: accountID, Amount: amount, CreatedAt: time.Now()}, nil
}

func (s *ledgerRepoStub) DebitAccount(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	s.debitCalled = true
	s.debitAmount = amount
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	return &domain.Transaction{ID: 2, AccountID: accountID, Amount: amount.Neg(), CreatedAt: time.Now()}, nil
}

// publisherStub records published ledger events.
type publisherStub struct {
	exchanges   []string
	routingKeys []string
	events      []domain.LedgerEvent
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	event, ok := body.(domain.LedgerEvent)
	if !ok {
		return errors.New("unexpected event payload type")
	}
	p.exchanges = append(p.exchanges, exchange)
	p.routingKeys = append(p.routingKeys, routingKey)
	p.events = append(p.events, event)
	return nil
}

func (p *publisherStub) Close() {}

func TestDeposit_RejectsNonPositiveAmountBeforeLookup(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		repo := &ledgerRepoStub{}
		service := NewService(repo, nil, "ledger.events")

		_, err := service.Deposit(context.Background(), 1, amount)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for amount %s, got %v", amount, err)
		}
		if repo.creditCalled {
			t.Fatalf("expected no repository access for amount %s", amount)
		}
	}
}

func TestWithdraw_RejectsNonPositiveAmountBeforeLookup(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		repo := &ledgerRepoStub{}
		service := NewService(repo, nil, "ledger.events")

		_, err := service.Withdraw(context.Background(), 1, amount)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for amount %s, got %v", amount, err)
		}
		if repo.debitCalled {
			t.Fatalf("expected no repository access for amount %s", amount)
		}
	}
}

func TestDeposit_CreditsAndPublishesEvent(t *testing.T) {
	repo := &ledgerRepoStub{}
	publisher := &publisherStub{}
	service := NewService(repo, publisher, "ledger.events")

	amount := decimal.RequireFromString("200.00")
	entry, err := service.Deposit(context.Background(), 7, amount)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.creditCalled || !repo.creditAmount.Equal(amount) {
		t.Fatalf("expected credit of %s, got called=%t amount=%s", amount, repo.creditCalled, repo.creditAmount)
	}
	if !entry.Amount.Equal(amount) {
		t.Fatalf("expected positive ledger amount %s, got %s", amount, entry.Amount)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Kind != domain.EventTransactionDeposit {
		t.Fatalf("expected deposit event kind, got %q", event.Kind)
	}
	if publisher.routingKeys[0] != "ledger.transaction.deposit" {
		t.Fatalf("unexpected routing key %q", publisher.routingKeys[0])
	}
	if event.Amount == nil || !event.Amount.Equal(amount) {
		t.Fatalf("expected event amount %s, got %v", amount, event.Amount)
	}
}

func TestWithdraw_PassesThroughStateErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
	}{
		{name: "account missing", repoErr: store.ErrAccountNotFound},
		{name: "account blocked", repoErr: store.ErrAccountBlocked},
		{name: "insufficient balance", repoErr: store.ErrInsufficientBalance},
		{name: "limit exceeded", repoErr: store.ErrWithdrawalLimitExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &ledgerRepoStub{debitErr: tc.repoErr}
			publisher := &publisherStub{}
			service := NewService(repo, publisher, "ledger.events")

			_, err := service.Withdraw(context.Background(), 7, decimal.NewFromInt(100))
			if !errors.Is(err, tc.repoErr) {
				t.Fatalf("expected %v, got %v", tc.repoErr, err)
			}
			if len(publisher.events) != 0 {
				t.Fatal("expected no event for a failed withdrawal")
			}
		})
	}
}

func TestWithdraw_PublishesWithdrawalEvent(t *testing.T) {
	repo := &ledgerRepoStub{}
	publisher := &publisherStub{}
	service := NewService(repo, publisher, "ledger.events")

	amount := decimal.RequireFromString("300.00")
	entry, err := service.Withdraw(context.Background(), 9, amount)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if entry.Amount.Sign() >= 0 {
		t.Fatalf("expected negative ledger amount, got %s", entry.Amount)
	}
	if !entry.Amount.Abs().Equal(amount) {
		t.Fatalf("expected ledger amount magnitude %s, got %s", amount, entry.Amount.Abs())
	}

	if len(publisher.events) != 1 || publisher.events[0].Kind != domain.EventTransactionWithdrawal {
		t.Fatalf("expected one withdrawal event, got %+v", publisher.events)
	}
	if event := publisher.events[0]; event.Amount == nil || !event.Amount.Equal(amount) {
		t.Fatalf("expected event amount to be the absolute value %s, got %v", amount, event.Amount)
	}
}

func TestCreateAccount_DefaultsNilInitialDepositToZero(t *testing.T) {
	repo := &ledgerRepoStub{person: &domain.Person{ID: 3, Name: "John Doe"}}
	service := NewService(repo, nil, "ledger.events")

	account, err := service.CreateAccount(context.Background(), 3, nil, decimal.NewFromInt(500), 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !account.Balance.Equal(decimal.Zero) {
		t.Fatalf("expected zero balance, got %s", account.Balance)
	}
	if !account.Active {
		t.Fatal("expected new account to start active")
	}
	if account.PersonID != 3 {
		t.Fatalf("expected person id 3, got %d", account.PersonID)
	}
}

func TestCreateAccount_StoresInitialDepositAsIs(t *testing.T) {
	// The initial deposit carries no positivity check; a negative opening
	// balance is stored unchanged.
	repo := &ledgerRepoStub{person: &domain.Person{ID: 3}}
	service := NewService(repo, nil, "ledger.events")

	negative := decimal.RequireFromString("-25.50")
	account, err := service.CreateAccount(context.Background(), 3, &negative, decimal.NewFromInt(500), 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !account.Balance.Equal(negative) {
		t.Fatalf("expected balance %s, got %s", negative, account.Balance)
	}
}

func TestCreateAccount_FailsWhenPersonMissing(t *testing.T) {
	repo := &ledgerRepoStub{}
	service := NewService(repo, nil, "ledger.events")

	_, err := service.CreateAccount(context.Background(), 99, nil, decimal.NewFromInt(500), 1)
	if !errors.Is(err, store.ErrPersonNotFound) {
		t.Fatalf("expected ErrPersonNotFound, got %v", err)
	}
	if repo.createdAccount != nil {
		t.Fatal("expected no account to be created")
	}
}
