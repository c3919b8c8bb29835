package app

import (
	"context"
	"errors"
	"testing"

	"github.com/tassi/ledger-service/internal/domain"
	"github.com/tassi/ledger-service/internal/store"
)

// blockRepoStub tracks the Active flag the way the database would, including
// the asymmetric guards: blocking twice fails, unblocking twice does not.
type blockRepoStub struct {
	store.Repository

	account *domain.Account
}

func (s *blockRepoStub) BlockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if s.account == nil || s.account.ID != accountID {
		return nil, store.ErrAccountNotFound
	}
	if !s.account.Active {
		return nil, store.ErrAccountAlreadyBlocked
	}
	s.account.Active = false
	return s.account, nil
}

func (s *blockRepoStub) UnblockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if s.account == nil || s.account.ID != accountID {
		return nil, store.ErrAccountNotFound
	}
	s.account.Active = true
	return s.account, nil
}

func TestBlockAccount_TransitionsAndRejectsSecondBlock(t *testing.T) {
	repo := &blockRepoStub{account: &domain.Account{ID: 5, Active: true}}
	publisher := &publisherStub{}
	service := NewService(repo, publisher, "ledger.events")

	account, err := service.BlockAccount(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected first block to succeed, got %v", err)
	}
	if account.Active {
		t.Fatal("expected account to be blocked")
	}

	if _, err := service.BlockAccount(context.Background(), 5); !errors.Is(err, store.ErrAccountAlreadyBlocked) {
		t.Fatalf("expected ErrAccountAlreadyBlocked on second block, got %v", err)
	}

	// Only the successful transition publishes an event.
	if len(publisher.events) != 1 || publisher.events[0].Kind != domain.EventAccountBlocked {
		t.Fatalf("expected exactly one blocked event, got %+v", publisher.events)
	}
}

func TestUnblockAccount_RestoresActiveAndAllowsReblock(t *testing.T) {
	repo := &blockRepoStub{account: &domain.Account{ID: 5, Active: false}}
	service := NewService(repo, nil, "ledger.events")

	account, err := service.UnblockAccount(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected unblock to succeed, got %v", err)
	}
	if !account.Active {
		t.Fatal("expected account to be active after unblock")
	}

	// Unblocking an already-active account carries no guard and succeeds.
	if _, err := service.UnblockAccount(context.Background(), 5); err != nil {
		t.Fatalf("expected repeated unblock to succeed, got %v", err)
	}

	// The block guard resets after unblocking.
	if _, err := service.BlockAccount(context.Background(), 5); err != nil {
		t.Fatalf("expected block after unblock to succeed, got %v", err)
	}
}

func TestBlockAccount_MissingAccount(t *testing.T) {
	repo := &blockRepoStub{}
	service := NewService(repo, nil, "ledger.events")

	if _, err := service.BlockAccount(context.Background(), 404); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := service.UnblockAccount(context.Background(), 404); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
