package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type limiterStub struct {
	count      int
	retryAfter int
	err        error

	scopes   []string
	subjects []string
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	l.scopes = append(l.scopes, scope)
	l.subjects = append(l.subjects, subject)
	return l.count, l.retryAfter, l.err
}

func TestDeposit_RateLimitedBeforeRepositoryAccess(t *testing.T) {
	repo := &ledgerRepoStub{}
	service := NewService(repo, nil, "ledger.events")
	service.SetOperationRateLimiter(&limiterStub{count: 61, retryAfter: 17}, 60)

	_, err := service.Deposit(context.Background(), 8, decimal.NewFromInt(10))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) || rateLimited.RetryAfterSeconds != 17 {
		t.Fatalf("expected retry-after 17, got %+v", err)
	}
	if repo.creditCalled {
		t.Fatal("expected no repository access when rate limited")
	}
}

func TestWithdraw_RateLimiterFailureFailsOpen(t *testing.T) {
	repo := &ledgerRepoStub{}
	service := NewService(repo, nil, "ledger.events")
	service.SetOperationRateLimiter(&limiterStub{err: errors.New("redis down")}, 60)

	if _, err := service.Withdraw(context.Background(), 8, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("expected limiter outage to fail open, got %v", err)
	}
	if !repo.debitCalled {
		t.Fatal("expected withdrawal to proceed")
	}
}

func TestOperationRate_DisabledWithoutLimiter(t *testing.T) {
	repo := &ledgerRepoStub{}
	limiter := &limiterStub{count: 1000}
	service := NewService(repo, nil, "ledger.events")
	service.SetOperationRateLimiter(limiter, 0)

	if _, err := service.Deposit(context.Background(), 8, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("expected nil error with throttling disabled, got %v", err)
	}
	if len(limiter.scopes) != 0 {
		t.Fatal("expected limiter to be skipped when limit is zero")
	}
}
