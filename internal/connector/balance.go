package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// BalanceStore is the persistence contract for balance histories.
type BalanceStore interface {
	// GetBalanceHistoryByYearAndAccount returns the existing history for
	// (year, account internal id), or a fresh record with an empty mapping
	// when none exists yet.
	GetBalanceHistoryByYearAndAccount(ctx context.Context, year int, accountID string) (domain.BalanceHistory, error)

	// UpsertBalanceHistories persists histories idempotently, keyed by
	// internal id.
	UpsertBalanceHistories(ctx context.Context, histories []domain.BalanceHistory) error
}

// FetchBalances retrieves the balance history of each persisted account and
// sets today's entry to the account's current balance, leaving all other
// dates untouched.
//
// The wall clock is read once so every account in the run stamps the same
// date even when processing takes nontrivial time. Lookups have no ordering
// dependency on each other and run concurrently; all must complete before
// the result is returned.
func FetchBalances(ctx context.Context, store BalanceStore, accounts []domain.Account) ([]domain.BalanceHistory, error) {
	now := time.Now()
	today := now.Format(domain.BalanceDateFormat)
	year := now.Year()

	histories := make([]domain.BalanceHistory, len(accounts))
	errs := make([]error, len(accounts))

	var wg sync.WaitGroup
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, acc domain.Account) {
			defer wg.Done()

			history, err := store.GetBalanceHistoryByYearAndAccount(ctx, year, acc.ID)
			if err != nil {
				errs[i] = fmt.Errorf("FetchBalances: account %s: %w", acc.ID, err)
				return
			}
			if history.Balances == nil {
				history.Balances = make(map[string]decimal.Decimal, 1)
			}
			history.Balances[today] = acc.Balance
			histories[i] = history
		}(i, acc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return histories, nil
}
