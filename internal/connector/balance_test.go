package connector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// mockBalanceStore keeps balance histories in memory, keyed by (year, account).
type mockBalanceStore struct {
	mu        sync.Mutex
	histories map[string]domain.BalanceHistory

	getErr    error
	upsertErr error
	upserted  []domain.BalanceHistory
}

func newMockBalanceStore() *mockBalanceStore {
	return &mockBalanceStore{histories: make(map[string]domain.BalanceHistory)}
}

func balanceKey(year int, accountID string) string {
	return accountID + "/" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}

func (m *mockBalanceStore) seed(h domain.BalanceHistory) {
	m.histories[balanceKey(h.Year, h.AccountID)] = h
}

func (m *mockBalanceStore) GetBalanceHistoryByYearAndAccount(ctx context.Context, year int, accountID string) (domain.BalanceHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.BalanceHistory{}, m.getErr
	}
	if h, ok := m.histories[balanceKey(year, accountID)]; ok {
		return h, nil
	}
	return domain.NewBalanceHistory(accountID, year), nil
}

func (m *mockBalanceStore) UpsertBalanceHistories(ctx context.Context, histories []domain.BalanceHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, histories...)
	for _, h := range histories {
		m.histories[balanceKey(h.Year, h.AccountID)] = h
	}
	return nil
}

func TestFetchBalances_PreservesHistory(t *testing.T) {
	store := newMockBalanceStore()
	year := time.Now().Year()

	existing := domain.NewBalanceHistory("acc-internal-1", year)
	existing.ID = "hist1"
	existing.Balances["2024-01-01"] = decimal.NewFromInt(100)
	store.seed(existing)

	accounts := []domain.Account{{ID: "acc-internal-1", Balance: decimal.NewFromInt(150)}}

	got, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatalf("FetchBalances() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	h := got[0]
	if h.ID != "hist1" {
		t.Errorf("ID = %q, want existing record reused", h.ID)
	}
	if prior, ok := h.Balances["2024-01-01"]; !ok || !prior.Equal(decimal.NewFromInt(100)) {
		t.Errorf("prior entry lost or changed: %v", h.Balances)
	}

	today := time.Now().Format(domain.BalanceDateFormat)
	if v, ok := h.Balances[today]; !ok || !v.Equal(decimal.NewFromInt(150)) {
		t.Errorf("today's entry = %v, want 150", h.Balances[today])
	}
	if len(h.Balances) != 2 {
		t.Errorf("len(Balances) = %d, want 2", len(h.Balances))
	}
}

func TestFetchBalances_SameDayOverwrite(t *testing.T) {
	store := newMockBalanceStore()
	accounts := []domain.Account{{ID: "acc1", Balance: decimal.NewFromInt(150)}}

	first, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertBalanceHistories(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	accounts[0].Balance = decimal.NewFromInt(200)
	second, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatal(err)
	}

	today := time.Now().Format(domain.BalanceDateFormat)
	if v := second[0].Balances[today]; !v.Equal(decimal.NewFromInt(200)) {
		t.Errorf("today's entry = %s, want latest value 200", v)
	}
	if len(second[0].Balances) != 1 {
		t.Errorf("len(Balances) = %d, want 1 (same day overwritten, not appended)", len(second[0].Balances))
	}
}

func TestFetchBalances_LazyCreation(t *testing.T) {
	store := newMockBalanceStore()
	accounts := []domain.Account{{ID: "acc-new", Balance: decimal.NewFromInt(42)}}

	got, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatal(err)
	}

	h := got[0]
	if h.AccountID != "acc-new" {
		t.Errorf("AccountID = %q", h.AccountID)
	}
	if h.Year != time.Now().Year() {
		t.Errorf("Year = %d, want current year", h.Year)
	}
	if h.MetadataVersion != domain.BalanceHistoryVersion {
		t.Errorf("MetadataVersion = %d", h.MetadataVersion)
	}
	if len(h.Balances) != 1 {
		t.Errorf("len(Balances) = %d, want 1", len(h.Balances))
	}
}

func TestFetchBalances_YearIsolation(t *testing.T) {
	store := newMockBalanceStore()
	year := time.Now().Year()

	// A record from last year must not be touched by this run.
	lastYear := domain.NewBalanceHistory("acc1", year-1)
	lastYear.ID = "hist-old"
	lastYear.Balances["2023-06-15"] = decimal.NewFromInt(99)
	store.seed(lastYear)

	accounts := []domain.Account{{ID: "acc1", Balance: decimal.NewFromInt(50)}}
	got, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatal(err)
	}

	if got[0].Year != year {
		t.Errorf("Year = %d, want %d", got[0].Year, year)
	}
	if got[0].ID == "hist-old" {
		t.Error("must not merge into a previous year's record")
	}
	if _, ok := got[0].Balances["2023-06-15"]; ok {
		t.Error("previous year's entries must not leak into the new record")
	}
	if len(store.histories[balanceKey(year-1, "acc1")].Balances) != 1 {
		t.Error("previous year's record must stay untouched")
	}
}

func TestFetchBalances_SharedClock(t *testing.T) {
	store := newMockBalanceStore()
	accounts := make([]domain.Account, 20)
	for i := range accounts {
		accounts[i] = domain.Account{ID: string(rune('a' + i)), Balance: decimal.NewFromInt(int64(i))}
	}

	got, err := FetchBalances(context.Background(), store, accounts)
	if err != nil {
		t.Fatal(err)
	}

	var dates []string
	for _, h := range got {
		for date := range h.Balances {
			dates = append(dates, date)
		}
	}
	for _, d := range dates {
		if d != dates[0] {
			t.Fatalf("accounts stamped different dates: %q vs %q", d, dates[0])
		}
	}
}

func TestFetchBalances_LookupFailure(t *testing.T) {
	store := newMockBalanceStore()
	store.getErr = errors.New("store down")

	_, err := FetchBalances(context.Background(), store, []domain.Account{{ID: "acc1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, store.getErr) {
		t.Errorf("cause not preserved: %v", err)
	}
}
