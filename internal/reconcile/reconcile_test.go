package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// mockStore is an in-memory Store for testing reconciliation behavior.
type mockStore struct {
	accounts     map[string]domain.Account // keyed by internal id
	transactions []domain.Transaction

	findErr   error
	upsertErr error
	insertErr error

	upsertCalls int
	insertCalls int
}

func newMockStore() *mockStore {
	return &mockStore{accounts: make(map[string]domain.Account)}
}

func (m *mockStore) FindAccountByVendorID(ctx context.Context, vendorID string) (*domain.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, acc := range m.accounts {
		if acc.VendorID == vendorID {
			found := acc
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpsertAccount(ctx context.Context, acc domain.Account) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upsertCalls++
	m.accounts[acc.ID] = acc
	return nil
}

func (m *mockStore) ListTransactionVendorIDs(ctx context.Context, accountID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			ids[tx.VendorID] = struct{}{}
		}
	}
	return ids, nil
}

func (m *mockStore) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.insertCalls++
	m.transactions = append(m.transactions, txs...)
	return nil
}

func testAccount() domain.Account {
	return domain.Account{
		InstitutionLabel: "N26 Bank",
		Label:            "COMPTE COURANT",
		Type:             domain.AccountTypeCheckings,
		Balance:          decimal.NewFromInt(42),
		Number:           "00420000123",
		RawNumber:        "00420000123",
		VendorID:         "acct1",
	}
}

func testTransaction(vendorID string) domain.Transaction {
	return domain.Transaction{
		Label:           "VIR",
		Type:            domain.TransactionTypeNone,
		Currency:        "EUR",
		Amount:          decimal.RequireFromString("38.67"),
		VendorAccountID: "acct1",
		VendorID:        vendorID,
	}
}

func TestSave_CreatesNewAccount(t *testing.T) {
	store := newMockStore()
	r := New(store)

	saved, err := r.Save(context.Background(), []domain.Account{testAccount()}, nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("len(saved) = %d, want 1", len(saved))
	}
	if saved[0].ID == "" {
		t.Error("expected internal id to be assigned")
	}
	if len(store.accounts) != 1 {
		t.Errorf("persisted accounts = %d, want 1", len(store.accounts))
	}
}

func TestSave_Idempotent_Accounts(t *testing.T) {
	store := newMockStore()
	r := New(store)

	first, err := r.Save(context.Background(), []domain.Account{testAccount()}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Second run with an updated balance must reuse the internal id and
	// keep a single persisted record.
	acc := testAccount()
	acc.Balance = decimal.NewFromInt(100)
	second, err := r.Save(context.Background(), []domain.Account{acc}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if second[0].ID != first[0].ID {
		t.Errorf("internal id changed across runs: %s vs %s", first[0].ID, second[0].ID)
	}
	if len(store.accounts) != 1 {
		t.Errorf("persisted accounts = %d, want 1", len(store.accounts))
	}
	if got := store.accounts[first[0].ID].Balance; !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance not updated, got %s", got)
	}
}

func TestSave_Idempotent_Transactions(t *testing.T) {
	store := newMockStore()
	r := New(store)

	txs := []domain.Transaction{testTransaction("tx1"), testTransaction("tx2")}

	if _, err := r.Save(context.Background(), []domain.Account{testAccount()}, txs); err != nil {
		t.Fatal(err)
	}
	if len(store.transactions) != 2 {
		t.Fatalf("persisted transactions = %d, want 2", len(store.transactions))
	}

	// Re-running with the same vendor transaction set plus one new entry
	// must only insert the new one.
	txs = append(txs, testTransaction("tx3"))
	if _, err := r.Save(context.Background(), []domain.Account{testAccount()}, txs); err != nil {
		t.Fatal(err)
	}
	if len(store.transactions) != 3 {
		t.Errorf("persisted transactions = %d, want 3", len(store.transactions))
	}

	seen := make(map[string]int)
	for _, tx := range store.transactions {
		seen[tx.VendorID]++
	}
	for vendorID, n := range seen {
		if n != 1 {
			t.Errorf("vendor transaction %s persisted %d times", vendorID, n)
		}
	}
}

func TestSave_AssignsAccountID(t *testing.T) {
	store := newMockStore()
	r := New(store)

	saved, err := r.Save(context.Background(), []domain.Account{testAccount()}, []domain.Transaction{testTransaction("tx1")})
	if err != nil {
		t.Fatal(err)
	}
	if store.transactions[0].AccountID != saved[0].ID {
		t.Errorf("transaction AccountID = %q, want %q", store.transactions[0].AccountID, saved[0].ID)
	}
	if store.transactions[0].ID == "" {
		t.Error("expected transaction internal id to be assigned")
	}
}

func TestSave_UnknownAccountReference(t *testing.T) {
	store := newMockStore()
	r := New(store)

	tx := testTransaction("tx1")
	tx.VendorAccountID = "other-account"

	_, err := r.Save(context.Background(), []domain.Account{testAccount()}, []domain.Transaction{tx})
	if err == nil {
		t.Fatal("expected error for transaction referencing unknown account")
	}
}

func TestSave_StoreFailurePropagates(t *testing.T) {
	store := newMockStore()
	store.findErr = errors.New("store unreachable")
	r := New(store)

	_, err := r.Save(context.Background(), []domain.Account{testAccount()}, nil)
	if err == nil {
		t.Fatal("expected error when store is unreachable")
	}
	if !errors.Is(err, store.findErr) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
	if store.upsertCalls != 0 {
		t.Error("no upsert should happen after a failed lookup")
	}
}
