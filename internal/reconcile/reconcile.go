// Package reconcile merges freshly mapped bank records with previously
// persisted ones so that re-running the connector is idempotent: at most one
// persisted record per distinct vendor identifier, and internal identifiers
// stay stable across runs.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/bank-sync/internal/domain"
	"github.com/dvloznov/bank-sync/internal/logger"
)

// Store is the persistence contract reconciliation depends on.
type Store interface {
	// FindAccountByVendorID returns the persisted account with the given
	// vendor identifier, or nil when none exists.
	FindAccountByVendorID(ctx context.Context, vendorID string) (*domain.Account, error)

	// UpsertAccount writes the account keyed by its internal ID, updating
	// mutable fields when the row already exists.
	UpsertAccount(ctx context.Context, acc domain.Account) error

	// ListTransactionVendorIDs returns the vendor ids of all transactions
	// already persisted for the given internal account id.
	ListTransactionVendorIDs(ctx context.Context, accountID string) (map[string]struct{}, error)

	// InsertTransactions appends new transaction records.
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
}

// Reconciler decides which mapped records are new and which already exist,
// assigns or reuses internal identifiers, and issues the upserts.
type Reconciler struct {
	store Store
}

// New creates a Reconciler backed by the given store.
func New(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Save persists accounts and transactions and returns the accounts as now
// persisted, with internal ids populated, so downstream balance merging can
// key off them.
//
// Accounts are matched on vendor identifier: an existing account keeps its
// internal id and gets its mutable fields (balance, label) refreshed. New
// accounts receive a fresh UUID. Transactions are matched on (account
// internal id, vendor id); existing matches are left unmodified.
func (r *Reconciler) Save(ctx context.Context, accounts []domain.Account, transactions []domain.Transaction) ([]domain.Account, error) {
	log := logger.FromContext(ctx)

	saved := make([]domain.Account, 0, len(accounts))
	byVendorID := make(map[string]domain.Account, len(accounts))

	for _, acc := range accounts {
		existing, err := r.store.FindAccountByVendorID(ctx, acc.VendorID)
		if err != nil {
			return nil, fmt.Errorf("Save: finding account %s: %w", acc.VendorID, err)
		}

		if existing != nil {
			acc.ID = existing.ID
		} else {
			acc.ID = uuid.NewString()
		}

		if err := r.store.UpsertAccount(ctx, acc); err != nil {
			return nil, fmt.Errorf("Save: upserting account %s: %w", acc.VendorID, err)
		}

		log.Info().
			Str("vendor_id", acc.VendorID).
			Str("account_id", acc.ID).
			Bool("created", existing == nil).
			Msg("Reconciled account")

		saved = append(saved, acc)
		byVendorID[acc.VendorID] = acc
	}

	seen := make(map[string]map[string]struct{}, len(saved))
	for _, acc := range saved {
		vendorIDs, err := r.store.ListTransactionVendorIDs(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("Save: listing transactions for account %s: %w", acc.ID, err)
		}
		seen[acc.ID] = vendorIDs
	}

	var toInsert []domain.Transaction
	for _, tx := range transactions {
		acc, ok := byVendorID[tx.VendorAccountID]
		if !ok {
			return nil, fmt.Errorf("Save: transaction %s references unknown account %s", tx.VendorID, tx.VendorAccountID)
		}

		tx.AccountID = acc.ID
		if _, exists := seen[acc.ID][tx.VendorID]; exists {
			continue
		}

		tx.ID = uuid.NewString()
		toInsert = append(toInsert, tx)
	}

	if len(toInsert) > 0 {
		if err := r.store.InsertTransactions(ctx, toInsert); err != nil {
			return nil, fmt.Errorf("Save: inserting transactions: %w", err)
		}
	}

	log.Info().
		Int("accounts", len(saved)).
		Int("new_transactions", len(toInsert)).
		Int("skipped_transactions", len(transactions)-len(toInsert)).
		Msg("Reconciliation completed")

	return saved, nil
}
