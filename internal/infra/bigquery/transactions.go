package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED, internal id

	AccountID       string `bigquery:"account_id"`        // internal FK
	VendorAccountID string `bigquery:"vendor_account_id"` // vendor FK
	VendorID        string `bigquery:"vendor_id"`         // unique within account

	Label string `bigquery:"label"`
	Type  string `bigquery:"type"`

	CategoryID    string  `bigquery:"category_id"`
	CategoryProba float64 `bigquery:"category_proba"`

	Date          civil.Date `bigquery:"date"`           // DATE, booking date
	DateOperation civil.Date `bigquery:"date_operation"` // DATE
	DateImport    time.Time  `bigquery:"date_import"`

	Currency string   `bigquery:"currency"`
	Amount   *big.Rat `bigquery:"amount"` // NUMERIC, signed

	CreatedTS time.Time `bigquery:"created_ts"`
}

func transactionRowFromDomain(tx domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		AccountID:       tx.AccountID,
		VendorAccountID: tx.VendorAccountID,
		VendorID:        tx.VendorID,
		Label:           tx.Label,
		Type:            string(tx.Type),
		CategoryID:      tx.CategoryID,
		CategoryProba:   tx.CategoryProba,
		Date:            civil.DateOf(tx.Date),
		DateOperation:   civil.DateOf(tx.DateOperation),
		DateImport:      tx.DateImport,
		Currency:        tx.Currency,
		Amount:          ratFromDecimal(tx.Amount),
		CreatedTS:       time.Now(),
	}
}

// InsertTransactions appends a batch of transactions. Reconciliation has
// already filtered out vendor ids that exist, so this is a plain streaming
// insert.
func (s *Store) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, transactionRowFromDomain(tx))
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// ListTransactionVendorIDs returns the vendor ids of all transactions
// persisted for the given internal account id.
func (s *Store) ListTransactionVendorIDs(ctx context.Context, accountID string) (map[string]struct{}, error) {
	if accountID == "" {
		return nil, fmt.Errorf("ListTransactionVendorIDs: account_id cannot be empty")
	}

	q := s.client.Query(`
		SELECT DISTINCT vendor_id
		FROM ` + s.tableRef(transactionsTable) + `
		WHERE account_id = @account_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionVendorIDs: reading query: %w", err)
	}

	ids := make(map[string]struct{})
	for {
		var row struct {
			VendorID string `bigquery:"vendor_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionVendorIDs: iterating: %w", err)
		}
		ids[row.VendorID] = struct{}{}
	}

	return ids, nil
}
