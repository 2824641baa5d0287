package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// AccountRow represents an account record in BigQuery.
type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED, internal id

	VendorID         string `bigquery:"vendor_id"` // REQUIRED, unique per real account
	InstitutionLabel string `bigquery:"institution_label"`
	Label            string `bigquery:"label"`
	AccountType      string `bigquery:"account_type"`
	Number           string `bigquery:"number"`
	RawNumber        string `bigquery:"raw_number"`

	Balance *big.Rat `bigquery:"balance"` // NUMERIC

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

func accountRowFromDomain(acc domain.Account) *AccountRow {
	return &AccountRow{
		AccountID:        acc.ID,
		VendorID:         acc.VendorID,
		InstitutionLabel: acc.InstitutionLabel,
		Label:            acc.Label,
		AccountType:      string(acc.Type),
		Number:           acc.Number,
		RawNumber:        acc.RawNumber,
		Balance:          ratFromDecimal(acc.Balance),
	}
}

func accountFromRow(row *AccountRow) domain.Account {
	return domain.Account{
		ID:               row.AccountID,
		VendorID:         row.VendorID,
		InstitutionLabel: row.InstitutionLabel,
		Label:            row.Label,
		Type:             domain.AccountType(row.AccountType),
		Number:           row.Number,
		RawNumber:        row.RawNumber,
		Balance:          decimalFromRat(row.Balance),
	}
}

// FindAccountByVendorID returns the account with the given vendor id, or
// nil when no such account exists.
func (s *Store) FindAccountByVendorID(ctx context.Context, vendorID string) (*domain.Account, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("FindAccountByVendorID: vendor_id cannot be empty")
	}

	q := s.client.Query(`
		SELECT
			account_id,
			vendor_id,
			institution_label,
			label,
			account_type,
			number,
			raw_number,
			balance,
			created_ts,
			updated_ts
		FROM ` + s.tableRef(accountsTable) + `
		WHERE vendor_id = @vendor_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "vendor_id", Value: vendorID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccountByVendorID: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountByVendorID: iterating: %w", err)
	}

	acc := accountFromRow(&row)
	return &acc, nil
}

// UpsertAccount writes the account keyed by its internal id: an existing
// row gets its mutable fields (balance, label) refreshed, a missing row is
// inserted. Re-running with the same internal id is idempotent.
func (s *Store) UpsertAccount(ctx context.Context, acc domain.Account) error {
	if acc.ID == "" {
		return fmt.Errorf("UpsertAccount: internal id cannot be empty")
	}

	row := accountRowFromDomain(acc)
	now := time.Now()

	query := `
		MERGE ` + s.tableRef(accountsTable) + ` T
		USING (SELECT @account_id AS account_id) S
		ON T.account_id = S.account_id
		WHEN MATCHED THEN UPDATE SET
			balance = @balance,
			label = @label,
			institution_label = @institution_label,
			updated_ts = @now
		WHEN NOT MATCHED THEN INSERT (
			account_id, vendor_id, institution_label, label,
			account_type, number, raw_number, balance, created_ts
		)
		VALUES (
			@account_id, @vendor_id, @institution_label, @label,
			@account_type, @number, @raw_number, @balance, @now
		)
	`
	params := []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "vendor_id", Value: row.VendorID},
		{Name: "institution_label", Value: row.InstitutionLabel},
		{Name: "label", Value: row.Label},
		{Name: "account_type", Value: row.AccountType},
		{Name: "number", Value: row.Number},
		{Name: "raw_number", Value: row.RawNumber},
		{Name: "balance", Value: row.Balance},
		{Name: "now", Value: now},
	}

	return s.runQuery(ctx, "UpsertAccount", query, params)
}

// ListAllAccounts retrieves all accounts from the database.
func (s *Store) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	q := s.client.Query(`
		SELECT
			account_id,
			vendor_id,
			institution_label,
			label,
			account_type,
			number,
			raw_number,
			balance,
			created_ts,
			updated_ts
		FROM ` + s.tableRef(accountsTable) + `
		ORDER BY created_ts DESC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllAccounts: reading query: %w", err)
	}

	var accounts []domain.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllAccounts: iterating: %w", err)
		}
		accounts = append(accounts, accountFromRow(&row))
	}

	return accounts, nil
}
