package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/bank-sync/internal/domain"
)

// balanceHistoryRow is the query-shaped balance history record. The
// date-to-balance mapping lives in a JSON column; reads alias it through
// TO_JSON_STRING and writes go through PARSE_JSON.
type balanceHistoryRow struct {
	HistoryID       string `bigquery:"history_id"`
	AccountID       string `bigquery:"account_id"`
	Year            int64  `bigquery:"year"`
	BalancesJSON    string `bigquery:"balances_json"`
	MetadataVersion int64  `bigquery:"metadata_version"`
}

func historyFromRow(row *balanceHistoryRow) (domain.BalanceHistory, error) {
	balances := make(map[string]decimal.Decimal)
	if row.BalancesJSON != "" {
		if err := json.Unmarshal([]byte(row.BalancesJSON), &balances); err != nil {
			return domain.BalanceHistory{}, fmt.Errorf("decoding balances for history %s: %w", row.HistoryID, err)
		}
	}

	return domain.BalanceHistory{
		ID:              row.HistoryID,
		AccountID:       row.AccountID,
		Year:            int(row.Year),
		Balances:        balances,
		MetadataVersion: int(row.MetadataVersion),
	}, nil
}

func balancesJSON(h domain.BalanceHistory) (string, error) {
	data, err := json.Marshal(h.Balances)
	if err != nil {
		return "", fmt.Errorf("encoding balances for history %s: %w", h.ID, err)
	}
	return string(data), nil
}

// GetBalanceHistoryByYearAndAccount returns the history for (year, account
// internal id), or a fresh empty-mapping record when none exists yet. The
// fresh record carries no internal id; UpsertBalanceHistories assigns one.
func (s *Store) GetBalanceHistoryByYearAndAccount(ctx context.Context, year int, accountID string) (domain.BalanceHistory, error) {
	if accountID == "" {
		return domain.BalanceHistory{}, fmt.Errorf("GetBalanceHistoryByYearAndAccount: account_id cannot be empty")
	}

	q := s.client.Query(`
		SELECT
			history_id,
			account_id,
			year,
			TO_JSON_STRING(balances) AS balances_json,
			metadata_version
		FROM ` + s.tableRef(balanceHistoriesTable) + `
		WHERE year = @year AND account_id = @account_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "year", Value: int64(year)},
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.BalanceHistory{}, fmt.Errorf("GetBalanceHistoryByYearAndAccount: reading query: %w", err)
	}

	var row balanceHistoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return domain.NewBalanceHistory(accountID, year), nil
	}
	if err != nil {
		return domain.BalanceHistory{}, fmt.Errorf("GetBalanceHistoryByYearAndAccount: iterating: %w", err)
	}

	history, err := historyFromRow(&row)
	if err != nil {
		return domain.BalanceHistory{}, fmt.Errorf("GetBalanceHistoryByYearAndAccount: %w", err)
	}
	return history, nil
}

// UpsertBalanceHistories persists histories idempotently, keyed by internal
// id. Histories without an internal id (lazily created this run) get a
// fresh UUID before the insert.
func (s *Store) UpsertBalanceHistories(ctx context.Context, histories []domain.BalanceHistory) error {
	for _, h := range histories {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		if h.MetadataVersion == 0 {
			h.MetadataVersion = domain.BalanceHistoryVersion
		}

		data, err := balancesJSON(h)
		if err != nil {
			return fmt.Errorf("UpsertBalanceHistories: %w", err)
		}

		query := `
			MERGE ` + s.tableRef(balanceHistoriesTable) + ` T
			USING (SELECT @history_id AS history_id) S
			ON T.history_id = S.history_id
			WHEN MATCHED THEN UPDATE SET
				balances = PARSE_JSON(@balances_json),
				metadata_version = @metadata_version,
				updated_ts = @now
			WHEN NOT MATCHED THEN INSERT (
				history_id, account_id, year, balances, metadata_version, created_ts
			)
			VALUES (
				@history_id, @account_id, @year, PARSE_JSON(@balances_json), @metadata_version, @now
			)
		`
		params := []bigquery.QueryParameter{
			{Name: "history_id", Value: h.ID},
			{Name: "account_id", Value: h.AccountID},
			{Name: "year", Value: int64(h.Year)},
			{Name: "balances_json", Value: data},
			{Name: "metadata_version", Value: int64(h.MetadataVersion)},
			{Name: "now", Value: time.Now()},
		}

		if err := s.runQuery(ctx, "UpsertBalanceHistories", query, params); err != nil {
			return err
		}
	}

	return nil
}
