// Package bigquery persists canonical bank records in BigQuery. It
// implements the store contracts of the reconcile and connector packages
// with a shared client, parameterized queries, and idempotent upserts.
package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

const (
	accountsTable         = "accounts"
	transactionsTable     = "transactions"
	balanceHistoriesTable = "balance_histories"

	// numericScale is the decimal scale used when converting NUMERIC
	// values back into decimals; it matches BigQuery's NUMERIC precision.
	numericScale = 9
)

// Store holds a shared BigQuery client to avoid creating a new connection
// for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with a shared BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// tableRef returns the fully qualified table name for query text.
func (s *Store) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, table)
}

// runQuery executes a DML query and waits for the job to finish.
func (s *Store) runQuery(ctx context.Context, name, text string, params []bigquery.QueryParameter) error {
	q := s.client.Query(text)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", name, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", name, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", name, err)
	}
	return nil
}

// ratFromDecimal converts a decimal into the *big.Rat the BigQuery client
// expects for NUMERIC columns.
func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// decimalFromRat converts a NUMERIC value back into a decimal. A nil rat
// becomes zero.
func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}
