package domain

import (
	"github.com/shopspring/decimal"
)

// BalanceDateFormat is the key format of BalanceHistory.Balances.
const BalanceDateFormat = "2006-01-02"

// BalanceHistoryVersion is the current metadata version written on new
// balance history records.
const BalanceHistoryVersion = 1

// BalanceHistory is the per-account, per-year balance time series.
//
// There is exactly one record per (account internal id, calendar year).
// Inserting today's balance overwrites only today's entry; all other dates
// in the mapping stay untouched.
type BalanceHistory struct {
	// ID is the internal identifier; persistence upserts by it.
	ID string

	AccountID string
	Year      int

	// Balances maps a calendar date (YYYY-MM-DD) to the balance observed
	// that day.
	Balances map[string]decimal.Decimal

	MetadataVersion int
}

// NewBalanceHistory returns a fresh empty-mapping history for the given
// account and year.
func NewBalanceHistory(accountID string, year int) BalanceHistory {
	return BalanceHistory{
		AccountID:       accountID,
		Year:            year,
		Balances:        make(map[string]decimal.Decimal),
		MetadataVersion: BalanceHistoryVersion,
	}
}
