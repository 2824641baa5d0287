package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a bank operation.
type TransactionType string

const (
	// TransactionTypeNone is the unclassified placeholder set at mapping
	// time; the classifier fills in the category afterwards.
	TransactionTypeNone TransactionType = "none"
)

// Transaction is the canonical bank operation record.
//
// (VendorAccountID, VendorID) is globally unique: re-importing the same
// vendor transaction must not create a duplicate persisted record.
type Transaction struct {
	// ID is the internal identifier, assigned by reconciliation.
	ID string

	Label string
	Type  TransactionType

	// CategoryID and CategoryProba are populated by the classifier, not by
	// the mapping step.
	CategoryID    string
	CategoryProba float64

	// Date and DateOperation are both derived from the single vendor
	// "confirmed" timestamp and are currently identical. They stay as two
	// independently named fields.
	Date          time.Time
	DateOperation time.Time

	// DateImport is the record-creation instant, in UTC.
	DateImport time.Time

	Currency string
	Amount   decimal.Decimal

	// VendorAccountID is the owning account's vendor identifier.
	VendorAccountID string
	// AccountID is the owning account's internal identifier, set by
	// reconciliation.
	AccountID string

	// VendorID is the vendor's transaction identifier, unique per
	// transaction within an account.
	VendorID string
}
