package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType classifies a bank account.
type AccountType string

const (
	// AccountTypeCheckings is the only type the N26 connector produces today;
	// the vendor API does not expose savings or credit sub-accounts to us.
	AccountTypeCheckings AccountType = "Checkings"
)

// Account is the canonical bank account record, independent of the vendor
// payload shape.
//
// VendorID is the opaque identifier the vendor assigns to the real-world
// account. It is unique per real account and is the sole key used to decide
// whether an account already exists in the store.
type Account struct {
	// ID is the internal identifier, assigned by reconciliation. Empty on
	// freshly mapped records.
	ID string

	InstitutionLabel string
	Label            string
	Type             AccountType
	Balance          decimal.Decimal

	// Number and RawNumber are both derived from the vendor IBAN; the two
	// fields exist because downstream consumers treat the raw form as the
	// vendor-provided original and Number as the normalized display form.
	Number    string
	RawNumber string

	VendorID string
}
