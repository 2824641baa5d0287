package connector

import (
	"fmt"
	"time"

	"github.com/dvloznov/bank-sync/internal/domain"
	"github.com/dvloznov/bank-sync/internal/n26"
)

const (
	// accountLabel is the fixed display label of the single current
	// account the vendor exposes.
	accountLabel = "COMPTE COURANT"

	// ibanNumberLen is the length of the account number extracted from the
	// IBAN: the characters at offsets -13 through -2 from the end, i.e.
	// excluding the two trailing check characters.
	ibanNumberLen = 11
)

// MapAccount converts the vendor account payload into a canonical Account.
// The account number is a fixed-offset substring of the IBAN and serves as
// both Number and RawNumber. The vendor only exposes a current account, so
// the type is always Checkings.
func MapAccount(v n26.Account) (domain.Account, error) {
	if v.IBAN == "" {
		return domain.Account{}, &MappingError{Field: "iban", Err: fmt.Errorf("missing field")}
	}
	if len(v.IBAN) < ibanNumberLen+2 {
		return domain.Account{}, &MappingError{Field: "iban", Err: fmt.Errorf("too short: %d chars", len(v.IBAN))}
	}
	if v.BankBalance == nil {
		return domain.Account{}, &MappingError{Field: "bankBalance", Err: fmt.Errorf("missing field")}
	}

	number := v.IBAN[len(v.IBAN)-13 : len(v.IBAN)-2]

	return domain.Account{
		InstitutionLabel: v.BankName,
		Label:            accountLabel,
		Type:             domain.AccountTypeCheckings,
		Balance:          *v.BankBalance,
		Number:           number,
		RawNumber:        number,
		VendorID:         v.ID,
	}, nil
}

// MapTransactions converts vendor transactions into canonical Transactions
// owned by the given account. Output order matches input order; output
// length matches input length. Business date and operation date are both
// derived from the vendor's single "confirmed" timestamp; the import
// timestamp is the current UTC instant, shared by all records of the call.
func MapTransactions(acc domain.Account, vts []n26.Transaction) []domain.Transaction {
	imported := time.Now().UTC()

	out := make([]domain.Transaction, 0, len(vts))
	for _, vt := range vts {
		out = append(out, domain.Transaction{
			Label:           vt.ReferenceText,
			Type:            domain.TransactionTypeNone,
			Date:            vt.Confirmed.Time,
			DateOperation:   vt.Confirmed.Time,
			DateImport:      imported,
			Currency:        vt.CurrencyCode,
			Amount:          vt.Amount,
			VendorAccountID: acc.VendorID,
			VendorID:        vt.ID,
		})
	}
	return out
}
