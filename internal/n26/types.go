package n26

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the vendor's account payload as returned by GET /api/accounts.
// BankBalance is a pointer so an absent field is distinguishable from a zero
// balance.
type Account struct {
	ID          string           `json:"id"`
	IBAN        string           `json:"iban"`
	BankName    string           `json:"bankName"`
	BankBalance *decimal.Decimal `json:"bankBalance"`
}

// Transaction is the vendor's transaction payload as returned by
// GET /api/smrt/transactions.
type Transaction struct {
	ID            string          `json:"id"`
	ReferenceText string          `json:"referenceText"`
	CurrencyCode  string          `json:"currencyCode"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmed     MillisTime      `json:"confirmed"`
}

// MillisTime decodes the vendor's epoch-milliseconds timestamps.
type MillisTime struct {
	time.Time
}

// UnmarshalJSON accepts an integer number of milliseconds since the Unix
// epoch.
func (m *MillisTime) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	m.Time = time.UnixMilli(ms)
	return nil
}

// MarshalJSON emits epoch milliseconds, mirroring the vendor wire format.
func (m MillisTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}
