package connector

import (
	"context"
	"time"

	"github.com/dvloznov/bank-sync/internal/domain"
	"github.com/dvloznov/bank-sync/internal/n26"
)

// VendorClient authenticates against the banking provider. Session handling,
// pagination and rate limits are the client's concern, not the connector's.
type VendorClient interface {
	Authenticate(ctx context.Context, login, password string) (VendorSession, error)
}

// VendorSession is an authenticated provider session.
type VendorSession interface {
	GetAccount(ctx context.Context) (n26.Account, error)
	GetTransactions(ctx context.Context) ([]n26.Transaction, error)
}

// Classifier assigns a category id and confidence score to each transaction.
// It is order-preserving and returns a list of the same length.
type Classifier interface {
	Classify(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error)
}

// Reconciler persists accounts and transactions idempotently and returns
// the accounts as persisted, with internal ids populated.
type Reconciler interface {
	Save(ctx context.Context, accounts []domain.Account, transactions []domain.Transaction) ([]domain.Account, error)
}

// Archiver stores a snapshot of the raw vendor payloads for a run. Optional;
// a nil Archiver disables archiving.
type Archiver interface {
	ArchiveRun(ctx context.Context, ts time.Time, account n26.Account, txs []n26.Transaction) error
}
