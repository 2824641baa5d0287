// Package connector implements the bank-data synchronization pipeline:
// authenticate against the vendor, fetch account and transaction data,
// normalize it into canonical records, classify, reconcile against
// previously persisted records, and append today's balance to each
// account's yearly balance history.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/bank-sync/internal/domain"
	"github.com/dvloznov/bank-sync/internal/logger"
	"github.com/dvloznov/bank-sync/internal/n26"
)

// Fields holds the vendor credentials, passed through opaquely from the
// configuration.
type Fields struct {
	Login    string
	Password string
}

// Connector sequences one synchronization run.
type Connector struct {
	vendor     VendorClient
	classifier Classifier
	reconciler Reconciler
	balances   BalanceStore
	archiver   Archiver
}

// New creates a Connector from its collaborators. archiver may be nil to
// disable raw payload archiving.
func New(vendor VendorClient, classifier Classifier, reconciler Reconciler, balances BalanceStore, archiver Archiver) *Connector {
	return &Connector{
		vendor:     vendor,
		classifier: classifier,
		reconciler: reconciler,
		balances:   balances,
		archiver:   archiver,
	}
}

// Run executes the pipeline. It either completes fully — accounts,
// transactions and today's balance all persisted — or returns one terminal
// error from the taxonomy in errors.go; nothing is retried internally.
func (c *Connector) Run(ctx context.Context, fields Fields) error {
	log := logger.FromContext(ctx)

	log.Info().Msg("Authenticating ...")
	session, err := c.vendor.Authenticate(ctx, fields.Login, fields.Password)
	if err != nil {
		var statusErr *n26.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
			return &ServiceUnavailableError{Err: err}
		}
		return &AuthenticationError{Err: err}
	}
	log.Info().Msg("Successfully logged in")

	account, err := session.GetAccount(ctx)
	if err != nil {
		return &ServiceUnavailableError{Err: err}
	}
	transactions, err := session.GetTransactions(ctx)
	if err != nil {
		return &ServiceUnavailableError{Err: err}
	}
	log.Info().Int("transactions", len(transactions)).Msg("Fetched vendor data")

	if c.archiver != nil {
		if err := c.archiver.ArchiveRun(ctx, time.Now().UTC(), account, transactions); err != nil {
			return &PersistenceError{Err: err}
		}
	}

	log.Info().Msg("Get bank account")
	bankAccount, err := MapAccount(account)
	if err != nil {
		return err
	}

	log.Info().Msg("Retrieve all informations for each bank accounts found")
	operations := MapTransactions(bankAccount, transactions)

	log.Info().Msg("Categorize the list of transactions")
	categorized, err := c.classifier.Classify(ctx, operations)
	if err != nil {
		// The classifier propagates its own failures untouched.
		return err
	}

	savedAccounts, err := c.reconciler.Save(ctx, []domain.Account{bankAccount}, categorized)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	log.Info().Msg("Retrieve the balance histories and add the balance of the day for each bank account")
	balances, err := FetchBalances(ctx, c.balances, savedAccounts)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	log.Info().Msg("Save the balance histories")
	if err := c.balances.UpsertBalanceHistories(ctx, balances); err != nil {
		return &PersistenceError{Err: err}
	}

	log.Info().Int("accounts", len(savedAccounts)).Msg("Synchronization completed")
	return nil
}
