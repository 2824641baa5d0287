package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/bank-sync/internal/archive"
	"github.com/dvloznov/bank-sync/internal/classify"
	"github.com/dvloznov/bank-sync/internal/config"
	"github.com/dvloznov/bank-sync/internal/connector"
	infrabq "github.com/dvloznov/bank-sync/internal/infra/bigquery"
	"github.com/dvloznov/bank-sync/internal/logger"
	"github.com/dvloznov/bank-sync/internal/n26"
	"github.com/dvloznov/bank-sync/internal/reconcile"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("project_id", cfg.Store.ProjectID).
		Str("dataset_id", cfg.Store.DatasetID).
		Bool("archive", cfg.Archive.Bucket != "").
		Msg("Starting bank sync")

	store, err := infrabq.NewStore(ctx, cfg.Store.ProjectID, cfg.Store.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery store")
	}
	defer store.Close()

	var archiver connector.Archiver
	if cfg.Archive.Bucket != "" {
		archiver = archive.NewUploader(cfg.Archive.Bucket)
	}

	conn := connector.New(
		connector.NewN26Vendor(n26.NewClient()),
		classify.New(cfg.Classifier.Model),
		reconcile.New(store),
		store,
		archiver,
	)

	fields := connector.Fields{
		Login:    cfg.Vendor.Login,
		Password: cfg.Vendor.Password,
	}

	if err := conn.Run(ctx, fields); err != nil {
		var authErr *connector.AuthenticationError
		var downErr *connector.ServiceUnavailableError
		switch {
		case errors.As(err, &authErr):
			log.Fatal().Err(err).Msg("Sync failed: vendor rejected the credentials")
		case errors.As(err, &downErr):
			log.Fatal().Err(err).Msg("Sync failed: vendor service unavailable")
		default:
			log.Fatal().Err(err).Msg("Sync failed")
		}
	}

	fmt.Println("Sync completed successfully.")
}
