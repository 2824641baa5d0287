// Package archive writes snapshots of the raw vendor payloads to a GCS
// bucket, so a vendor contract change can be diagnosed against the exact
// data a past run saw.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/bank-sync/internal/logger"
	"github.com/dvloznov/bank-sync/internal/n26"
)

// Uploader archives run payloads into a fixed bucket. It assumes Application
// Default Credentials are configured.
type Uploader struct {
	bucket string
}

// NewUploader creates an Uploader targeting the given bucket.
func NewUploader(bucket string) *Uploader {
	return &Uploader{bucket: bucket}
}

// ArchiveRun stores the account and transactions payloads of one run under
// runs/<timestamp>/.
func (u *Uploader) ArchiveRun(ctx context.Context, ts time.Time, account n26.Account, txs []n26.Transaction) error {
	log := logger.FromContext(ctx)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("ArchiveRun: create storage client: %w", err)
	}
	defer client.Close()

	prefix := "runs/" + ts.UTC().Format("2006-01-02T150405Z")

	objects := []struct {
		name    string
		payload interface{}
	}{
		{prefix + "/account.json", account},
		{prefix + "/transactions.json", txs},
	}

	for _, obj := range objects {
		if err := u.writeJSON(ctx, client, obj.name, obj.payload); err != nil {
			return fmt.Errorf("ArchiveRun: %w", err)
		}
	}

	log.Info().Str("bucket", u.bucket).Str("prefix", prefix).Msg("Archived raw vendor payloads")
	return nil
}

func (u *Uploader) writeJSON(ctx context.Context, client *storage.Client, objectName string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", objectName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %q: %w", objectName, err)
	}
	return nil
}
