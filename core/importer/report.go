package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"dw-importer/core/storage"
)

// Config holds report publishing settings.
type Config struct {
	// ReportBucket is the bucket run reports are written to.
	ReportBucket string `mapstructure:"report_bucket" default:"reports"`
	// ReportPrefix is an optional object-name prefix for reports.
	ReportPrefix string `mapstructure:"report_prefix" default:""`
}

// LatestReport is the fixed alias object that always points at the most
// recent run. The report server reads it for /api/runs/latest.
const LatestReport = "latest.json"

// Reporter persists run summaries to object storage.
type Reporter struct {
	client storage.Client
	cfg    Config
	log    *zap.Logger
}

// NewReporter creates a Reporter. A nil logger disables logging.
func NewReporter(client storage.Client, cfg Config, log *zap.Logger) *Reporter {
	if cfg.ReportBucket == "" {
		cfg.ReportBucket = "reports"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{client: client, cfg: cfg, log: log}
}

// ObjectName returns where the report for the given run is stored.
func (r *Reporter) ObjectName(runID string) string {
	return path.Join(r.cfg.ReportPrefix, runID+".json")
}

// Publish writes the summary as JSON under the run's own name and then
// overwrites the latest-run alias. The bucket is created on first use.
func (r *Reporter) Publish(ctx context.Context, sum *RunSummary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run summary: %w", err)
	}

	exists, err := r.client.BucketExists(ctx, r.cfg.ReportBucket)
	if err != nil {
		return fmt.Errorf("failed to check report bucket: %w", err)
	}
	if !exists {
		if err := r.client.MakeBucket(ctx, r.cfg.ReportBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create report bucket: %w", err)
		}
	}

	for _, name := range []string{r.ObjectName(sum.RunID), path.Join(r.cfg.ReportPrefix, LatestReport)} {
		_, err := r.client.PutObject(ctx, r.cfg.ReportBucket, name,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return fmt.Errorf("failed to store report %s: %w", name, err)
		}
	}

	r.log.Info("report published",
		zap.String("run_id", sum.RunID),
		zap.String("bucket", r.cfg.ReportBucket),
		zap.String("object", r.ObjectName(sum.RunID)))
	return nil
}
