package source

import (
	"compress/gzip"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"dw-importer/core/catalog"
	"dw-importer/core/storage"
)

// ObjectProducer reads snapshots from the staging bucket. Objects ending
// in .gz are decompressed transparently.
type ObjectProducer struct {
	client storage.Client
	bucket string
	prefix string
	log    *zap.Logger
}

// NewObjectProducer creates a producer over the given storage client.
func NewObjectProducer(client storage.Client, bucket, prefix string, log *zap.Logger) *ObjectProducer {
	return &ObjectProducer{client: client, bucket: bucket, prefix: prefix, log: log}
}

// Snapshot fetches and parses the extract object for the table.
func (p *ObjectProducer) Snapshot(ctx context.Context, table *catalog.Table) (*Snapshot, error) {
	objectName := table.SourceObject
	if p.prefix != "" {
		objectName = path.Join(p.prefix, objectName)
	}

	obj, err := p.client.GetObject(ctx, p.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", p.bucket, objectName, err)
	}
	defer obj.Close()

	reader := func() (snap *Snapshot, err error) {
		if !strings.HasSuffix(objectName, ".gz") {
			return ReadSnapshot(obj, table)
		}
		gz, err := gzip.NewReader(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s/%s: %w", p.bucket, objectName, err)
		}
		defer gz.Close()
		return ReadSnapshot(gz, table)
	}

	snap, err := reader()
	if err != nil {
		return nil, err
	}

	p.log.Debug("fetched snapshot",
		zap.String("table", table.Name),
		zap.String("object", objectName),
		zap.Int("records", snap.Count()))
	return snap, nil
}
