// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small interface covering what the
// importer needs: reading staged snapshot extracts and publishing run
// reports. The abstraction supports both AWS S3 and self-hosted MinIO
// instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (as seen in
// core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the snapshot or report bucket.
//   - MakeBucket: Creates the report bucket on first run if needed.
//   - GetObject: Retrieves a snapshot extract or stored report as a stream.
//   - PutObject: Uploads a run report.
//   - ListObjects: Lists stored reports (supports prefix/recursive).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "staging")
package storage
