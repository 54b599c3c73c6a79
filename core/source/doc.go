// Package source produces staged snapshots for import.
//
// A snapshot is one table's extract as delivered by the upstream system:
// a CSV object (optionally gzip-compressed) in the staging bucket. The
// package parses the raw records up front but defers typed decoding to
// per-record calls, so a malformed cell surfaces as a failure of that one
// record rather than of the whole snapshot.
//
// # Producers
//
// The Producer interface abstracts where snapshots come from. ObjectProducer
// reads them from object storage via the storage.Client; tests feed
// ReadSnapshot directly from in-memory readers.
package source
