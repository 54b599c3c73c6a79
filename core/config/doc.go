// Package config provides configuration management for the importer.
//
// It utilizes Viper for loading configuration from environment variables
// and .env files, and for reading the source catalog (sources.yaml).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP report server settings (port, API key)
//   - Database: MySQL warehouse connection details
//   - Storage: S3/MinIO credentials and the staging bucket
//   - Log: Logging level and format
//   - Import: report bucket and prefix
//   - Retry: attempt count and backoff for transient failures
//   - Validate: sample sizes for post-merge checks
//
// # Source Catalog
//
// LoadSources reads the per-system table catalog: which systems exist,
// which tables each one contributes, their key and tracked columns, the
// snapshot object to stage from, and referential links between tables.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	systems, err := config.LoadSources("sources.yaml")
package config
