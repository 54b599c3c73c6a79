// Package server exposes import run reports over HTTP.
//
// The server is read-only: runs are executed by the CLI, and their
// summaries land as JSON objects in the report bucket. This package
// serves those objects to dashboards and operators.
//
// # Endpoints
//
//   - GET /healthz             liveness probe, always public
//   - GET /api/runs            IDs of all stored runs
//   - GET /api/runs/latest     the most recent run summary
//   - GET /api/runs/:id        one run summary by run ID
//
// The /api group is protected by the auth middleware when an API key is
// configured, and every request is traced with a RayID.
package server
