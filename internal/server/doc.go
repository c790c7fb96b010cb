// Package server hosts the HTTP API: vote ingestion, aggregate stats,
// newsletter signup, and the observability endpoints.
package server
