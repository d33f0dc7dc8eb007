// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package main is the entry point for the Shopfeed server.
//
// Shopfeed serves personalized product feeds for an e-commerce catalog. It
// blends item-item collaborative filtering, user cohorts, category affinity,
// trending products and merchandising boosts, and adapts per-user weights
// from explicit feedback.
//
// # Commands
//
//	shopfeed serve         run the HTTP API, the event consumer and the rebuild scheduler
//	shopfeed seed          populate the database with deterministic demo data
//	shopfeed rebuild       run one model rebuild and persist the snapshot
//	shopfeed delete-data   remove all rows, weight profiles and snapshots
//
// # Application Architecture
//
// serve initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Database: DuckDB for catalog, users and events (optionally seeded)
//  3. Weights: BadgerDB store for per-user weight profiles
//  4. Artifacts: versioned model snapshots on disk
//  5. Engine: recommendation engine over the above
//  6. Event bus: Watermill over in-process channels or NATS
//  7. HTTP server: chi router with the REST API and /metrics
//
// Long-running parts run under a suture supervisor tree with three layers:
// the model layer (rebuild scheduler), the ingest layer (event consumer) and
// the API layer (HTTP server).
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (HTTP_PORT, DUCKDB_PATH, SHOPFEED_RECOMMEND__LIST_SIZE, ...)
//   - Config file (--config, CONFIG_PATH or ./config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// serve shuts down gracefully on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests (server.shutdown_timeout)
//   - Stops the consumer and the scheduler
//   - Closes the event bus, the weight store and the database
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Each call returns a fresh tree so
// tests can execute commands in isolation.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "shopfeed",
		Short: "Personalized product feed recommendations",
		Long: `Shopfeed serves personalized product feeds for an e-commerce catalog.

Run "shopfeed serve" to start the API server. The seed, rebuild and
delete-data commands manage the data the server works on.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newSeedCmd(&configPath),
		newRebuildCmd(&configPath),
		newDeleteDataCmd(&configPath),
	)
	return rootCmd
}
