// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package database stores the product catalog, the user directory and the
event log in DuckDB.

DB implements the recommend package's EventSource, Catalog and
UserDirectory interfaces:

  - HistoricalEvents, UserEvents, EventsByAction: event reads
  - Products, ProductsByCategory, AllProducts: catalog lookups
  - UserExists, SetClusters: user directory

Writes (AppendEvents, UpsertProducts, UpsertUsers, SetClusters, DeleteAll)
run in transactions and retry DuckDB transaction conflicts a few times with
a short backoff. Every query records its latency in the db_query metrics.

# Demo Data

Seed writes a deterministic data set: products across six categories,
users that favor two categories each, historical seen/order pairs and a few
recent live events. GenerateSeed returns the same data without a database.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	events, err := db.HistoricalEvents(ctx)

Dependencies:
  - github.com/duckdb/duckdb-go/v2: DuckDB driver (CGO-based)
  - github.com/google/uuid: stable seeded event ids
*/
package database
