// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
schema.go - Database Schema Management

Tables:
  - products: immutable catalog reference data; tags are stored comma-joined
  - users: shoppers with the cohort id written back by each rebuild
  - events: one row per interaction, historical or live

The historical and live partitions share the events table and are told apart
by the historical flag. Historical rows feed rebuilds only; live rows drive
personalization and trending.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the tables and indexes if they do not exist.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			product_id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			cluster_id INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			product_id BIGINT,
			category TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			ts TIMESTAMP NOT NULL,
			historical BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_action_ts ON events(action, ts)`,
	}
}
