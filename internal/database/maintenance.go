// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/shopfeed/internal/logging"
)

// DeleteResult counts the rows removed by DeleteAll.
type DeleteResult struct {
	Products int64 `json:"products"`
	Users    int64 `json:"users"`
	Events   int64 `json:"events"`
}

// Counts holds the current row counts.
type Counts struct {
	Products   int `json:"products"`
	Users      int `json:"users"`
	Historical int `json:"historical_events"`
	Live       int `json:"live_events"`
}

// DeleteAll removes every row from products, users and events in one
// transaction. The schema is kept.
func (db *DB) DeleteAll(ctx context.Context) (DeleteResult, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var res DeleteResult
	err := withRetry(ctx, func() error {
		res = DeleteResult{}
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer rollbackQuietly(tx)

		for _, t := range []struct {
			table string
			count *int64
		}{
			{"events", &res.Events},
			{"users", &res.Users},
			{"products", &res.Products},
		} {
			r, err := tx.ExecContext(ctx, "DELETE FROM "+t.table)
			if err != nil {
				return fmt.Errorf("delete %s: %w", t.table, err)
			}
			if *t.count, err = r.RowsAffected(); err != nil {
				return fmt.Errorf("count deleted %s: %w", t.table, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return DeleteResult{}, err
	}

	logging.Info().
		Int64("products", res.Products).
		Int64("users", res.Users).
		Int64("events", res.Events).
		Msg("deleted all data")
	return res, nil
}

// Counts returns the row count of every table.
func (db *DB) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c Counts
	err := db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM events WHERE historical),
		(SELECT COUNT(*) FROM events WHERE NOT historical)`,
	).Scan(&c.Products, &c.Users, &c.Historical, &c.Live)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
