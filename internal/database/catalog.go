// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

const productColumns = `product_id, name, brand, category, tags`

// AllProducts returns the whole catalog ordered by id.
func (db *DB) AllProducts(ctx context.Context) (products []models.Product, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_all", "products", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return scanProducts(rows)
}

// Products returns the known products among ids, keyed by id.
func (db *DB) Products(ctx context.Context, ids []int64) (out map[int64]models.Product, err error) {
	out = make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_ids", "products", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	//nolint:gosec // placeholders only, values are bound
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by id: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ProductsByCategory returns the products of the given categories ordered
// by id.
func (db *DB) ProductsByCategory(ctx context.Context, categories []string) (products []models.Product, err error) {
	if len(categories) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_category", "products", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	args := make([]any, len(categories))
	for i, c := range categories {
		args[i] = c
	}
	//nolint:gosec // placeholders only, values are bound
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE category IN (`+placeholders(len(categories))+`)
		ORDER BY product_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by category: %w", err)
	}
	return scanProducts(rows)
}

// UpsertProducts inserts products, replacing rows with the same id.
func (db *DB) UpsertProducts(ctx context.Context, products []models.Product) (err error) {
	if len(products) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "products", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withRetry(ctx, func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer rollbackQuietly(tx)

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (product_id) DO UPDATE SET
				name = excluded.name, brand = excluded.brand,
				category = excluded.category, tags = excluded.tags`)
		if err != nil {
			return fmt.Errorf("prepare product upsert: %w", err)
		}
		defer closeQuietly(stmt)

		for i := range products {
			p := &products[i]
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Brand, p.Category, strings.Join(p.Tags, ",")); err != nil {
				return fmt.Errorf("upsert product %d: %w", p.ID, err)
			}
		}
		return tx.Commit()
	})
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	defer closeQuietly(rows)

	var products []models.Product
	for rows.Next() {
		var (
			p    models.Product
			tags string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &tags); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if tags != "" {
			p.Tags = strings.Split(tags, ",")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
