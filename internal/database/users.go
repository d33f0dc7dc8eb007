// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

// ErrUserNotFound is returned when a user id is not in the directory.
var ErrUserNotFound = errors.New("user not found")

// UserExists reports whether the user is in the directory.
func (db *DB) UserExists(ctx context.Context, userID string) (exists bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("exists", "users", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return exists, nil
}

// User returns one user record.
func (db *DB) User(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var (
		u       models.User
		cluster sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, name, cluster_id FROM users WHERE user_id = ?`, userID,
	).Scan(&u.ID, &u.Name, &cluster)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if cluster.Valid {
		id := int(cluster.Int64)
		u.ClusterID = &id
	}
	return &u, nil
}

// UserIDs returns every user id in ascending order.
func (db *DB) UserIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer closeQuietly(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertUsers inserts users, updating the name of existing ones. Cluster
// ids are left to SetClusters.
func (db *DB) UpsertUsers(ctx context.Context, users []models.User) (err error) {
	if len(users) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "users", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withRetry(ctx, func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer rollbackQuietly(tx)

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (user_id, name) VALUES (?, ?)
			ON CONFLICT (user_id) DO UPDATE SET name = excluded.name`)
		if err != nil {
			return fmt.Errorf("prepare user upsert: %w", err)
		}
		defer closeQuietly(stmt)

		for i := range users {
			if _, err := stmt.ExecContext(ctx, users[i].ID, users[i].Name); err != nil {
				return fmt.Errorf("upsert user %s: %w", users[i].ID, err)
			}
		}
		return tx.Commit()
	})
}

// SetClusters replaces every user's cohort id with the given assignment.
// Users absent from the assignment end up with no cohort; assigned users
// missing from the directory are registered.
func (db *DB) SetClusters(ctx context.Context, assignments map[string]int) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("set_clusters", "users", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	ids := make([]string, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return withRetry(ctx, func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer rollbackQuietly(tx)

		if _, err := tx.ExecContext(ctx, `UPDATE users SET cluster_id = NULL WHERE cluster_id IS NOT NULL`); err != nil {
			return fmt.Errorf("reset clusters: %w", err)
		}

		insert, err := tx.PrepareContext(ctx,
			`INSERT INTO users (user_id, name) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare user insert: %w", err)
		}
		defer closeQuietly(insert)

		update, err := tx.PrepareContext(ctx, `UPDATE users SET cluster_id = ? WHERE user_id = ?`)
		if err != nil {
			return fmt.Errorf("prepare cluster update: %w", err)
		}
		defer closeQuietly(update)

		for _, id := range ids {
			if _, err := insert.ExecContext(ctx, id, id); err != nil {
				return fmt.Errorf("register user %s: %w", id, err)
			}
			if _, err := update.ExecContext(ctx, assignments[id], id); err != nil {
				return fmt.Errorf("set cluster for %s: %w", id, err)
			}
		}
		return tx.Commit()
	})
}
