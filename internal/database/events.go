// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

const eventColumns = `id, user_id, action, product_id, category, query, text, ts, historical`

// HistoricalEvents returns every historical event ordered by time.
func (db *DB) HistoricalEvents(ctx context.Context) (events []models.Event, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_historical", "events", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE historical ORDER BY ts, id`)
	if err != nil {
		return nil, fmt.Errorf("query historical events: %w", err)
	}
	return scanEvents(rows)
}

// UserEvents returns the user's live events at or after since, oldest first.
func (db *DB) UserEvents(ctx context.Context, userID string, since time.Time) (events []models.Event, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_user", "events", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE NOT historical AND user_id = ? AND ts >= ?
		ORDER BY ts, id`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query user events: %w", err)
	}
	return scanEvents(rows)
}

// EventsByAction returns live events of the given actions at or after since.
func (db *DB) EventsByAction(ctx context.Context, actions []models.Action, since time.Time) (events []models.Event, err error) {
	if len(actions) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_action", "events", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	args := make([]any, 0, len(actions)+1)
	for _, a := range actions {
		args = append(args, string(a))
	}
	args = append(args, since.UTC())

	//nolint:gosec // placeholders only, values are bound
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE NOT historical AND action IN (` + placeholders(len(actions)) + `) AND ts >= ?
		ORDER BY ts, id`
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events by action: %w", err)
	}
	return scanEvents(rows)
}

// AppendEvent stores one event and registers its user if unseen. Appending
// an event id twice is a no-op.
func (db *DB) AppendEvent(ctx context.Context, e *models.Event) error {
	return db.AppendEvents(ctx, []models.Event{*e})
}

// AppendEvents stores events in a single transaction, registering unseen
// users along the way.
func (db *DB) AppendEvents(ctx context.Context, events []models.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "events", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withRetry(ctx, func() error {
		return db.appendEvents(ctx, events)
	})
}

func (db *DB) appendEvents(ctx context.Context, events []models.Event) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	userStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO users (user_id, name) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare user insert: %w", err)
	}
	defer closeQuietly(userStmt)

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer closeQuietly(eventStmt)

	users := make(map[string]struct{})
	for i := range events {
		e := &events[i]
		if _, ok := users[e.UserID]; !ok {
			users[e.UserID] = struct{}{}
			if _, err := userStmt.ExecContext(ctx, e.UserID, e.UserID); err != nil {
				return fmt.Errorf("insert user %s: %w", e.UserID, err)
			}
		}

		var productID sql.NullInt64
		if e.Detail.ProductID > 0 {
			productID = sql.NullInt64{Int64: e.Detail.ProductID, Valid: true}
		}
		if _, err := eventStmt.ExecContext(ctx,
			e.ID, e.UserID, string(e.Action), productID,
			e.Detail.Category, e.Detail.Query, e.Detail.Text,
			e.Timestamp.UTC(), e.Historical,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// eventRows is the subset of *sql.Rows scanEvents reads.
type eventRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanEvents reads every row. A row that fails to scan is logged, counted
// as skipped and left out; the rest of the result is still returned.
func scanEvents(rows eventRows) ([]models.Event, error) {
	defer closeQuietly(rows)

	var (
		events  []models.Event
		skipped int
	)
	for rows.Next() {
		var (
			e         models.Event
			action    string
			productID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &productID,
			&e.Detail.Category, &e.Detail.Query, &e.Detail.Text,
			&e.Timestamp, &e.Historical); err != nil {
			skipped++
			logging.Warn().Err(err).Msg("skipping unreadable event row")
			continue
		}
		e.Action = models.Action(action)
		if productID.Valid {
			e.Detail.ProductID = productID.Int64
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	metrics.RecordSkippedEvents("scan", skipped)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
