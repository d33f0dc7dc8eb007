// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/shopfeed/internal/metrics"
)

// fakeRow is one result row; a non-nil err fails its Scan.
type fakeRow struct {
	id     string
	action string
	item   int64
	err    error
}

type fakeRows struct {
	rows   []fakeRow
	pos    int
	iter   error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if row.err != nil {
		return row.err
	}
	*dest[0].(*string) = row.id
	*dest[1].(*string) = "u1"
	*dest[2].(*string) = row.action
	*dest[3].(*sql.NullInt64) = sql.NullInt64{Int64: row.item, Valid: row.item > 0}
	*dest[4].(*string) = "shoes"
	*dest[5].(*string) = ""
	*dest[6].(*string) = ""
	*dest[7].(*time.Time) = testNow
	*dest[8].(*bool) = true
	return nil
}

func (r *fakeRows) Err() error { return r.iter }

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func TestScanEvents_SkipsUnreadableRows(t *testing.T) {
	skipped := metrics.EventsSkipped.WithLabelValues("scan")
	before := testutil.ToFloat64(skipped)

	rows := &fakeRows{rows: []fakeRow{
		{id: "e1", action: "order", item: 1},
		{err: errors.New("converting NULL to string is unsupported")},
		{id: "e3", action: "seen", item: 3},
		{err: errors.New("bad timestamp")},
	}}
	events, err := scanEvents(rows)
	if err != nil {
		t.Fatalf("scanEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].ID != "e1" || events[1].ID != "e3" {
		t.Fatalf("scanEvents() = %+v, want e1 and e3", events)
	}
	if events[1].Detail.ProductID != 3 || events[1].Action != "seen" {
		t.Errorf("events[1] = %+v", events[1])
	}
	if got := testutil.ToFloat64(skipped) - before; got != 2 {
		t.Errorf("skipped counter grew by %v, want 2", got)
	}
	if !rows.closed {
		t.Error("rows should be closed")
	}
}

func TestScanEvents_IterationError(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{
		rows: []fakeRow{{id: "e1", action: "order", item: 1}},
		iter: errors.New("connection reset"),
	}
	if _, err := scanEvents(rows); err == nil {
		t.Error("scanEvents() should surface iteration errors")
	}
}
