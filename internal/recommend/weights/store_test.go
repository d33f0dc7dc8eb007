// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package weights

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := OpenDB(Options{InMemory: true})
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, DefaultParams())
}

func TestBadgerStore_GetCreatesDefaults(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != Defaults() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 (defaults persisted)", n)
	}
}

func TestBadgerStore_InvalidUserID(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, ""); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("Get(\"\") error = %v, want ErrInvalidUserID", err)
	}
	if _, _, err := store.Update(ctx, "   ", SignalCollab); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("Update() error = %v, want ErrInvalidUserID", err)
	}
	if err := store.Put(ctx, "", Defaults()); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("Put() error = %v, want ErrInvalidUserID", err)
	}
}

func TestBadgerStore_UpdatePersists(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	updated, changed, err := store.Update(ctx, "bob", SignalSearch)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !changed {
		t.Fatal("Update(search) should change the profile")
	}
	if updated.Updates != 1 || updated.UpdatedAt.IsZero() {
		t.Errorf("Updates = %d, UpdatedAt = %v", updated.Updates, updated.UpdatedAt)
	}

	reloaded, err := store.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if reloaded.User != updated.User || reloaded.Search != updated.Search {
		t.Errorf("reloaded = %+v, want %+v", reloaded, updated)
	}
}

func TestBadgerStore_UnknownSignalNoop(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	got, changed, err := store.Update(ctx, "carol", Signal("unknown"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if changed {
		t.Error("unknown signal should not change the profile")
	}
	if got != Defaults() {
		t.Errorf("Update() = %+v, want defaults", got)
	}
}

func TestBadgerStore_RoundTripBitIdentical(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	want := Profile{
		Collab:    0.1 + 0.2,
		User:      1.0 / 3.0,
		Business:  math.Nextafter(0.1, 1),
		Cancelled: -0.9000000000000001,
		Repeating: math.SmallestNonzeroFloat64,
		Search:    2.0 / 7.0,
		Seen:      0.3,
		Updates:   42,
	}
	if err := store.Put(ctx, "dave", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, "dave")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	pairs := []struct {
		name      string
		got, want float64
	}{
		{"w1_collab", got.Collab, want.Collab},
		{"w2_user", got.User, want.User},
		{"w3_business", got.Business, want.Business},
		{"x1_cancelled", got.Cancelled, want.Cancelled},
		{"x2_repeating", got.Repeating, want.Repeating},
		{"x3_search", got.Search, want.Search},
		{"x4_seen", got.Seen, want.Seen},
	}
	for _, p := range pairs {
		if math.Float64bits(p.got) != math.Float64bits(p.want) {
			t.Errorf("%s = %v, want bit-identical %v", p.name, p.got, p.want)
		}
	}
}

func TestBadgerStore_ConcurrentUpdatesSameUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.Update(ctx, "erin", SignalRepeatingOrder); err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "erin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Every update must be applied: 0.45 + 8*0.05 clamps at 0.85.
	if got.Updates != n {
		t.Errorf("Updates = %d, want %d (lost update)", got.Updates, n)
	}
	if !near(got.User, 0.85) || !near(got.Collab, 0.05) {
		t.Errorf("User, Collab = %v, %v, want 0.85, 0.05", got.User, got.Collab)
	}
}

func TestBadgerStore_DeleteAndDeleteAll(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2", "u3"} {
		if _, _, err := store.Update(ctx, u, SignalCollab); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() of missing profile error = %v", err)
	}
	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != Defaults() {
		t.Errorf("Get() after Delete = %+v, want defaults", got)
	}

	removed, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("DeleteAll() = %d, want 3", removed)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count() after DeleteAll = %d, want 0", n)
	}
}

func TestBadgerStore_CorruptValue(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+"frank"), []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), "frank"); err == nil {
		t.Error("Get() of corrupt profile error = nil, want error")
	}
}
