// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package weights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/shopfeed/internal/metrics"
)

// ErrInvalidUserID is returned for an empty or malformed user id.
var ErrInvalidUserID = errors.New("invalid user id")

const profileKeyPrefix = "weights:"

// Options configures the badger database backing the store.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// OpenDB opens the badger database for weight profiles.
func OpenDB(opts Options) (*badger.DB, error) {
	bopts := badger.DefaultOptions(opts.Path).WithSyncWrites(opts.SyncWrites)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open weights database: %w", err)
	}
	return db, nil
}

// BadgerStore persists weight profiles in BadgerDB, one JSON value per user.
// Read-modify-write of the same user is serialized by a per-user mutex;
// different users never contend.
type BadgerStore struct {
	db     *badger.DB
	params Params
	now    func() time.Time

	userLocks sync.Map // map[string]*sync.Mutex
}

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB, params Params) *BadgerStore {
	return &BadgerStore{
		db:     db,
		params: params.normalized(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Params returns the learning parameters in use.
func (s *BadgerStore) Params() Params { return s.params }

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" || len(userID) > 256 {
		return ErrInvalidUserID
	}
	return nil
}

func (s *BadgerStore) lockUser(userID string) func() {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex) //nolint:forcetypeassert // only *sync.Mutex is stored
	m.Lock()
	return m.Unlock
}

// Get returns the user's profile, creating and persisting the defaults on
// first access.
func (s *BadgerStore) Get(ctx context.Context, userID string) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}
	defer metrics.RecordWeightStoreOp("get", time.Now())

	p, found, err := s.read(userID)
	if err != nil {
		return Profile{}, err
	}
	if found {
		return p, nil
	}

	unlock := s.lockUser(userID)
	defer unlock()

	// Another caller may have created it while we waited.
	p, found, err = s.read(userID)
	if err != nil {
		return Profile{}, err
	}
	if found {
		return p, nil
	}
	p = Defaults()
	if err := s.write(userID, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Update applies one feedback signal and persists the result before
// returning. Unknown signals return the current profile unchanged.
func (s *BadgerStore) Update(ctx context.Context, userID string, signal Signal) (Profile, bool, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, false, err
	}
	defer metrics.RecordWeightStoreOp("update", time.Now())

	unlock := s.lockUser(userID)
	defer unlock()

	p, found, err := s.read(userID)
	if err != nil {
		return Profile{}, false, err
	}
	if !found {
		p = Defaults()
	}

	next, changed := Apply(p, signal, s.params)
	if !changed {
		if !found {
			if err := s.write(userID, p); err != nil {
				return Profile{}, false, err
			}
		}
		return p, false, nil
	}

	next.Updates++
	next.UpdatedAt = s.now()
	if err := s.write(userID, next); err != nil {
		return Profile{}, false, err
	}
	return next, true, nil
}

// Put overwrites a user's profile.
//
//nolint:gocritic // Profile is small and stored by value
func (s *BadgerStore) Put(ctx context.Context, userID string, p Profile) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	defer metrics.RecordWeightStoreOp("put", time.Now())

	unlock := s.lockUser(userID)
	defer unlock()
	return s.write(userID, p)
}

// Delete removes a user's profile. The next Get recreates the defaults.
func (s *BadgerStore) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	unlock := s.lockUser(userID)
	defer unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(profileKeyPrefix + userID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}

// DeleteAll removes every stored profile and returns how many existed.
func (s *BadgerStore) DeleteAll(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.DropPrefix([]byte(profileKeyPrefix)); err != nil {
		return 0, fmt.Errorf("drop profiles: %w", err)
	}
	return n, nil
}

// Count returns the number of stored profiles.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(profileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

func (s *BadgerStore) read(userID string) (Profile, bool, error) {
	var p Profile
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return Profile{}, false, err
	}
	return p, found, nil
}

//nolint:gocritic // Profile is small and stored by value
func (s *BadgerStore) write(userID string, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+userID), data)
	})
}
