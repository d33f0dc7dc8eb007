// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/shopfeed/internal/recommend/algorithms"
)

// SnapshotName is the artifact name under which models are stored.
const SnapshotName = "snapshot"

// SnapshotStore persists recommendation models as versioned snapshots.
type SnapshotStore struct {
	store *Store
	keep  int
}

// NewSnapshotStore opens a snapshot store under dir keeping the newest keep
// versions (minimum 1).
func NewSnapshotStore(dir string, keep int) (*SnapshotStore, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	if keep < 1 {
		keep = 1
	}
	return &SnapshotStore{store: store, keep: keep}, nil
}

// Store returns the underlying artifact store.
func (s *SnapshotStore) Store() *Store { return s.store }

// Save writes the model as version model.Version and prunes old versions.
func (s *SnapshotStore) Save(ctx context.Context, model *algorithms.Model, buildDuration time.Duration) error {
	if model == nil {
		return errors.New("nil model")
	}
	meta := Metadata{
		BuiltAt:         model.BuiltAt,
		EventCount:      model.EventCount,
		ItemCount:       model.Similarity.Len(),
		UserCount:       len(model.History),
		BuildDurationMS: buildDuration.Milliseconds(),
	}
	if model.Clusters != nil {
		meta.ClusterCount = model.Clusters.K
	}
	if err := s.store.Save(ctx, SnapshotName, model.Version, model, meta); err != nil {
		return fmt.Errorf("save snapshot v%d: %w", model.Version, err)
	}
	if err := s.store.Prune(ctx, SnapshotName, s.keep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// LoadLatest returns the newest stored model. It wraps ErrNotFound when
// nothing has been saved yet.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (*algorithms.Model, error) {
	var model algorithms.Model
	meta, err := s.store.Load(ctx, SnapshotName, 0, &model)
	if err != nil {
		return nil, err
	}
	model.Version = meta.Version
	return &model, nil
}

// LatestVersion returns the newest stored snapshot version, zero if none.
func (s *SnapshotStore) LatestVersion() uint64 {
	v, _ := s.store.LatestVersion(SnapshotName)
	return v
}

// DeleteAll removes every stored snapshot.
func (s *SnapshotStore) DeleteAll(ctx context.Context) (int, error) {
	return s.store.DeleteAll(ctx)
}
