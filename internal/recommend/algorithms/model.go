// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/shopfeed/internal/models"
)

// Model is the immutable set of artifacts built from historical events.
// It is published whole and never mutated afterwards, so scorers may read
// it without locking.
type Model struct {
	Version uint64
	BuiltAt time.Time

	Similarity *ItemSimilarity
	Clusters   *ClusterAssignment

	// History holds every historical item interaction per user in event
	// order, duplicates included, so cohort popularity can count occurrences.
	History map[string][]int64

	// Popular is the undecayed historical trending result, served when no
	// live event falls in the trending window.
	Popular TrendingResult

	// Boost holds the flat business boost of promoted catalog items.
	Boost map[int64]float64

	EventCount int
	Skipped    int
}

// IsEmpty reports whether the model carries no signal.
func (m *Model) IsEmpty() bool {
	return m == nil || (m.Similarity.IsEmpty() && len(m.History) == 0)
}

// UserHistory returns the distinct historical items of a user in first
// encounter order.
func (m *Model) UserHistory(user string) []int64 {
	if m == nil {
		return nil
	}
	return distinct(m.History[user])
}

// ModelBuilder builds a Model from historical events.
type ModelBuilder struct {
	Matrix   MatrixBuilder
	KMeans   KMeans
	Trending TrendingScorer
}

// Build constructs the similarity matrix, the cohort assignment and the
// per-user history. Users that cannot be clustered (no categorized events)
// simply have no cohort.
func (b ModelBuilder) Build(ctx context.Context, events []models.Event, version uint64, now time.Time) (*Model, error) {
	items := b.Matrix.Items(events)
	sim, err := BuildItemSimilarity(ctx, items)
	if err != nil {
		return nil, err
	}

	clusters, err := b.KMeans.Fit(ctx, b.Matrix.Categories(events))
	if errors.Is(err, ErrNoUsers) {
		clusters, err = &ClusterAssignment{Requested: b.KMeans.K, Assignments: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cluster users: %w", err)
	}

	history := make(map[string][]int64)
	for i := range events {
		e := &events[i]
		item, _, ok := b.Matrix.resolve(e)
		if !ok || e.UserID == "" {
			continue
		}
		history[e.UserID] = append(history[e.UserID], item)
	}

	return &Model{
		Version:    version,
		BuiltAt:    now,
		Similarity: sim,
		Clusters:   clusters,
		History:    history,
		Popular:    b.Trending.Score(nil, events, now),
		Boost:      BusinessBoost(catalogProducts(b.Matrix.Catalog)),
		EventCount: len(events),
		Skipped:    items.Skipped,
	}, nil
}

func catalogProducts(catalog map[int64]models.Product) []models.Product {
	out := make([]models.Product, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	return out
}

func distinct(items []int64) []int64 {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(items))
	out := make([]int64, 0, len(items))
	for _, id := range items {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
