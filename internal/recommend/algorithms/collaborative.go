// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"fmt"
	"slices"
	"sort"
)

// Collaborative strategy names, as used in configuration.
const (
	StrategyItemSimilarity    = "item_similarity"
	StrategyClusterPopularity = "cluster_popularity"
)

// CollaborativeScorer scores items for a user from the behavior of others.
//
// Implementations are pure functions over an immutable Model and return an
// empty (non-nil) map whenever the signal is missing: no history, no
// cohort, no similarity matrix.
type CollaborativeScorer interface {
	Name() string

	// Score returns item -> score in [0, 1]. history is the user's known
	// interacted items (historical and live).
	Score(model *Model, userID string, history []int64) map[int64]float64

	// Ranked returns the candidate items in descending score order.
	Ranked(model *Model, userID string, history []int64) []int64
}

// NewCollaborativeScorer returns the strategy registered under name.
// topK is the similar-items target; item similarity over-fetches topK*5.
func NewCollaborativeScorer(name string, topK int) (CollaborativeScorer, error) {
	switch name {
	case StrategyItemSimilarity, "":
		return &ItemSimilarityScorer{TopK: topK}, nil
	case StrategyClusterPopularity:
		return &ClusterPopularityScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown collaborative strategy %q", name)
	}
}

// ItemSimilarityScorer sums the similarity rows of the user's history
// items, drops the history itself and normalizes by the maximum.
type ItemSimilarityScorer struct {
	TopK int
}

// Name implements CollaborativeScorer.
func (s *ItemSimilarityScorer) Name() string { return StrategyItemSimilarity }

// Score implements CollaborativeScorer.
func (s *ItemSimilarityScorer) Score(model *Model, userID string, history []int64) map[int64]float64 {
	ranked := s.rank(model, history)
	out := make(map[int64]float64, len(ranked))
	for _, r := range ranked {
		out[r.item] = r.score
	}
	return out
}

// Ranked implements CollaborativeScorer.
func (s *ItemSimilarityScorer) Ranked(model *Model, userID string, history []int64) []int64 {
	return itemsOf(s.rank(model, history))
}

func (s *ItemSimilarityScorer) rank(model *Model, history []int64) []scoredItem {
	if model == nil || model.Similarity.IsEmpty() || len(history) == 0 {
		return nil
	}

	// Summing in id order keeps scores bit-identical between calls.
	own := slices.Clone(history)
	slices.Sort(own)
	own = slices.Compact(own)

	sums := make(map[int64]float64)
	for _, id := range own {
		for other, v := range model.Similarity.Row(id) {
			sums[other] += v
		}
	}
	for _, id := range own {
		delete(sums, id)
	}

	maxScore := 0.0
	for _, v := range sums {
		if v > maxScore {
			maxScore = v
		}
	}
	if maxScore <= 0 {
		return nil
	}

	ranked := make([]scoredItem, 0, len(sums))
	for id, v := range sums {
		ranked = append(ranked, scoredItem{item: id, score: v / maxScore})
	}
	sortScored(ranked)

	limit := s.TopK * 5
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ClusterPopularityScorer ranks the items other members of the user's
// cohort interacted with by occurrence count. Ties keep first-encounter
// order. Scores are count / max count.
type ClusterPopularityScorer struct{}

// Name implements CollaborativeScorer.
func (s *ClusterPopularityScorer) Name() string { return StrategyClusterPopularity }

// Score implements CollaborativeScorer.
func (s *ClusterPopularityScorer) Score(model *Model, userID string, _ []int64) map[int64]float64 {
	ranked := s.rank(model, userID)
	out := make(map[int64]float64, len(ranked))
	for _, r := range ranked {
		out[r.item] = r.score
	}
	return out
}

// Ranked implements CollaborativeScorer.
func (s *ClusterPopularityScorer) Ranked(model *Model, userID string, _ []int64) []int64 {
	return itemsOf(s.rank(model, userID))
}

func (s *ClusterPopularityScorer) rank(model *Model, userID string) []scoredItem {
	if model == nil {
		return nil
	}
	cluster, ok := model.Clusters.Cluster(userID)
	if !ok {
		return nil
	}

	members := model.Clusters.Members(cluster)
	sort.Strings(members)

	counts := make(map[int64]int)
	var order []int64
	for _, u := range members {
		if u == userID {
			continue
		}
		for _, id := range model.History[u] {
			if _, seen := counts[id]; !seen {
				order = append(order, id)
			}
			counts[id]++
		}
	}
	if len(order) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	top := float64(counts[order[0]])

	ranked := make([]scoredItem, len(order))
	for i, id := range order {
		ranked[i] = scoredItem{item: id, score: float64(counts[id]) / top}
	}
	return ranked
}

type scoredItem struct {
	item  int64
	score float64
}

// sortScored orders by score descending, then item id ascending.
func sortScored(items []scoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].item < items[j].item
	})
}

func itemsOf(ranked []scoredItem) []int64 {
	if len(ranked) == 0 {
		return nil
	}
	out := make([]int64, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

var (
	_ CollaborativeScorer = (*ItemSimilarityScorer)(nil)
	_ CollaborativeScorer = (*ClusterPopularityScorer)(nil)
)
