// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"sort"

	"github.com/tomtom215/shopfeed/internal/models"
)

// DefaultActionWeights is the category-affinity table. Search contributes
// nothing unless configured.
var DefaultActionWeights = map[models.Action]float64{
	models.ActionSeen:    1.0,
	models.ActionReorder: 1.5,
	models.ActionOrder:   1.2,
	models.ActionCancel:  -2.0,
}

// CategoryScore is one category's aggregate affinity.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// PersonalScorer scores a user's recent live activity.
type PersonalScorer struct {
	// ActionWeights maps an action to its category contribution. Nil uses
	// DefaultActionWeights.
	ActionWeights map[models.Action]float64

	// TopN is how many categories qualify. Zero means 3.
	TopN int
}

// TopCategories returns up to TopN categories with a strictly positive
// aggregate score, best first (ties by name). Categories at or below zero
// never qualify.
func (p PersonalScorer) TopCategories(events []models.Event) []CategoryScore {
	weights := p.ActionWeights
	if weights == nil {
		weights = DefaultActionWeights
	}
	topN := p.TopN
	if topN <= 0 {
		topN = 3
	}

	sums := make(map[string]float64)
	for i := range events {
		e := &events[i]
		if e.Detail.Category == "" {
			continue
		}
		w, ok := weights[e.Action]
		if !ok {
			continue
		}
		sums[e.Detail.Category] += w
	}

	out := make([]CategoryScore, 0, len(sums))
	for cat, score := range sums {
		if score > 0 {
			out = append(out, CategoryScore{Category: cat, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// Candidates returns the catalog items of the qualifying categories in
// category rank order, items within a category by id.
func (p PersonalScorer) Candidates(top []CategoryScore, products []models.Product) []int64 {
	if len(top) == 0 {
		return nil
	}
	byCat := make(map[string][]int64, len(top))
	for _, c := range top {
		byCat[c.Category] = nil
	}
	for i := range products {
		if _, ok := byCat[products[i].Category]; ok {
			byCat[products[i].Category] = append(byCat[products[i].Category], products[i].ID)
		}
	}

	var out []int64
	for _, c := range top {
		ids := byCat[c.Category]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids...)
	}
	return out
}

// CategoryItemScores spreads the category scores onto their catalog items,
// normalized so the best category scores 1.0.
func (p PersonalScorer) CategoryItemScores(top []CategoryScore, products []models.Product) map[int64]float64 {
	out := make(map[int64]float64)
	if len(top) == 0 {
		return out
	}
	best := top[0].Score
	byCat := make(map[string]float64, len(top))
	for _, c := range top {
		byCat[c.Category] = c.Score / best
	}
	for i := range products {
		if s, ok := byCat[products[i].Category]; ok {
			out[products[i].ID] = s
		}
	}
	return out
}

// SubWeights are the per-action multipliers of a user's weight profile.
type SubWeights struct {
	Cancelled float64
	Repeating float64
	Search    float64
	Seen      float64
}

// WeightedBy returns a copy of p whose cancel, reorder, search and seen
// weights come from the user's profile sub-weights. Other actions keep the
// scorer's table. The blended feed scores categories with it, so the
// profile scales how much each live action pulls a category forward.
func (p PersonalScorer) WeightedBy(w SubWeights) PersonalScorer {
	base := p.ActionWeights
	if base == nil {
		base = DefaultActionWeights
	}
	table := make(map[models.Action]float64, len(base)+4)
	for a, v := range base {
		table[a] = v
	}
	table[models.ActionCancel] = w.Cancelled
	table[models.ActionReorder] = w.Repeating
	table[models.ActionSearch] = w.Search
	table[models.ActionSeen] = w.Seen
	p.ActionWeights = table
	return p
}
