// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"math"
	"time"

	"github.com/tomtom215/shopfeed/internal/models"
)

// TrendingResult holds normalized trending scores.
type TrendingResult struct {
	// Scores maps item -> score in [0, 1]; the top item is exactly 1.0.
	Scores map[int64]float64

	// Ranked lists the scored items best first.
	Ranked []int64

	// FromHistory is set when the live window was empty and the historical
	// events were scored instead.
	FromHistory bool
}

// TrendingScorer computes recency-decayed popularity.
type TrendingScorer struct {
	// Window bounds the live events considered. Zero means 48h.
	Window time.Duration

	// Lambda is the per-hour decay rate of exp(-lambda * hours). Zero
	// disables decay.
	Lambda float64

	// Actions that count as a popularity signal. Empty means order only.
	Actions []models.Action

	// Limit caps the number of trending items. Zero means unlimited.
	Limit int
}

// Score computes trending scores over the live events inside the window.
// When none qualify it explicitly falls back to undecayed counts over the
// historical events, so a quiet period never yields an empty trending list
// while historical data exists.
func (t TrendingScorer) Score(live, historical []models.Event, now time.Time) TrendingResult {
	window := t.Window
	if window <= 0 {
		window = 48 * time.Hour
	}
	qualifies := t.actionSet()
	since := now.Add(-window)

	sums := make(map[int64]float64)
	for i := range live {
		e := &live[i]
		item, ok := e.ItemID()
		if !ok || !qualifies[e.Action] {
			continue
		}
		if e.Timestamp.Before(since) || e.Timestamp.After(now) {
			continue
		}
		hours := now.Sub(e.Timestamp).Hours()
		sums[item] += math.Exp(-t.Lambda * hours)
	}

	fromHistory := false
	if len(sums) == 0 {
		fromHistory = true
		for i := range historical {
			e := &historical[i]
			item, ok := e.ItemID()
			if !ok || !qualifies[e.Action] {
				continue
			}
			sums[item]++
		}
	}

	ranked := make([]scoredItem, 0, len(sums))
	for id, v := range sums {
		if v > 0 {
			ranked = append(ranked, scoredItem{item: id, score: v})
		}
	}
	sortScored(ranked)
	if t.Limit > 0 && len(ranked) > t.Limit {
		ranked = ranked[:t.Limit]
	}

	res := TrendingResult{Scores: make(map[int64]float64, len(ranked)), FromHistory: fromHistory}
	if len(ranked) == 0 {
		return res
	}
	top := ranked[0].score
	for i := range ranked {
		if i == 0 {
			ranked[i].score = 1.0
		} else {
			ranked[i].score = math.Min(1.0, ranked[i].score/top)
		}
		res.Scores[ranked[i].item] = ranked[i].score
	}
	res.Ranked = itemsOf(ranked)
	return res
}

func (t TrendingScorer) actionSet() map[models.Action]bool {
	set := make(map[models.Action]bool)
	if len(t.Actions) == 0 {
		set[models.ActionOrder] = true
		return set
	}
	for _, a := range t.Actions {
		set[a] = true
	}
	return set
}

// BusinessBoost gives a flat 1.0 to every product merchandising tagged
// promoted or trending.
func BusinessBoost(products []models.Product) map[int64]float64 {
	out := make(map[int64]float64)
	for i := range products {
		if products[i].Promoted() {
			out[products[i].ID] = 1.0
		}
	}
	return out
}

// BusinessScores combines decayed trending scores with the flat boost.
// The two are additive, so a promoted trending item scores up to 2.0.
func BusinessScores(trending TrendingResult, boost map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(trending.Scores)+len(boost))
	for id, v := range trending.Scores {
		out[id] += v
	}
	for id, v := range boost {
		out[id] += v
	}
	return out
}
