// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package feed

import (
	"fmt"
	"sort"
)

// Composition modes.
const (
	ModeSeparated = "separated"
	ModeBlended   = "blended"
)

// DefaultListSize is the number of items per list when none is configured.
const DefaultListSize = 10

// ParseMode validates a composition mode name.
func ParseMode(s string) (string, error) {
	switch s {
	case ModeSeparated, ModeBlended:
		return s, nil
	case "":
		return ModeSeparated, nil
	default:
		return "", fmt.Errorf("unknown feed mode %q", s)
	}
}

// Scored is one ranked item with its final score.
type Scored struct {
	ItemID int64   `json:"product_id"`
	Score  float64 `json:"score"`
}

// Weights are the blend weights applied to the three sources.
type Weights struct {
	Collab   float64
	User     float64
	Business float64
}

// Sources are the per-source score series to blend.
type Sources struct {
	Collab   map[int64]float64
	Personal map[int64]float64
	Business map[int64]float64
}

// Lists is the separated three-list feed.
type Lists struct {
	Collaborative []int64 `json:"collaborative"`
	SelfFeed      []int64 `json:"self_feed"`
	Trending      []int64 `json:"trending"`
}

// Len returns the total number of items across the lists.
func (l Lists) Len() int {
	return len(l.Collaborative) + len(l.SelfFeed) + len(l.Trending)
}

// Composer turns scored sources into final feeds.
type Composer struct {
	ListSize int
}

func (c Composer) size(n int) int {
	if n > 0 {
		return n
	}
	if c.ListSize > 0 {
		return c.ListSize
	}
	return DefaultListSize
}

// Blended computes final = w1*collab + w2*personal + w3*business over the
// union of items, treating an item missing from a source as 0. Items in
// interacted are removed. The result is sorted by score descending, then
// item id ascending, and holds at most n items (n <= 0 uses ListSize).
func (c Composer) Blended(w Weights, src Sources, interacted map[int64]struct{}, n int) []Scored {
	totals := make(map[int64]float64, len(src.Collab)+len(src.Personal)+len(src.Business))
	add := func(series map[int64]float64, weight float64) {
		for id, v := range series {
			totals[id] += weight * v
		}
	}
	add(src.Collab, w.Collab)
	add(src.Personal, w.User)
	add(src.Business, w.Business)

	out := make([]Scored, 0, len(totals))
	for id, v := range totals {
		if _, seen := interacted[id]; seen {
			continue
		}
		out = append(out, Scored{ItemID: id, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})

	if limit := c.size(n); len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Separated fills the three lists in the fixed order collaborative,
// self-feed, trending. Each list skips items already in shown or emitted
// by an earlier list, keeps its input order and is capped at ListSize.
// shown is not modified.
func (c Composer) Separated(collab, self, trending []int64, shown map[int64]struct{}) Lists {
	seen := make(map[int64]struct{}, len(shown))
	for id := range shown {
		seen[id] = struct{}{}
	}
	limit := c.size(0)

	take := func(candidates []int64) []int64 {
		out := make([]int64, 0, min(limit, len(candidates)))
		for _, id := range candidates {
			if len(out) == limit {
				break
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return out
	}

	return Lists{
		Collaborative: take(collab),
		SelfFeed:      take(self),
		Trending:      take(trending),
	}
}
