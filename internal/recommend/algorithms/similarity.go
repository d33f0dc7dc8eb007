// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"context"
	"fmt"
	"math"
)

// ItemSimilarity is a sparse, symmetric item x item cosine similarity
// matrix. Pairs that never co-occur are absent (similarity 0). Items with
// any interaction have self-similarity 1.
type ItemSimilarity struct {
	Rows map[int64]map[int64]float64
}

// IsEmpty reports whether the matrix holds no items.
func (s *ItemSimilarity) IsEmpty() bool {
	return s == nil || len(s.Rows) == 0
}

// Len returns the number of items with a row.
func (s *ItemSimilarity) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Row returns the similarity row of an item; nil when unknown.
// The returned map must not be modified.
func (s *ItemSimilarity) Row(item int64) map[int64]float64 {
	if s.IsEmpty() {
		return nil
	}
	return s.Rows[item]
}

// Similarity returns sim(a, b), zero when absent.
func (s *ItemSimilarity) Similarity(a, b int64) float64 {
	return s.Row(a)[b]
}

// BuildItemSimilarity computes cosine similarity between the item columns
// of m. Dot products are accumulated per user row, so the cost follows the
// number of co-occurring pairs instead of items squared.
func BuildItemSimilarity(ctx context.Context, m *InteractionMatrix) (*ItemSimilarity, error) {
	sim := &ItemSimilarity{Rows: make(map[int64]map[int64]float64)}
	if m.IsEmpty() {
		return sim, nil
	}

	norms := make([]float64, len(m.Columns))
	dots := make(map[[2]int]float64)

	for ui, u := range m.Users {
		if ui%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("similarity build cancelled: %w", err)
			}
		}
		row := m.Row(u)
		cols := make([]int, 0, len(row))
		for c, v := range row {
			norms[c] += v * v
			cols = append(cols, c)
		}
		for i := 0; i < len(cols); i++ {
			for j := i + 1; j < len(cols); j++ {
				a, b := cols[i], cols[j]
				if a > b {
					a, b = b, a
				}
				dots[[2]int{a, b}] += row[a] * row[b]
			}
		}
	}

	for c := range norms {
		norms[c] = math.Sqrt(norms[c])
		if norms[c] > 0 {
			sim.set(m.Columns[c], m.Columns[c], 1)
		}
	}
	for pair, dot := range dots {
		na, nb := norms[pair[0]], norms[pair[1]]
		if na == 0 || nb == 0 || dot == 0 {
			continue
		}
		v := dot / (na * nb)
		sim.set(m.Columns[pair[0]], m.Columns[pair[1]], v)
		sim.set(m.Columns[pair[1]], m.Columns[pair[0]], v)
	}
	return sim, nil
}

func (s *ItemSimilarity) set(a, b int64, v float64) {
	row, ok := s.Rows[a]
	if !ok {
		row = make(map[int64]float64)
		s.Rows[a] = row
	}
	row[b] = v
}
