// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"cmp"
	"slices"

	"github.com/tomtom215/shopfeed/internal/models"
)

// DefaultInteractionStrengths is the strength table used to fill matrix cells.
var DefaultInteractionStrengths = map[models.Action]float64{
	models.ActionOrder: 2.0,
	models.ActionSeen:  1.0,
}

// Matrix is a sparse user x column matrix of accumulated interaction
// strength. Columns are items (InteractionMatrix) or categories
// (CategoryMatrix). Absent cells are zero.
//
// Users and Columns are sorted so every derived computation is
// deterministic. A Matrix is immutable once built.
type Matrix[K cmp.Ordered] struct {
	Users   []string
	Columns []K

	// Skipped counts events dropped for a missing or unknown item.
	Skipped int

	userIndex map[string]int
	colIndex  map[K]int
	rows      []map[int]float64
}

// InteractionMatrix is the user x item matrix.
type InteractionMatrix = Matrix[int64]

// CategoryMatrix is the user x category matrix used for clustering.
type CategoryMatrix = Matrix[string]

// IsEmpty reports whether the matrix carries no signal at all. Every
// consumer treats an empty matrix as "no signal", never as an error.
func (m *Matrix[K]) IsEmpty() bool {
	return m == nil || len(m.Users) == 0 || len(m.Columns) == 0
}

// At returns the cell value, zero when absent.
func (m *Matrix[K]) At(user string, col K) float64 {
	if m.IsEmpty() {
		return 0
	}
	ui, ok := m.userIndex[user]
	if !ok {
		return 0
	}
	ci, ok := m.colIndex[col]
	if !ok {
		return 0
	}
	return m.rows[ui][ci]
}

// Row returns the non-zero cells of a user keyed by column index.
// The returned map must not be modified.
func (m *Matrix[K]) Row(user string) map[int]float64 {
	if m.IsEmpty() {
		return nil
	}
	ui, ok := m.userIndex[user]
	if !ok {
		return nil
	}
	return m.rows[ui]
}

// Dense returns one zero-filled row per user, in Users order.
func (m *Matrix[K]) Dense() [][]float64 {
	if m.IsEmpty() {
		return nil
	}
	out := make([][]float64, len(m.Users))
	for i, cells := range m.rows {
		row := make([]float64, len(m.Columns))
		for ci, v := range cells {
			row[ci] = v
		}
		out[i] = row
	}
	return out
}

// MatrixBuilder turns raw events into interaction matrices.
type MatrixBuilder struct {
	// Strengths maps an action to its cell contribution. Actions absent from
	// the table contribute nothing. Nil uses DefaultInteractionStrengths.
	Strengths map[models.Action]float64

	// Catalog, when set, restricts items to known products and supplies the
	// category of events that do not carry one.
	Catalog map[int64]models.Product
}

func (b MatrixBuilder) strengths() map[models.Action]float64 {
	if b.Strengths == nil {
		return DefaultInteractionStrengths
	}
	return b.Strengths
}

// resolve returns the item id and category of an event, or ok=false when
// the event cannot contribute to any score.
func (b MatrixBuilder) resolve(e *models.Event) (item int64, category string, ok bool) {
	item, ok = e.ItemID()
	if !ok {
		return 0, "", false
	}
	category = e.Detail.Category
	if b.Catalog != nil {
		p, known := b.Catalog[item]
		if !known {
			return 0, "", false
		}
		if category == "" {
			category = p.Category
		}
	}
	return item, category, true
}

// Items builds the user x item matrix.
func (b MatrixBuilder) Items(events []models.Event) *InteractionMatrix {
	strengths := b.strengths()
	return accumulate(events, func(e *models.Event) (int64, float64, bool, bool) {
		w, counted := strengths[e.Action]
		if !counted {
			return 0, 0, false, false
		}
		item, _, ok := b.resolve(e)
		if !ok {
			return 0, 0, false, true
		}
		return item, w, true, false
	})
}

// Categories builds the user x category matrix with the same strength table.
func (b MatrixBuilder) Categories(events []models.Event) *CategoryMatrix {
	strengths := b.strengths()
	return accumulate(events, func(e *models.Event) (string, float64, bool, bool) {
		w, counted := strengths[e.Action]
		if !counted {
			return "", 0, false, false
		}
		_, category, ok := b.resolve(e)
		if !ok || category == "" {
			return "", 0, false, true
		}
		return category, w, true, false
	})
}

// accumulate sums cell contributions. cell returns the column, the
// contribution, whether to use the event and whether it was malformed.
func accumulate[K cmp.Ordered](events []models.Event, cell func(e *models.Event) (K, float64, bool, bool)) *Matrix[K] {
	type key struct {
		user string
		col  K
	}
	sums := make(map[key]float64)
	userSet := make(map[string]struct{})
	colSet := make(map[K]struct{})
	skipped := 0

	for i := range events {
		e := &events[i]
		col, w, use, malformed := cell(e)
		if malformed {
			skipped++
			continue
		}
		if !use || e.UserID == "" {
			continue
		}
		sums[key{e.UserID, col}] += w
		userSet[e.UserID] = struct{}{}
		colSet[col] = struct{}{}
	}

	m := &Matrix[K]{
		Users:     sortedKeys(userSet),
		Columns:   sortedKeys(colSet),
		Skipped:   skipped,
		userIndex: make(map[string]int, len(userSet)),
		colIndex:  make(map[K]int, len(colSet)),
	}
	for i, u := range m.Users {
		m.userIndex[u] = i
	}
	for i, c := range m.Columns {
		m.colIndex[c] = i
	}
	m.rows = make([]map[int]float64, len(m.Users))
	for i := range m.rows {
		m.rows[i] = make(map[int]float64)
	}
	for k, v := range sums {
		if v == 0 {
			continue
		}
		m.rows[m.userIndex[k.user]][m.colIndex[k.col]] = v
	}
	return m
}

func sortedKeys[K cmp.Ordered](set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
