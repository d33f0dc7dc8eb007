// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/shopfeed/internal/models"
)

func TestBuildItemSimilarity(t *testing.T) {
	t.Parallel()

	m := MatrixBuilder{}.Items([]models.Event{
		ev("a", models.ActionOrder, 1, "", 0),
		ev("a", models.ActionSeen, 2, "", 0),
		ev("b", models.ActionOrder, 1, "", 0),
		ev("c", models.ActionSeen, 3, "", 0),
	})

	sim, err := BuildItemSimilarity(context.Background(), m)
	if err != nil {
		t.Fatalf("BuildItemSimilarity() error = %v", err)
	}
	if sim.Len() != 3 {
		t.Errorf("Len() = %d, want 3", sim.Len())
	}

	// item 1 column: a=2, b=2; item 2 column: a=1.
	want12 := 2.0 / (math.Sqrt(8) * 1.0)
	tests := []struct {
		name string
		a, b int64
		want float64
	}{
		{"diagonal", 1, 1, 1},
		{"co-occurring", 1, 2, want12},
		{"symmetric", 2, 1, want12},
		{"disjoint", 1, 3, 0},
		{"unknown", 1, 42, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sim.Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}

	for a, row := range sim.Rows {
		for b, v := range row {
			if math.IsNaN(v) || v < 0 || v > 1+1e-9 {
				t.Errorf("Similarity(%d, %d) = %v, out of [0, 1]", a, b, v)
			}
			if w := sim.Similarity(b, a); math.Abs(v-w) > 1e-12 {
				t.Errorf("asymmetric pair (%d, %d): %v vs %v", a, b, v, w)
			}
		}
	}
}

func TestBuildItemSimilarity_Empty(t *testing.T) {
	t.Parallel()

	sim, err := BuildItemSimilarity(context.Background(), MatrixBuilder{}.Items(nil))
	if err != nil {
		t.Fatalf("BuildItemSimilarity() error = %v", err)
	}
	if !sim.IsEmpty() {
		t.Error("similarity of empty matrix should be empty")
	}
	if sim.Row(1) != nil {
		t.Error("Row() should be nil on empty similarity")
	}

	var nilSim *ItemSimilarity
	if nilSim.Len() != 0 || nilSim.Similarity(1, 2) != 0 {
		t.Error("nil similarity should behave as empty")
	}
}
