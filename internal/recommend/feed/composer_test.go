// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package feed

import (
	"math"
	"reflect"
	"testing"
)

func set(ids ...int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestComposer_Separated_DedupAcrossLists(t *testing.T) {
	t.Parallel()

	c := Composer{ListSize: 10}
	got := c.Separated(
		[]int64{101, 102},
		[]int64{101, 201},
		[]int64{101, 201, 301},
		nil,
	)

	want := Lists{
		Collaborative: []int64{101, 102},
		SelfFeed:      []int64{201},
		Trending:      []int64{301},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Separated() = %+v, want %+v", got, want)
	}
}

func TestComposer_Separated_ShownAndLimit(t *testing.T) {
	t.Parallel()

	shown := set(1, 5)
	c := Composer{ListSize: 2}
	got := c.Separated(
		[]int64{1, 2, 3, 4},
		[]int64{5, 6, 7},
		[]int64{2, 8},
		shown,
	)

	want := Lists{
		Collaborative: []int64{2, 3},
		SelfFeed:      []int64{6, 7},
		Trending:      []int64{8},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Separated() = %+v, want %+v", got, want)
	}
	if len(shown) != 2 {
		t.Errorf("shown was modified: %v", shown)
	}
	if got.Len() != 5 {
		t.Errorf("Len() = %d, want 5", got.Len())
	}
}

func TestComposer_Separated_Empty(t *testing.T) {
	t.Parallel()

	got := Composer{}.Separated(nil, nil, nil, nil)
	if got.Len() != 0 {
		t.Errorf("Separated() = %+v, want empty lists", got)
	}
	if got.Collaborative == nil || got.SelfFeed == nil || got.Trending == nil {
		t.Error("empty lists should be non-nil so they encode as []")
	}
}

func TestComposer_Blended(t *testing.T) {
	t.Parallel()

	w := Weights{Collab: 0.45, User: 0.45, Business: 0.10}
	src := Sources{
		Collab:   map[int64]float64{1: 1.0, 2: 0.5},
		Personal: map[int64]float64{2: 1.0, 3: 0.6},
		Business: map[int64]float64{4: 2.0, 1: 1.0},
	}

	got := Composer{ListSize: 10}.Blended(w, src, set(3), 0)

	want := []Scored{
		{ItemID: 2, Score: 0.45*0.5 + 0.45*1.0},
		{ItemID: 1, Score: 0.45*1.0 + 0.10*1.0},
		{ItemID: 4, Score: 0.10 * 2.0},
	}
	if len(got) != len(want) {
		t.Fatalf("Blended() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].ItemID != want[i].ItemID || math.Abs(got[i].Score-want[i].Score) > 1e-12 {
			t.Errorf("Blended()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestComposer_Blended_TopNAndTies(t *testing.T) {
	t.Parallel()

	src := Sources{Collab: map[int64]float64{9: 1, 3: 1, 5: 1, 7: 0.5}}
	w := Weights{Collab: 1}

	got := Composer{ListSize: 10}.Blended(w, src, nil, 2)
	want := []Scored{{ItemID: 3, Score: 1}, {ItemID: 5, Score: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Blended() = %v, want %v", got, want)
	}
}

func TestComposer_Blended_NoSignal(t *testing.T) {
	t.Parallel()

	got := Composer{}.Blended(Weights{Collab: 0.45, User: 0.45, Business: 0.1}, Sources{}, nil, 0)
	if len(got) != 0 {
		t.Errorf("Blended() = %v, want empty", got)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"separated", ModeSeparated, false},
		{"blended", ModeBlended, false},
		{"", ModeSeparated, false},
		{"mixed", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseMode(%q) = %q, %v, want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
			}
		})
	}
}
