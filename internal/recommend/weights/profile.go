// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package weights

import (
	"math"
	"strings"
	"time"

	"github.com/tomtom215/shopfeed/internal/recommend/algorithms"
)

// Signal is the dominant source a user engaged with, reported as feedback.
type Signal string

// Known feedback signals. Any other value is accepted and ignored.
const (
	SignalSearch         Signal = "search"
	SignalSeen           Signal = "seen"
	SignalRepeatingOrder Signal = "repeating_order"
	SignalCollab         Signal = "collab"
)

// ParseSignal normalizes a raw signal name. Unknown names are returned as
// given; applying them is a no-op.
func ParseSignal(raw string) Signal {
	return Signal(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether applying the signal can change a profile.
func (s Signal) Known() bool {
	switch s {
	case SignalSearch, SignalSeen, SignalRepeatingOrder, SignalCollab:
		return true
	}
	return false
}

// Profile holds a user's blend weights and per-action sub-weights.
// Blend weights are clamped independently to [0, 1] and never renormalized.
type Profile struct {
	Collab   float64 `json:"w1_collab"`
	User     float64 `json:"w2_user"`
	Business float64 `json:"w3_business"`

	Cancelled float64 `json:"x1_cancelled"`
	Repeating float64 `json:"x2_repeating"`
	Search    float64 `json:"x3_search"`
	Seen      float64 `json:"x4_seen"`

	Updates   uint64    `json:"updates"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Defaults returns the profile every user starts with.
func Defaults() Profile {
	return Profile{
		Collab:    0.45,
		User:      0.45,
		Business:  0.10,
		Cancelled: -0.9,
		Repeating: 1.0,
		Search:    0.8,
		Seen:      0.3,
	}
}

// SubWeights returns the action multipliers the blended feed scores live
// categories with.
func (p Profile) SubWeights() algorithms.SubWeights {
	return algorithms.SubWeights{
		Cancelled: p.Cancelled,
		Repeating: p.Repeating,
		Search:    p.Search,
		Seen:      p.Seen,
	}
}

// Params controls how feedback moves a profile.
type Params struct {
	// LearningRate is the step applied per signal. Zero means 0.05.
	LearningRate float64

	// MaxSubWeight bounds the search and seen sub-weights. Zero means 2.0.
	MaxSubWeight float64
}

// DefaultParams returns the standard learning parameters.
func DefaultParams() Params {
	return Params{LearningRate: 0.05, MaxSubWeight: 2.0}
}

func (p Params) normalized() Params {
	if p.LearningRate <= 0 {
		p.LearningRate = 0.05
	}
	if p.MaxSubWeight <= 0 {
		p.MaxSubWeight = 2.0
	}
	return p
}

// Apply nudges the profile by one learning step in the direction of signal
// and reports whether anything changed.
//
//	search | seen | repeating_order: user up, collab down
//	search, seen:                    matching sub-weight up, bounded
//	collab:                          collab up, user down
//
// Unknown signals leave the profile untouched.
func Apply(p Profile, signal Signal, params Params) (Profile, bool) {
	params = params.normalized()
	lr := params.LearningRate
	before := p

	switch signal {
	case SignalSearch, SignalSeen, SignalRepeatingOrder:
		p.User = clamp(p.User+lr, 0, 1)
		p.Collab = clamp(p.Collab-lr, 0, 1)
		switch signal {
		case SignalSearch:
			p.Search = raise(p.Search, lr, params.MaxSubWeight)
		case SignalSeen:
			p.Seen = raise(p.Seen, lr, params.MaxSubWeight)
		}
	case SignalCollab:
		p.Collab = clamp(p.Collab+lr, 0, 1)
		p.User = clamp(p.User-lr, 0, 1)
	default:
		return p, false
	}

	changed := p.Collab != before.Collab || p.User != before.User ||
		p.Search != before.Search || p.Seen != before.Seen
	return p, changed
}

// raise adds step to v without passing ceiling. A value already above the
// ceiling, left by a since lowered max_sub_weight, is kept as is.
func raise(v, step, ceiling float64) float64 {
	if v >= ceiling {
		return v
	}
	return math.Min(v+step, ceiling)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
