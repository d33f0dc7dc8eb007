// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrNoUsers is returned when clustering is asked to partition zero users.
var ErrNoUsers = errors.New("no users to cluster")

// ClusterAssignment maps every clustered user to a cohort id in [0, K).
// It is always recomputed wholesale.
type ClusterAssignment struct {
	// K is the effective cluster count; lower than requested when there
	// were fewer users than clusters.
	K           int
	Requested   int
	Assignments map[string]int
	Iterations  int
	Inertia     float64
}

// Cluster returns the user's cohort id.
func (c *ClusterAssignment) Cluster(user string) (int, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.Assignments[user]
	return id, ok
}

// Members returns the users of a cohort.
func (c *ClusterAssignment) Members(cluster int) []string {
	if c == nil {
		return nil
	}
	var out []string
	for u, id := range c.Assignments {
		if id == cluster {
			out = append(out, u)
		}
	}
	return out
}

// KMeans partitions users by Euclidean distance over standardized rows.
// Results are fully determined by the input, K and Seed.
type KMeans struct {
	K             int
	Seed          int64
	MaxIterations int
}

// Fit clusters the users of a category matrix.
func (km KMeans) Fit(ctx context.Context, m *CategoryMatrix) (*ClusterAssignment, error) {
	if m.IsEmpty() {
		return nil, ErrNoUsers
	}
	return km.FitRows(ctx, m.Users, m.Dense())
}

// FitRows clusters users given their raw feature rows (same length each).
// When there are fewer users than K, K is reduced to the user count.
func (km KMeans) FitRows(ctx context.Context, users []string, rows [][]float64) (*ClusterAssignment, error) {
	n := len(users)
	if n == 0 {
		return nil, ErrNoUsers
	}
	if len(rows) != n {
		return nil, fmt.Errorf("kmeans: %d users but %d rows", n, len(rows))
	}
	if km.K < 1 {
		return nil, fmt.Errorf("kmeans: k must be at least 1, got %d", km.K)
	}
	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = 300
	}
	k := min(km.K, n)

	points := Standardize(rows)
	rng := rand.New(rand.NewSource(km.Seed)) //nolint:gosec // deterministic seeding is required
	centroids := initCentroids(points, k, rng)

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	iterations := 0
	for iterations < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("kmeans cancelled: %w", err)
		}
		iterations++

		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		centroids = recomputeCentroids(points, assign, centroids)
	}

	labels := canonicalLabels(assign, k)
	out := &ClusterAssignment{
		K:           k,
		Requested:   km.K,
		Assignments: make(map[string]int, n),
		Iterations:  iterations,
	}
	for i, u := range users {
		out.Assignments[u] = labels[assign[i]]
		out.Inertia += squaredDistance(points[i], centroids[assign[i]])
	}
	return out, nil
}

// Standardize scales each column to zero mean and unit variance across rows
// (population variance). Zero-variance columns become all zero.
func Standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	n := float64(len(rows))
	dims := len(rows[0])
	mean := make([]float64, dims)
	std := make([]float64, dims)

	for _, r := range rows {
		for j, v := range r {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		scaled := make([]float64, dims)
		for j, v := range r {
			if std[j] > 0 {
				scaled[j] = (v - mean[j]) / std[j]
			}
		}
		out[i] = scaled
	}
	return out
}

// initCentroids runs k-means++ seeding. Duplicate points (all remaining
// distances zero) fall back to the lowest unused index.
func initCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	used := make([]bool, len(points))
	first := rng.Intn(len(points))
	used[first] = true
	centroids := [][]float64{clone(points[first])}

	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := squaredDistance(p, centroids[nearest(p, centroids)])
			dist[i] = d
			total += d
		}

		pick := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 && d > 0 {
					pick = i
					break
				}
			}
			if pick < 0 {
				// Rounding left target slightly positive; take the last candidate.
				for i := len(dist) - 1; i >= 0; i-- {
					if dist[i] > 0 {
						pick = i
						break
					}
				}
			}
		}
		if pick < 0 {
			for i := range used {
				if !used[i] {
					pick = i
					break
				}
			}
		}
		used[pick] = true
		centroids = append(centroids, clone(points[pick]))
	}
	return centroids
}

// recomputeCentroids averages assigned points. An emptied cluster takes the
// point farthest from its own centroid, among clusters with several members.
func recomputeCentroids(points [][]float64, assign []int, prev [][]float64) [][]float64 {
	k := len(prev)
	dims := len(points[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := assign[i]
		counts[c]++
		for j, v := range p {
			sums[c][j] += v
		}
	}

	next := make([][]float64, k)
	for c := range sums {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
		next[c] = sums[c]
	}

	for c := range next {
		if next[c] != nil {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range points {
			if counts[assign[i]] < 2 {
				continue
			}
			if d := squaredDistance(p, next[assign[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			next[c] = prev[c]
			continue
		}
		counts[assign[far]]--
		assign[far] = c
		counts[c] = 1
		next[c] = clone(points[far])
	}
	return next
}

// canonicalLabels renumbers clusters by first appearance in user order so
// ids do not depend on internal centroid order.
func canonicalLabels(assign []int, k int) []int {
	labels := make([]int, k)
	for i := range labels {
		labels[i] = -1
	}
	nextLabel := 0
	for _, c := range assign {
		if labels[c] == -1 {
			labels[c] = nextLabel
			nextLabel++
		}
	}
	for c := range labels {
		if labels[c] == -1 {
			labels[c] = nextLabel
			nextLabel++
		}
	}
	return labels
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
