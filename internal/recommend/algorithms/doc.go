// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package algorithms implements the scoring signals behind the feed.
//
// Everything here is a pure function of its inputs: no I/O, no globals
// that change at runtime, no hidden randomness. Results are stable across
// runs for the same events, configuration and seed.
//
// # Building Blocks
//
// MatrixBuilder turns historical events into sparse user x item and
// user x category matrices using an interaction strength table (order 2,
// seen 1 by default). Events without a user or a valid item are counted as
// skipped and never abort a build.
//
// BuildItemSimilarity computes item-item cosine similarity from the user x
// item matrix. KMeans partitions users into cohorts over standardized
// category rows with seeded k-means++ initialization.
//
// ModelBuilder bundles both into a Model, the immutable artifact the engine
// publishes after every rebuild.
//
// # Scorers
//
//   - ItemSimilarityScorer: sums the similarity rows of the user's history
//   - ClusterPopularityScorer: most common items among cohort peers
//   - PersonalScorer: category affinity over the user's recent actions
//   - PersonalScorer.WeightedBy: the same scorer with the profile's action
//     sub-weights, spread onto catalog items for the blended feed
//   - TrendingScorer: exponentially decayed recent order popularity
//
// All collaborative scores are normalized to [0, 1]. Trending scores put the
// single best item at exactly 1.0.
//
// # Usage
//
//	b := algorithms.ModelBuilder{KMeans: algorithms.KMeans{K: 8, Seed: 42}}
//	model, err := b.Build(ctx, events, version, time.Now())
//	if err != nil {
//	    return err
//	}
//	scorer := &algorithms.ItemSimilarityScorer{TopK: 10}
//	ranked := scorer.Ranked(model, userID, model.UserHistory(userID))
package algorithms
