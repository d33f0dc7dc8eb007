// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package recommend serves personalized product feeds.

The Engine combines three signals:

  - collaborative: item-item similarity (or cohort popularity) computed
    from historical events during a rebuild
  - personal: category affinity over the user's live events, spread onto
    the catalog items of the top categories
  - business: recency-decayed trending orders plus merchandising boosts

# Snapshots

Rebuild reads every historical event, builds an algorithms.Model and
publishes it with one atomic pointer swap. Readers load the pointer once per
request, so a request is always answered from a single consistent snapshot.
Only one rebuild runs at a time; a second caller gets ErrRebuildInProgress.

When the historical source is empty the previous snapshot is kept and no
artifact is written. A failing source trips a circuit breaker after
repeated consecutive failures.

# Feed Modes

In separated mode Feed returns three lists (collaborative, self-feed,
trending) with no product appearing twice across them and nothing the user
already interacted with. In blended mode the three signals are combined per
item with the user's adaptive weight profile:

	final = w1*collab + w2*personal + w3*business

Recommendations always uses blended scoring.

# Feedback

Feedback adjusts the user's weight profile through the WeightStore. Calls
are rate limited per user.

# Usage

	engine, err := recommend.NewEngine(cfg, recommend.Deps{
	    Events:    db,
	    Catalog:   db,
	    Users:     db,
	    Weights:   weightStore,
	    Artifacts: snapshots,
	}, logger)
	if err != nil {
	    return err
	}
	if _, err := engine.LoadArtifacts(ctx); err != nil {
	    return err
	}
	f, err := engine.Feed(ctx, "user-1")
*/
package recommend
