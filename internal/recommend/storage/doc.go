// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package storage persists recommendation snapshots.
//
// Artifacts are gob-encoded, gzip-compressed and checksummed:
//
//	filename: {name}_v{version}.gob.gz
//
//	structure:
//	  - Metadata
//	  - CompressedData (gzip of the gob-encoded payload)
//
// Writes go to a temporary file that is renamed into place, so a crash
// mid-save leaves the previous version readable. Load verifies the SHA-256
// checksum of the decompressed payload before decoding.
//
// SnapshotStore wraps Store for algorithms.Model values and prunes to the
// configured number of versions after each save:
//
//	snaps, err := storage.NewSnapshotStore("/data/artifacts", 3)
//	if err != nil {
//	    return err
//	}
//	if err := snaps.Save(ctx, model, time.Since(start)); err != nil {
//	    return err
//	}
//	model, err := snaps.LoadLatest(ctx) // wraps ErrNotFound when empty
//
// All Store methods are safe for concurrent use.
package storage
