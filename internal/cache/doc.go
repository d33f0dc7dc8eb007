// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package cache provides in-memory caching for catalog reference data.
//
// LRU is a generic least recently used cache with a per-entry TTL, built on
// a doubly-linked list and a map so Get, Add and Remove are O(1).
//
// Catalog puts an LRU in front of the product catalog. Feed requests resolve
// the same few hundred products over and over, so most lookups never reach
// DuckDB:
//
//	catalog := cache.NewCatalog(db, 10000, time.Minute)
//	products, err := catalog.Products(ctx, []int64{1, 2, 3})
//
// Products change only through seed and delete-data, which run as separate
// commands, so entries are refreshed by expiry alone. Hit and miss counts
// are exported as catalog_cache_lookups_total.
package cache
