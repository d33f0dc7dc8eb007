// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package feed composes scored recommendation sources into the lists a
// user sees, either as one blended ranking or as three separate lists.
package feed
