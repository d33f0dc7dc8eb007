// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package weights stores per-user blend weight profiles and adapts them
// from feedback.
//
// A Profile carries three blend weights (collaborative, user, business)
// and four action sub-weights (cancelled, repeating, search, seen). Users
// get Defaults() on first access. Each feedback signal moves the profile by
// one learning-rate step; see Apply.
//
// BadgerStore keeps profiles under the "weights:" key prefix and writes
// every change synchronously inside the Update call.
package weights
