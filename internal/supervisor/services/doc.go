// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package services adapts long-running components to suture.Service.
//
//   - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
//   - RebuildService: snapshot load and rebuild on startup, then rebuilds on
//     a robfig/cron schedule (default @hourly)
//
// Every service returns ctx.Err() on cancellation and implements
// fmt.Stringer so supervisor logs name it.
package services
