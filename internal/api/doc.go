// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package api exposes the recommendation engine over HTTP using the chi
// router.
//
// # Endpoints
//
//	GET  /api/feed?user_id=          three lists, or one blended list, with product details
//	GET  /api/items                  catalog grouped by category
//	POST /api/event                  {user_id, action, product_id}
//	POST /api/log                    {user_id, action, detail, client_timestamp}
//	GET  /recommendations/{user_id}  blended top-N (?n=)
//	POST /feedback                   {user_id, dominant_signal}
//	POST /api/admin/rebuild          rebuild the model snapshot now
//	GET  /health                     database and snapshot status
//	GET  /metrics                    Prometheus exposition
//
// # Responses
//
// Every JSON response uses one envelope:
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//	{"status":"error","error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}
//
// Error codes: VALIDATION_ERROR (400), NOT_FOUND (404), CONFLICT (409),
// RATE_LIMITED (429), SERVICE_UNAVAILABLE (503), INTERNAL_ERROR (500).
//
// Live events are validated against the catalog before they are handed to
// the ingestor, so unknown products are rejected with 404 and never reach
// the event store.
package api
