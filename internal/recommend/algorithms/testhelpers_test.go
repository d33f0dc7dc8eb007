// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package algorithms

import (
	"time"

	"github.com/tomtom215/shopfeed/internal/models"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func ev(user string, action models.Action, item int64, category string, ago time.Duration) models.Event {
	return models.Event{
		ID:        user + string(action),
		UserID:    user,
		Action:    action,
		Detail:    models.EventDetail{ProductID: item, Category: category},
		Timestamp: testNow.Add(-ago),
	}
}

func catalog(products ...models.Product) map[int64]models.Product {
	out := make(map[int64]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}
