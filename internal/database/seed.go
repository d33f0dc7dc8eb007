// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/models"
)

// seedNamespace makes seeded event ids stable across runs.
var seedNamespace = uuid.MustParse("6f0c1a52-8d3e-4b7a-9c51-2e4f6a8b0d13")

var seedCategories = []struct {
	name   string
	brands []string
	items  []string
}{
	{"Electronics", []string{"Voltix", "Nordia", "Sonaro"}, []string{"Headphones", "Smartwatch", "Speaker", "Charger", "Tablet"}},
	{"Fashion", []string{"Marlowe", "Ardent", "Kairo"}, []string{"Sneakers", "Jacket", "Scarf", "Jeans", "Backpack"}},
	{"Home", []string{"Hearth", "Lumen", "Oakline"}, []string{"Lamp", "Cushion", "Kettle", "Rug", "Vase"}},
	{"Books", []string{"Quarto", "Inkwell"}, []string{"Novel", "Cookbook", "Atlas", "Biography", "Poetry"}},
	{"Sports", []string{"Peakform", "Stride"}, []string{"Yoga Mat", "Dumbbells", "Bottle", "Racket", "Helmet"}},
	{"Beauty", []string{"Velour", "Bloom"}, []string{"Serum", "Lipstick", "Shampoo", "Perfume", "Mask"}},
}

var seedNames = []string{
	"Ava", "Ben", "Chloe", "Dev", "Elena", "Farid", "Grace", "Hugo", "Ines", "Jonas",
	"Kira", "Liam", "Maya", "Noah", "Omar", "Priya", "Quinn", "Rosa", "Sami", "Tara",
}

// SeedOptions controls the generated demo data.
type SeedOptions struct {
	Seed                int64
	Users               int
	ProductsPerCategory int

	// OrdersPerUser is the number of historical orders per user; each order
	// is preceded by a seen event 5-60 minutes earlier.
	OrdersPerUser int

	// LiveEventsPerUser is the number of recent live seen/order events.
	LiveEventsPerUser int

	// Now anchors generated timestamps. Zero uses time.Now.
	Now time.Time
}

// DefaultSeedOptions returns a small but non-trivial data set.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Seed:                42,
		Users:               40,
		ProductsPerCategory: 5,
		OrdersPerUser:       6,
		LiveEventsPerUser:   3,
	}
}

// SeedResult summarizes generated data.
type SeedResult struct {
	Users      []string `json:"users"`
	Products   int      `json:"products"`
	Historical int      `json:"historical_events"`
	Live       int      `json:"live_events"`
}

// GenerateSeed builds the demo data set without touching the database.
// The same options always produce the same data, ids included.
func GenerateSeed(opts SeedOptions) ([]models.Product, []models.User, []models.Event) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Second)
	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // demo data only

	perCat := max(opts.ProductsPerCategory, 1)
	var products []models.Product
	byCategory := make([][]models.Product, len(seedCategories))
	for ci, c := range seedCategories {
		for j := 0; j < perCat; j++ {
			p := models.Product{
				ID:       int64(1000 + ci*100 + j),
				Name:     fmt.Sprintf("%s %s", c.brands[j%len(c.brands)], c.items[j%len(c.items)]),
				Brand:    c.brands[j%len(c.brands)],
				Category: c.name,
			}
			if j == 0 && ci%2 == 0 {
				p.Tags = []string{models.TagPromoted}
			}
			products = append(products, p)
			byCategory[ci] = append(byCategory[ci], p)
		}
	}

	users := make([]models.User, opts.Users)
	var events []models.Event
	seq := 0
	newEvent := func(user string, action models.Action, p models.Product, ts time.Time, historical bool) models.Event {
		seq++
		return models.Event{
			ID:         uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%d/%d", opts.Seed, seq))).String(),
			UserID:     user,
			Action:     action,
			Detail:     models.EventDetail{ProductID: p.ID, Category: p.Category},
			Timestamp:  ts,
			Historical: historical,
		}
	}

	for i := range users {
		id := fmt.Sprintf("user-%03d", i+1)
		users[i] = models.User{ID: id, Name: seedNames[i%len(seedNames)]}

		// Each shopper favors two categories, which gives k-means structure.
		favorite := rng.Intn(len(seedCategories))
		second := (favorite + 1 + rng.Intn(len(seedCategories)-1)) % len(seedCategories)

		for k := 0; k < opts.OrdersPerUser; k++ {
			cat := favorite
			switch r := rng.Float64(); {
			case r > 0.85:
				cat = rng.Intn(len(seedCategories))
			case r > 0.55:
				cat = second
			}
			p := byCategory[cat][rng.Intn(len(byCategory[cat]))]
			orderedAt := now.Add(-time.Duration(7*24+rng.Intn(60*24)) * time.Hour)
			seenAt := orderedAt.Add(-time.Duration(5+rng.Intn(56)) * time.Minute)
			events = append(events,
				newEvent(id, models.ActionSeen, p, seenAt, true),
				newEvent(id, models.ActionOrder, p, orderedAt, true),
			)
		}

		for k := 0; k < opts.LiveEventsPerUser; k++ {
			cat := favorite
			if rng.Float64() > 0.6 {
				cat = second
			}
			p := byCategory[cat][rng.Intn(len(byCategory[cat]))]
			action := models.ActionSeen
			if rng.Float64() > 0.7 {
				action = models.ActionOrder
			}
			ts := now.Add(-time.Duration(rng.Intn(36*60)) * time.Minute)
			events = append(events, newEvent(id, action, p, ts, false))
		}
	}
	return products, users, events
}

// Seed generates demo data and writes it. Existing rows with the same keys
// are replaced or kept, so seeding twice with the same options is harmless.
func (db *DB) Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	products, users, events := GenerateSeed(opts)

	if err := db.UpsertProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}
	if err := db.UpsertUsers(ctx, users); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	if err := db.AppendEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("seed events: %w", err)
	}

	res := &SeedResult{Products: len(products)}
	for _, u := range users {
		res.Users = append(res.Users, u.ID)
	}
	for i := range events {
		if events[i].Historical {
			res.Historical++
		} else {
			res.Live++
		}
	}

	logging.Info().
		Int64("seed", opts.Seed).
		Int("users", len(users)).
		Int("products", res.Products).
		Int("historical_events", res.Historical).
		Int("live_events", res.Live).
		Msg("seeded database")
	return res, nil
}
