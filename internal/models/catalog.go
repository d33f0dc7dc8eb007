// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package models

import (
	"sort"
	"strings"
)

// Tag values set by merchandising on products that get a business boost.
const (
	TagPromoted = "promoted"
	TagTrending = "trending"
)

// Product is immutable catalog reference data.
type Product struct {
	ID       int64    `json:"product_id"`
	Name     string   `json:"product_name"`
	Brand    string   `json:"brand"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
}

// Promoted reports whether merchandising tagged the product promoted or trending.
func (p *Product) Promoted() bool {
	for _, t := range p.Tags {
		switch strings.ToLower(t) {
		case TagPromoted, TagTrending:
			return true
		}
	}
	return false
}

// User is a shopper. ClusterID is nil until the first rebuild assigns one.
type User struct {
	ID        string `json:"user_id"`
	Name      string `json:"name"`
	ClusterID *int   `json:"cluster_id,omitempty"`
}

// CategoryGroup is one category with its products, as listed by /api/items.
type CategoryGroup struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

// GroupByCategory groups products by category, categories sorted by name
// and products by id.
func GroupByCategory(products []Product) []CategoryGroup {
	byCat := make(map[string][]Product)
	for _, p := range products {
		byCat[p.Category] = append(byCat[p.Category], p)
	}
	groups := make([]CategoryGroup, 0, len(byCat))
	for cat, items := range byCat {
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		groups = append(groups, CategoryGroup{Category: cat, Products: items})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups
}
