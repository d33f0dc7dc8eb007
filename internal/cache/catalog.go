// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

// CatalogSource is the backing product catalog.
type CatalogSource interface {
	Products(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	ProductsByCategory(ctx context.Context, categories []string) ([]models.Product, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
}

// Catalog is a read-through cache over a CatalogSource. Products are
// reference data, so entries are only ever refreshed by expiry.
// Unknown ids are never cached.
type Catalog struct {
	source CatalogSource
	byID   *LRU[int64, models.Product]
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	all       []models.Product
	allExpiry time.Time
}

// NewCatalog wraps source with a cache of size products kept for ttl.
func NewCatalog(source CatalogSource, size int, ttl time.Duration) *Catalog {
	byID := NewLRU[int64, models.Product](size, ttl)
	return &Catalog{
		source: source,
		byID:   byID,
		ttl:    byID.ttl,
		now:    time.Now,
	}
}

// Products returns the known products among ids. Only ids missing from the
// cache are read from the source.
func (c *Catalog) Products(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	var missing []int64
	for _, id := range ids {
		if p, ok := c.byID.Get(id); ok {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	metrics.RecordCatalogCache("product", len(ids)-len(missing), len(missing))
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.source.Products(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		c.byID.Add(id, p)
		out[id] = p
	}
	metrics.CatalogCacheEntries.Set(float64(c.byID.Len()))
	return out, nil
}

// AllProducts returns the whole catalog ordered by id. Callers must not
// modify the returned slice.
func (c *Catalog) AllProducts(ctx context.Context) ([]models.Product, error) {
	c.mu.Lock()
	if c.all != nil && c.now().Before(c.allExpiry) {
		all := c.all
		c.mu.Unlock()
		metrics.RecordCatalogCache("all", 1, 0)
		return all, nil
	}
	c.mu.Unlock()
	metrics.RecordCatalogCache("all", 0, 1)

	all, err := c.source.AllProducts(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.all = all
	c.allExpiry = c.now().Add(c.ttl)
	c.mu.Unlock()

	for _, p := range all {
		c.byID.Add(p.ID, p)
	}
	metrics.CatalogCacheEntries.Set(float64(c.byID.Len()))
	return all, nil
}

// ProductsByCategory filters the cached catalog, keeping id order.
func (c *Catalog) ProductsByCategory(ctx context.Context, categories []string) ([]models.Product, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	all, err := c.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(categories))
	for _, cat := range categories {
		want[cat] = true
	}
	var out []models.Product
	for _, p := range all {
		if want[p.Category] {
			out = append(out, p)
		}
	}
	return out, nil
}

// Invalidate drops every cached product.
func (c *Catalog) Invalidate() {
	c.byID.Clear()
	c.mu.Lock()
	c.all = nil
	c.allExpiry = time.Time{}
	c.mu.Unlock()
	metrics.CatalogCacheEntries.Set(0)
}
