// Package catalog serves category reference data from a read-through cache.
//
// Categories are seeded by migrations and never change while the process
// runs, so lookups hit the store once per kind. Concurrent misses for the same
// kind share one query.
package catalog

import (
	"context"
	"fmt"
	"time"

	"coinkeeper/internal/cache"
	"coinkeeper/internal/core"
	"coinkeeper/internal/storage"

	"golang.org/x/sync/singleflight"
)

type Catalog struct {
	store storage.CategoryStore
	cache *cache.LRUCache[[]core.Category]
	group singleflight.Group
}

// New wraps store. A ttl of zero keeps categories for the life of the process.
func New(store storage.CategoryStore, ttl time.Duration) *Catalog {
	return &Catalog{
		store: store,
		cache: cache.NewLRUCache[[]core.Category](len(core.Kinds()), ttl),
	}
}

// List returns the categories of kind in display order.
func (c *Catalog) List(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	if cats, ok := c.cache.Get(kind.String()); ok {
		return cats, nil
	}

	v, err, _ := c.group.Do(kind.String(), func() (any, error) {
		if cats, ok := c.cache.Get(kind.String()); ok {
			return cats, nil
		}
		cats, err := c.store.ListCategories(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s categories: %w", kind, err)
		}
		c.cache.Set(kind.String(), cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Category), nil
}

// Find resolves id within the categories of kind only.
func (c *Catalog) Find(ctx context.Context, kind core.Kind, id int64) (core.Category, error) {
	cats, err := c.List(ctx, kind)
	if err != nil {
		return core.Category{}, err
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat, nil
		}
	}
	return core.Category{}, fmt.Errorf("%s category %d: %w", kind, id, core.ErrNotFound)
}

// Invalidate drops the cached categories of every kind.
func (c *Catalog) Invalidate() {
	for _, kind := range core.Kinds() {
		c.cache.Delete(kind.String())
	}
}

// CleanExpired lets a cache.Manager sweep stale category lists.
func (c *Catalog) CleanExpired() int {
	return c.cache.CleanExpired()
}
