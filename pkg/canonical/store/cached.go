package store

import (
	"context"

	"github.com/smallnest/deepcopy"
	"golang.org/x/sync/singleflight"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/util/xcache"
)

// NewCachedStorage wraps a storage with an in-memory manifest cache.
// Manifest reads dominate register loads, and a loaded manifest is
// immutable until the next StoreManifest on the same key, so the cache
// is invalidated on write. Concurrent misses for one key share a single
// underlying load. Cached manifests are deep-copied on the way in and
// out so callers can mutate their copy freely.
func NewCachedStorage(inner Storage) Storage {
	return &cachedStorage{
		Storage: inner,
		cache:   xcache.NewMemory[*integrity.Manifest](),
	}
}

type cachedStorage struct {
	Storage
	cache     xcache.Cache[*integrity.Manifest]
	loadGroup singleflight.Group
}

// LoadManifest serves manifests from the cache, falling back to the
// wrapped storage.
func (c *cachedStorage) LoadManifest(ctx context.Context, key canonical.Key) (*integrity.Manifest, error) {
	if cached, ok := c.cache.Get(ctx, key.String()); ok {
		return deepcopy.Copy(cached), nil
	}
	loaded, err, _ := c.loadGroup.Do(key.String(), func() (any, error) {
		manifest, err := c.Storage.LoadManifest(ctx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Set(ctx, key.String(), deepcopy.Copy(manifest))
		return manifest, nil
	})
	if err != nil {
		return nil, err
	}
	// coalesced callers each get their own copy
	return deepcopy.Copy(loaded.(*integrity.Manifest)), nil
}

// StoreManifest writes through and refreshes the cache.
func (c *cachedStorage) StoreManifest(ctx context.Context, key canonical.Key, manifest *integrity.Manifest) error {
	if err := c.Storage.StoreManifest(ctx, key, manifest); err != nil {
		// the write may or may not have landed; drop the stale copy
		c.cache.Delete(ctx, key.String())
		return err
	}
	c.cache.Set(ctx, key.String(), deepcopy.Copy(manifest))
	return nil
}
