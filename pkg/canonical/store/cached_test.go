package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/inmemory"
)

// gatedStorage blocks the first LoadManifest until released so callers
// pile up behind it.
type gatedStorage struct {
	store.Storage
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStorage) LoadManifest(ctx context.Context, key canonical.Key) (*integrity.Manifest, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.Storage.LoadManifest(ctx, key)
}

func TestCachedStorageCoalescedLoadsGetOwnCopies(t *testing.T) {
	ctx := context.Background()
	key := canonical.MakeKey("global.manifest.json")

	inner := inmemory.NewStorage()
	require.NoError(t, inner.StoreManifest(ctx, key, integrity.NewManifest()))

	gate := &gatedStorage{
		Storage: inner,
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	cached := store.NewCachedStorage(gate)

	results := make(chan *integrity.Manifest, 2)
	for i := 0; i < 2; i++ {
		go func() {
			manifest, err := cached.LoadManifest(ctx, key)
			assert.NoError(t, err)
			results <- manifest
		}()
	}
	<-gate.entered
	// give the second caller time to join the in-flight load
	time.Sleep(10 * time.Millisecond)
	close(gate.release)

	first := <-results
	second := <-results
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	// mutating a returned manifest must not leak into the cache
	first.NumberOfVersions = 99
	reloaded, err := cached.LoadManifest(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, reloaded.NumberOfVersions)
}
