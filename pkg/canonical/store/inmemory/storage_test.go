package inmemory_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/inmemory"
)

func TestEntryLifecycle(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	key := canonical.MakeKey("e-prints", "2029", "01", "2901.00345", "v1", "2901.00345v1.pdf")
	payload := []byte("pdf bytes")
	entry := &store.StorableEntry{
		Key:     key,
		File:    canonical.CanonicalFile{ContentType: canonical.ContentTypePDF},
		Content: bytes.NewReader(payload),
	}
	require.NoError(t, storage.StoreEntry(ctx, entry))

	stream, checksum, err := storage.LoadEntry(ctx, key)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, integrity.FromBytes(payload), checksum)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, _, err = storage.LoadEntry(ctx, canonical.MakeKey("e-prints", "missing"))
	require.ErrorIs(t, err, store.ErrDoesNotExist)
}

func TestManifestIsolation(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	key := canonical.MakeKey("e-prints.manifest.json")
	manifest := integrity.NewManifest()
	manifest.UpdateOrExtend(integrity.ManifestEntry{
		Key:      canonical.MakeKey("e-prints", "2029.manifest.json"),
		Checksum: "x",
	})
	require.NoError(t, storage.StoreManifest(ctx, key, manifest))

	// mutating the caller's copy must not leak into the store
	manifest.UpdateOrExtend(integrity.ManifestEntry{
		Key:      canonical.MakeKey("e-prints", "2030.manifest.json"),
		Checksum: "y",
	})

	loaded, err := storage.LoadManifest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())

	// nor must mutating a loaded copy affect later loads
	loaded.Remove(canonical.MakeKey("e-prints", "2029.manifest.json"))
	reloaded, err := storage.LoadManifest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}

func TestListSubkeys(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	for _, name := range []string{"2901.00345", "2901.00346"} {
		entry := &store.StorableEntry{
			Key:     canonical.MakeKey("e-prints", "2029", "01", name, "v1", name+"v1.json"),
			Content: bytes.NewReader([]byte(name)),
		}
		require.NoError(t, storage.StoreEntry(ctx, entry))
	}

	names, err := storage.ListSubkeys(ctx, canonical.MakeKey("e-prints", "2029", "01"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2901.00345", "2901.00346"}, names)

	_, err = storage.ListSubkeys(ctx, canonical.MakeKey("announcement"))
	require.ErrorIs(t, err, store.ErrDoesNotExist)
}

func TestCorruptEntryBreaksValidation(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	key := canonical.MakeKey("e-prints", "2029", "01", "2901.00345", "v1", "2901.00345v1.pdf")
	entry := &store.StorableEntry{Key: key, Content: bytes.NewReader([]byte("good bytes"))}
	require.NoError(t, storage.StoreEntry(ctx, entry))

	manifest := integrity.NewManifest()
	manifest.UpdateOrExtend(integrity.ManifestEntry{Key: key, Checksum: entry.Checksum})
	manifestKey := canonical.MakeKey("e-prints", "2029", "01", "2901.00345", "v1.manifest.json")
	require.NoError(t, storage.StoreManifest(ctx, manifestKey, manifest))

	require.NoError(t, integrity.Validate(ctx, storage, manifestKey))

	require.True(t, storage.CorruptEntry(key, []byte("bad bytes")))
	require.ErrorIs(t, integrity.Validate(ctx, storage, manifestKey), integrity.ErrChecksumMismatch)
}
