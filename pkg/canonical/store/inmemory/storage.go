// Package inmemory keeps a whole record in process memory. It backs
// tests, staging areas, and replicant bootstraps.
package inmemory

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/smallnest/deepcopy"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
)

var _ store.Storage = (*Storage)(nil)

// NewStorage returns an empty in-memory record storage.
func NewStorage() *Storage {
	return &Storage{
		entries:   xsync.NewMapOf[string, storedEntry](),
		manifests: xsync.NewMapOf[string, *integrity.Manifest](),
	}
}

type storedEntry struct {
	data     []byte
	checksum integrity.Checksum
}

// Storage holds entries and manifests in concurrent maps keyed by the
// canonical key. Stores replace values atomically.
type Storage struct {
	entries   *xsync.MapOf[string, storedEntry]
	manifests *xsync.MapOf[string, *integrity.Manifest]
}

// CanResolve accepts canonical keys.
func (s *Storage) CanResolve(_ context.Context, uri canonical.URI) bool {
	return uri.IsKey()
}

// Load opens the bitstream a canonical key references.
func (s *Storage) Load(ctx context.Context, uri canonical.URI) (io.ReadSeekCloser, error) {
	key, ok := uri.Key()
	if !ok {
		return nil, errdefs.Newf(store.ErrCannotResolve, "%s: not a canonical key", uri)
	}
	stream, _, err := s.LoadEntry(ctx, key)
	return stream, err
}

// ListSubkeys returns the names of the direct children below the key.
func (s *Storage) ListSubkeys(_ context.Context, key canonical.Key) ([]string, error) {
	prefix := key.Path() + "/"
	seen := map[string]struct{}{}
	collect := func(stored string) {
		path := canonical.Key(stored).Path()
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			name, _, _ := strings.Cut(rest, "/")
			seen[name] = struct{}{}
		}
	}
	s.entries.Range(func(stored string, _ storedEntry) bool {
		collect(stored)
		return true
	})
	s.manifests.Range(func(stored string, _ *integrity.Manifest) bool {
		collect(stored)
		return true
	})
	if len(seen) == 0 {
		return nil, errdefs.Newf(store.ErrDoesNotExist, "%s", key)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names, nil
}

// StoreEntry persists the entry, unwrapping one gzip layer when the
// descriptor asks for it, and updates the entry in place.
func (s *Storage) StoreEntry(_ context.Context, entry *store.StorableEntry) error {
	data, err := store.ReadEntryContent(entry)
	if err != nil {
		return err
	}
	s.entries.Store(entry.Key.String(), storedEntry{data: data, checksum: entry.Checksum})
	return nil
}

// LoadEntry opens the bitstream stored at key.
func (s *Storage) LoadEntry(_ context.Context, key canonical.Key) (io.ReadSeekCloser, integrity.Checksum, error) {
	stored, ok := s.entries.Load(key.String())
	if !ok {
		return nil, "", errdefs.Newf(store.ErrDoesNotExist, "%s", key)
	}
	return xio.NopReadSeeker(bytes.NewReader(stored.data)), stored.checksum, nil
}

// StoreManifest persists a deep copy of the manifest. Inconsistent
// counters are a fatal integrity error and nothing is stored.
func (s *Storage) StoreManifest(_ context.Context, key canonical.Key, manifest *integrity.Manifest) error {
	if err := manifest.ValidateCounters(); err != nil {
		return errdefs.Newf(err, "refusing to store %s", key)
	}
	s.manifests.Store(key.String(), deepcopy.Copy(manifest))
	return nil
}

// LoadManifest returns a deep copy of the manifest stored at key.
func (s *Storage) LoadManifest(_ context.Context, key canonical.Key) (*integrity.Manifest, error) {
	manifest, ok := s.manifests.Load(key.String())
	if !ok {
		return nil, errdefs.Newf(store.ErrDoesNotExist, "%s", key)
	}
	return deepcopy.Copy(manifest), nil
}

// CorruptEntry overwrites the stored bytes of a key without touching
// the recorded checksum. It is intended for integrity tests that need a
// deliberately corrupted record.
func (s *Storage) CorruptEntry(key canonical.Key, data []byte) bool {
	stored, ok := s.entries.Load(key.String())
	if !ok {
		return false
	}
	stored.data = data
	s.entries.Store(key.String(), stored)
	return true
}

// Keys returns every stored entry and manifest key, for tests and
// staging inspection.
func (s *Storage) Keys() []string {
	var keys []string
	s.entries.Range(func(key string, _ storedEntry) bool {
		keys = append(keys, key)
		return true
	})
	s.manifests.Range(func(key string, _ *integrity.Manifest) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
