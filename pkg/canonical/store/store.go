// Package store defines the storage contract of the canonical record:
// sources that dereference opaque URIs to lazy byte streams, and
// storages that additionally persist entries and manifests.
package store

import (
	"context"
	"io"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

//go:generate mockgen -destination=./source_mock_test.go -package=store_test github.com/arxiv/canonical-go/pkg/canonical/store Source

var (
	// ErrCannotResolve is returned when no registered source can resolve
	// a URI. It is surfaced to the caller and never retried internally.
	ErrCannotResolve = errdefs.Newf(errdefs.ErrUnavailable, "cannot resolve uri")

	// ErrDoesNotExist is returned when a key or manifest is missing.
	// Load sites branch on it to either create empty state or fail.
	ErrDoesNotExist = errdefs.Newf(errdefs.ErrNotFound, "key does not exist")
)

// Source dereferences opaque URIs to byte streams. Implementations must
// be safe for concurrent use.
type Source interface {
	// CanResolve reports whether the source can dereference the URI.
	CanResolve(ctx context.Context, uri canonical.URI) bool

	// Load opens the bitstream the URI references. The returned stream
	// defers the underlying I/O until first read, memoizes what it has
	// read, and supports seeking back to the start for re-reads.
	Load(ctx context.Context, uri canonical.URI) (io.ReadSeekCloser, error)
}

// StorableEntry is one bitstream on its way into storage. StoreEntry
// consumes Content and updates File and Checksum in place: when the
// descriptor says the content is gzipped, exactly one outer layer is
// unwrapped, SizeBytes is updated and the flag cleared, and the
// checksum is computed from the stored bytes.
type StorableEntry struct {
	// Key is the canonical key to store the bitstream under.
	Key canonical.Key
	// File is the descriptor of the bitstream.
	File canonical.CanonicalFile
	// Content is the bitstream. A nil content marks a metadata-only
	// reference, which storages reject.
	Content io.Reader
	// Checksum is filled by the storage from the stored bytes.
	Checksum integrity.Checksum
}

// Storage is a Source that also persists entries and manifests and
// enumerates subkeys. Writes are key-atomic: a store either succeeds
// entirely or leaves the prior value intact.
type Storage interface {
	Source

	// ListSubkeys returns the names of the direct children below the
	// key, directories and files alike.
	ListSubkeys(ctx context.Context, key canonical.Key) ([]string, error)

	// StoreEntry persists the entry and updates it in place, applying
	// the store-time gzip unwrap.
	StoreEntry(ctx context.Context, entry *StorableEntry) error

	// LoadEntry opens the bitstream stored at key along with the
	// checksum of the stored bytes. Missing keys return ErrDoesNotExist.
	LoadEntry(ctx context.Context, key canonical.Key) (io.ReadSeekCloser, integrity.Checksum, error)

	// StoreManifest persists the manifest at key as canonical JSON.
	StoreManifest(ctx context.Context, key canonical.Key, manifest *integrity.Manifest) error

	// LoadManifest loads the manifest stored at key. Missing keys return
	// ErrDoesNotExist.
	LoadManifest(ctx context.Context, key canonical.Key) (*integrity.Manifest, error)
}
