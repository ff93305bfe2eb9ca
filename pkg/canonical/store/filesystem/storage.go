// Package filesystem stores the canonical record on a filesystem
// rooted at a base directory, with key-atomic writes via a temp file
// and rename.
package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
)

var _ store.Storage = (*Storage)(nil)

// NewStorage returns a record storage rooted at dir on the given
// filesystem.
func NewStorage(fsys afero.Fs, dir string) *Storage {
	return &Storage{fs: fsys, root: filepath.Clean(dir)}
}

// NewOSStorage returns a record storage rooted at dir on the host
// filesystem.
func NewOSStorage(dir string) *Storage {
	return NewStorage(afero.NewOsFs(), dir)
}

// Storage persists record entries and manifests below a root directory.
// Keys map to paths verbatim: arxiv:///e-prints/2029/... lives at
// <root>/e-prints/2029/...
type Storage struct {
	fs   afero.Fs
	root string
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
	entries, err := afero.ReadDir(s.fs, s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Newf(store.ErrDoesNotExist, "%s", key)
		}
		return nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
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
	return s.writeAtomic(entry.Key, data)
}

// LoadEntry opens the bitstream stored at key together with the
// checksum of the stored bytes.
func (s *Storage) LoadEntry(_ context.Context, key canonical.Key) (io.ReadSeekCloser, integrity.Checksum, error) {
	data, err := s.readFile(key)
	if err != nil {
		return nil, "", err
	}
	return xio.NopReadSeeker(bytes.NewReader(data)), integrity.FromBytes(data), nil
}

// StoreManifest persists the manifest as canonical JSON. Inconsistent
// counters are a fatal integrity error and nothing is written.
func (s *Storage) StoreManifest(_ context.Context, key canonical.Key, manifest *integrity.Manifest) error {
	if err := manifest.ValidateCounters(); err != nil {
		return errdefs.Newf(err, "refusing to store %s", key)
	}
	data, err := manifest.CanonicalBytes()
	if err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	return s.writeAtomic(key, data)
}

// LoadManifest loads the manifest stored at key.
func (s *Storage) LoadManifest(_ context.Context, key canonical.Key) (*integrity.Manifest, error) {
	data, err := s.readFile(key)
	if err != nil {
		return nil, err
	}
	manifest := integrity.NewManifest()
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, errdefs.Newf(errdefs.ErrDataLoss, "%s: bad manifest: %w", key, err)
	}
	return manifest, nil
}

// path maps a canonical key to its location below the root.
func (s *Storage) path(key canonical.Key) string {
	return filepath.Join(s.root, filepath.FromSlash(key.Path()))
}

func (s *Storage) readFile(key canonical.Key) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Newf(store.ErrDoesNotExist, "%s", key)
		}
		return nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	return data, nil
}

// writeAtomic writes data to the key's path through a temp file in the
// same directory followed by a rename, so a crash never leaves a
// partial value visible.
func (s *Storage) writeAtomic(key canonical.Key, data []byte) error {
	target := s.path(key)
	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		xio.CloseAndSkipError(tmp)
		_ = s.fs.Remove(tmpName)
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	if err := s.fs.Chmod(target, fs.FileMode(0o644)); err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	return nil
}
