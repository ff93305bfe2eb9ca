package filesystem

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

var _ store.Source = (*Source)(nil)

// NewSource returns a source resolving file:// URIs below the base
// directory. Paths outside the base are refused.
func NewSource(fsys afero.Fs, base string) *Source {
	return &Source{fs: fsys, base: filepath.Clean(base)}
}

// NewOSSource returns a file source over the host filesystem.
func NewOSSource(base string) *Source {
	return NewSource(afero.NewOsFs(), base)
}

// Source dereferences file:// URIs confined to a base directory.
type Source struct {
	fs   afero.Fs
	base string
}

// CanResolve accepts file URIs whose path stays below the base.
func (s *Source) CanResolve(_ context.Context, uri canonical.URI) bool {
	if !uri.IsFile() {
		return false
	}
	_, ok := s.confine(uri)
	return ok
}

// Load lazily opens the referenced file.
func (s *Source) Load(ctx context.Context, uri canonical.URI) (io.ReadSeekCloser, error) {
	path, ok := s.confine(uri)
	if !ok {
		return nil, errdefs.Newf(store.ErrCannotResolve, "%s: outside base %s", uri, s.base)
	}
	return store.NewLazyStream(ctx, func(context.Context) (io.ReadCloser, error) {
		file, err := s.fs.Open(path)
		if err != nil {
			return nil, errdefs.Newf(store.ErrCannotResolve, "%s: %w", uri, err)
		}
		return file, nil
	}), nil
}

// confine resolves the URI path and checks it stays below the base.
func (s *Source) confine(uri canonical.URI) (string, bool) {
	path := filepath.Clean(filepath.FromSlash(uri.Path()))
	if path != s.base && !strings.HasPrefix(path, s.base+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
