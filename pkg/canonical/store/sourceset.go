package store

import (
	"context"
	"io"
	"sync"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// SourceSet resolves URIs through an ordered list of sources. The first
// source whose CanResolve returns true wins. The zero value is usable;
// it resolves nothing.
type SourceSet struct {
	mu      sync.RWMutex
	sources []Source
}

// NewSourceSet returns a source set over the given sources, consulted
// in order.
func NewSourceSet(sources ...Source) *SourceSet {
	return &SourceSet{sources: sources}
}

// Register appends sources to the end of the resolution order.
func (s *SourceSet) Register(sources ...Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, sources...)
}

// CanResolve reports whether any registered source can dereference the
// URI.
func (s *SourceSet) CanResolve(ctx context.Context, uri canonical.URI) bool {
	_, ok := s.resolve(ctx, uri)
	return ok
}

// Load opens the bitstream through the first source that can resolve
// the URI.
func (s *SourceSet) Load(ctx context.Context, uri canonical.URI) (io.ReadSeekCloser, error) {
	source, ok := s.resolve(ctx, uri)
	if !ok {
		return nil, errdefs.Newf(ErrCannotResolve, "%s: no source accepts the uri", uri)
	}
	return source.Load(ctx, uri)
}

func (s *SourceSet) resolve(ctx context.Context, uri canonical.URI) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, source := range s.sources {
		if source.CanResolve(ctx, uri) {
			return source, true
		}
	}
	return nil, false
}
