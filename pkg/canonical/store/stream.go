package store

import (
	"context"
	"io"

	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
)

// Opener opens the underlying stream of a lazy load.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// NewLazyStream wraps an opener into a stream that defers the
// underlying I/O until first read. Read bytes are memoized, so seeking
// back to the start replays them without reopening the source. Seeking
// anywhere other than the start is not part of the source contract and
// is rejected.
//
// The context is captured for the deferred open; it should span the
// lifetime of the returned stream.
func NewLazyStream(ctx context.Context, open Opener) io.ReadSeekCloser {
	return &lazyStream{ctx: ctx, open: open}
}

type lazyStream struct {
	ctx    context.Context
	open   Opener
	raw    io.ReadCloser
	rewind *xio.RewindReader
	closed bool
}

// Read opens the source on first call and memoizes everything read.
func (s *lazyStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errdefs.Newf(errdefs.ErrSystem, "read from closed stream")
	}
	if s.rewind == nil {
		raw, err := s.open(s.ctx)
		if err != nil {
			return 0, err
		}
		s.raw = raw
		s.rewind = xio.NewRewindReader(raw)
	}
	return s.rewind.Read(p)
}

// Seek supports rewinding to the start; the memoized bytes are replayed
// before the source is read further.
func (s *lazyStream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, errdefs.Newf(errdefs.ErrSystem, "seek on closed stream")
	}
	if offset != 0 || whence != io.SeekStart {
		return 0, errdefs.Newf(errdefs.ErrUnsupported, "lazy streams only seek to the start")
	}
	s.rewind.Rewind()
	return 0, nil
}

// Close releases the underlying stream when it was opened.
func (s *lazyStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.raw != nil {
		return s.raw.Close()
	}
	return nil
}
