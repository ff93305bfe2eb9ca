package gzip

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"

	"github.com/arxiv/canonical-go/pkg/util/xio"
	"github.com/arxiv/canonical-go/pkg/util/xio/compression"
)

const (
	// FormatName is the type of the format.
	FormatName = "gzip"
)

// magic number at the beginning of gzip files
var magicHeader = []byte{0x1f, 0x8b}

func init() {
	compression.MustRegisterFormat(format{})
}

type format struct{}

// Name returns the name of the format.
func (f format) Name() string {
	return FormatName
}

// Match returns whether the reader matched this format. If the error returned
// is EOF, means that the input is too small.
func (f format) Match(r io.Reader) (bool, error) {
	buf, err := xio.ReadAtMost(r, len(magicHeader))
	if err != nil {
		return false, err
	}
	return bytes.Equal(buf, magicHeader), nil
}

// Uncompress returns a reader for uncompressing the given reader.
func (f format) Uncompress(r io.Reader, opts ...compression.Option) (io.ReadCloser, error) {
	options := compression.MakeOptions(opts...)

	if options.Multithread {
		rc, err := pgzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		if options.Multistream != nil {
			rc.Multistream(*options.Multistream)
		}
		return rc, nil
	}
	rc, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	if options.Multistream != nil {
		rc.Multistream(*options.Multistream)
	}
	return rc, nil
}
