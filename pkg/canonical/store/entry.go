package store

import (
	"io"

	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
	"github.com/arxiv/canonical-go/pkg/util/xio/compression"

	_ "github.com/arxiv/canonical-go/pkg/util/xio/compression/builtin" // register formats
)

// pgzipThreshold is the descriptor size above which the parallel gzip
// reader is used for the store-time unwrap. Classic source packages can
// run to hundreds of megabytes.
const pgzipThreshold = 64 * xio.MiB

// ReadEntryContent consumes the entry content and returns the bytes to
// store, applying the store-time normalization: when the descriptor
// says the content is compressed, exactly one outer layer is
// unwrapped. The descriptor's size is updated, the gzip flag cleared,
// and the checksum computed from the returned bytes.
//
// Storage adapters call this before persisting so that checksums always
// describe the stored (post-decompression) representation.
func ReadEntryContent(entry *StorableEntry) ([]byte, error) {
	if entry.Content == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "%s: entry has no content", entry.Key)
	}
	reader := entry.Content
	if entry.File.IsGzipped {
		format, restored, err := compression.DetectReader(reader)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "%s: flagged compressed but format not detected: %w", entry.Key, err)
		}
		// Multistream off so a gzipped tar that is itself gzipped
		// loses only the outer layer.
		unwrapped, err := format.Uncompress(restored,
			compression.WithMultithread(entry.File.SizeBytes >= pgzipThreshold),
			compression.WithMultistream(false))
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "%s: %s unwrap: %w", entry.Key, format.Name(), err)
		}
		defer xio.CloseAndSkipError(unwrapped)
		reader = unwrapped
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	entry.File.SizeBytes = int64(len(data))
	entry.File.IsGzipped = false
	entry.Checksum = integrity.FromBytes(data)
	return data, nil
}
