package integrity

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// validateConcurrency bounds the parallel checksum recomputation of a
// validation walk.
const validateConcurrency = 8

// ManifestStorage is the slice of the storage contract the validation
// walk needs. The canonical store satisfies it.
type ManifestStorage interface {
	// LoadEntry opens the bitstream stored at key.
	LoadEntry(ctx context.Context, key canonical.Key) (io.ReadSeekCloser, Checksum, error)
	// LoadManifest loads the manifest stored at key.
	LoadManifest(ctx context.Context, key canonical.Key) (*Manifest, error)
}

// Validate walks the manifest tree rooted at key, recomputing every
// checksum from its children. A corrupted bitstream surfaces as an
// ErrChecksumMismatch naming the leaf; counter drift surfaces as an
// ErrCounterMismatch naming the manifest.
func Validate(ctx context.Context, storage ManifestStorage, key canonical.Key) error {
	manifest, err := storage.LoadManifest(ctx, key)
	if err != nil {
		return err
	}
	return validateManifest(ctx, storage, key, manifest, manifest.Checksum())
}

// validateManifest checks one manifest against its expected collection
// checksum, then recurses into its members.
func validateManifest(ctx context.Context, storage ManifestStorage, key canonical.Key, manifest *Manifest, expected Checksum) error {
	if sum := manifest.Checksum(); sum != expected {
		return checksumMismatch(key, expected, sum)
	}
	if err := manifest.ValidateCounters(); err != nil {
		return errdefs.Newf(err, "at %s", key)
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(validateConcurrency)
	for _, entry := range manifest.Entries {
		entry := entry
		group.Go(func() error {
			if entry.IsManifest() {
				child, err := storage.LoadManifest(groupCtx, entry.Key)
				if err != nil {
					return err
				}
				return validateManifest(groupCtx, storage, entry.Key, child, entry.Checksum)
			}
			return validateLeaf(groupCtx, storage, entry)
		})
	}
	return group.Wait()
}

// validateLeaf recomputes a bitstream checksum from the stored bytes.
func validateLeaf(ctx context.Context, storage ManifestStorage, entry ManifestEntry) error {
	stream, _, err := storage.LoadEntry(ctx, entry.Key)
	if err != nil {
		return err
	}
	defer xio.CloseAndSkipError(stream)

	sum, size, err := FromReader(stream)
	if err != nil {
		return err
	}
	if sum != entry.Checksum {
		return checksumMismatch(entry.Key, entry.Checksum, sum)
	}
	if entry.SizeBytes != 0 && size != entry.SizeBytes {
		xlog.C(ctx).Warnf("size drift at %s: manifest says %d bytes, stored %d", entry.Key, entry.SizeBytes, size)
	}
	return nil
}

func checksumMismatch(key canonical.Key, want, got Checksum) error {
	return errdefs.Newf(ErrChecksumMismatch, "%s: want %s, got %s", key, want, got)
}
