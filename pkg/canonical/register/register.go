// Package register implements the canonical record register: the
// append-only domain API that turns announcement events into stored
// versions, listings and the manifest tower above them.
package register

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// ErrConsistency is returned when an event disagrees with the stored
// state of the record, e.g. a "new" event for a version that already
// exists. Consistency errors are fatal to the batch that raised them;
// the record itself stays valid.
var ErrConsistency = errdefs.Newf(errdefs.ErrConflict, "record consistency violation")

// Register is the domain API over one canonical record. It dispatches
// announcement events into versions and listings, keeps the manifest
// tower consistent, and serves the read operations.
//
// A register serializes its own writers; cross-process exclusion is the
// caller's concern.
type Register struct {
	storage store.Storage
	sources *store.SourceSet

	// mu serializes AddEvents. Reads do not take it.
	mu sync.Mutex

	versions *xsync.MapOf[string, *canonical.Version]
	group    singleflight.Group
}

// Open returns a register over the given storage. Additional sources
// dereference the refs of incoming events; the storage itself always
// resolves canonical keys.
func Open(ctx context.Context, storage store.Storage, sources ...store.Source) (*Register, error) {
	if storage == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "nil storage")
	}
	r := &Register{
		storage:  storage,
		sources:  store.NewSourceSet(sources...),
		versions: xsync.NewMapOf[string, *canonical.Version](),
	}
	global, err := storage.LoadManifest(ctx, record.GlobalManifestSpec{}.Key())
	switch {
	case errors.Is(err, store.ErrDoesNotExist):
		xlog.C(ctx).Debugf("register: opening empty record")
	case err != nil:
		return nil, errdefs.Newf(err, "open register")
	default:
		xlog.C(ctx).Debugf("register: opened record with %d events, %d versions",
			global.NumberOfEvents, global.NumberOfVersions)
	}
	return r, nil
}

// Sources returns the register's source set so that callers can attach
// additional resolvers after opening.
func (r *Register) Sources() *store.SourceSet { return r.sources }

// resolve dereferences a file ref: registered sources take precedence,
// then the storage itself for canonical keys.
func (r *Register) resolve(ctx context.Context, uri canonical.URI) (io.ReadSeekCloser, error) {
	if r.sources.CanResolve(ctx, uri) {
		return r.sources.Load(ctx, uri)
	}
	if r.storage.CanResolve(ctx, uri) {
		return r.storage.Load(ctx, uri)
	}
	return nil, errdefs.Newf(store.ErrCannotResolve, "%s", uri)
}
