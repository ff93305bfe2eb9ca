// Package roles composes registers and streams into the four node
// roles of a record deployment. Capabilities are compile-time: a
// Repository simply has no write methods, so misuse fails at build
// time instead of at runtime.
package roles

import (
	"context"
	"io"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/util/xiter"
)

var (
	_ Reader = (*register.Register)(nil)
	_ Writer = (*register.Register)(nil)
	_ Writer = (*Primary)(nil)
	_ Reader = (*Primary)(nil)
	_ Reader = (*Repository)(nil)
)

// Reader is the read surface of a register.
type Reader interface {
	LoadVersion(ctx context.Context, versioned identifier.VersionedIdentifier) (*canonical.Version, error)
	LoadEPrint(ctx context.Context, id identifier.Identifier) (*canonical.EPrint, error)
	LoadHistory(ctx context.Context, id identifier.Identifier) ([]canonical.EventSummary, error)
	LoadVersionHistory(ctx context.Context, versioned identifier.VersionedIdentifier) ([]canonical.EventSummary, error)
	LoadListing(ctx context.Context, listingID identifier.ListingIdentifier) (*canonical.Listing, error)
	LoadEvent(ctx context.Context, eventID identifier.EventIdentifier) (*canonical.Event, error)
	LoadEvents(ctx context.Context, span register.Span) (xiter.Iterator[*canonical.Event], int, error)
	LoadSource(ctx context.Context, versioned identifier.VersionedIdentifier) (io.ReadSeekCloser, canonical.CanonicalFile, error)
	LoadRender(ctx context.Context, versioned identifier.VersionedIdentifier) (io.ReadSeekCloser, canonical.CanonicalFile, error)
	LoadFormat(ctx context.Context, versioned identifier.VersionedIdentifier, contentType canonical.ContentType) (io.ReadSeekCloser, canonical.CanonicalFile, error)
}

// Writer is the write surface of a register.
type Writer interface {
	AddEvents(ctx context.Context, events ...*canonical.Event) error
}
