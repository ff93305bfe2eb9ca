package register

import (
	"context"
	"errors"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xiter"
)

// Span selects the announcement days LoadEvents walks: a whole year, a
// month, or a single day. A zero Month widens to the year, a zero Day
// to the month.
type Span struct {
	Year  int
	Month time.Month
	Day   int
}

// SpanOf returns the single-day span of a date.
func SpanOf(date identifier.Date) Span {
	return Span{Year: date.Year, Month: date.Month, Day: date.Day}
}

// manifestSpec returns the listing-hierarchy manifest covering the
// span.
func (s Span) manifestSpec() (record.KeySpec, error) {
	switch {
	case s.Year <= 0:
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "span has no year")
	case s.Month == 0 && s.Day != 0:
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "span has a day but no month")
	case s.Month == 0:
		return record.ListingYearManifestSpec{Year: s.Year}, nil
	case s.Day == 0:
		return record.ListingMonthManifestSpec{Year: s.Year, Month: s.Month}, nil
	default:
		return record.ListingDayManifestSpec{Date: identifier.NewDate(s.Year, s.Month, s.Day)}, nil
	}
}

// LoadEvents returns a lazy iterator over every event announced within
// the span, in listing order, along with the event count the manifests
// report. The iterator yields one listing's events per page and loads
// version state on demand.
func (r *Register) LoadEvents(ctx context.Context, span Span) (xiter.Iterator[*canonical.Event], int, error) {
	spec, err := span.manifestSpec()
	if err != nil {
		return nil, 0, err
	}
	root, err := r.storage.LoadManifest(ctx, spec.Key())
	if errors.Is(err, store.ErrDoesNotExist) {
		done := xiter.IteratorFunc[*canonical.Event](func(context.Context) ([]*canonical.Event, error) {
			return nil, xiter.ErrIteratorDone
		})
		return done, 0, nil
	} else if err != nil {
		return nil, 0, err
	}

	listings, err := r.collectListingIDs(ctx, root)
	if err != nil {
		return nil, 0, err
	}

	next := 0
	iterator := xiter.IteratorFunc[*canonical.Event](func(ctx context.Context) ([]*canonical.Event, error) {
		if next >= len(listings) {
			return nil, xiter.ErrIteratorDone
		}
		listingID := listings[next]
		next++
		listing, err := r.LoadListing(ctx, listingID)
		if err != nil {
			return nil, err
		}
		events := make([]*canonical.Event, 0, len(listing.Events))
		for _, summary := range listing.Events {
			version, err := r.LoadVersion(ctx, summary.Identifier)
			if err != nil {
				return nil, err
			}
			events = append(events, summary.WithVersion(version))
		}
		return events, nil
	})
	return iterator, root.NumberOfEvents, nil
}

// collectListingIDs flattens the listing-hierarchy manifest below root
// into the ordered listing identifiers it references. Manifest entries
// are sorted by key, so the result is chronological.
func (r *Register) collectListingIDs(ctx context.Context, root *integrity.Manifest) ([]identifier.ListingIdentifier, error) {
	var ids []identifier.ListingIdentifier
	for _, entry := range root.Entries {
		spec, err := record.ParseKey(entry.Key)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrDataLoss, "stray manifest member %s: %w", entry.Key, err)
		}
		switch spec := spec.(type) {
		case record.ListingSpec:
			ids = append(ids, spec.Listing)
		case record.ListingDayManifestSpec, record.ListingMonthManifestSpec:
			child, err := r.storage.LoadManifest(ctx, entry.Key)
			if err != nil {
				return nil, err
			}
			below, err := r.collectListingIDs(ctx, child)
			if err != nil {
				return nil, err
			}
			ids = append(ids, below...)
		default:
			return nil, errdefs.Newf(errdefs.ErrDataLoss, "stray manifest member %s", entry.Key)
		}
	}
	return ids, nil
}
