package register

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// AddEvents applies events in order. Each event writes its bitstreams
// and listing before its manifest chain is staged; all staged manifests
// flush together when the batch completes. A failing event aborts the
// batch: the manifests of the events already applied still flush, so
// successfully written siblings remain referenced and valid.
func (r *Register) AddEvents(ctx context.Context, events ...*canonical.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := newManifestBatch(r.storage)
	for i, event := range events {
		if err := r.applyEvent(ctx, batch, event); err != nil {
			err = errdefs.Newf(err, "apply event %d of %d", i+1, len(events))
			if flushErr := batch.flush(ctx); flushErr != nil {
				err = errors.Join(err, flushErr)
			}
			return err
		}
	}
	return batch.flush(ctx)
}

// applyEvent dispatches one event. Events that announce a version
// create it; every other type mutates an existing version in place.
// Either way the event lands in its listing and the manifest chains of
// both hierarchies are staged.
func (r *Register) applyEvent(ctx context.Context, batch *manifestBatch, event *canonical.Event) error {
	if event == nil {
		return errdefs.Newf(canonical.ErrInvalidEvent, "nil event")
	}
	if err := event.Validate(); err != nil {
		return err
	}

	var (
		version         *canonical.Version
		versionManifest *integrity.Manifest
		err             error
	)
	if event.EventType.IsNewVersion() {
		version, versionManifest, err = r.createVersion(ctx, event)
	} else {
		version, versionManifest, err = r.updateVersion(ctx, event)
	}
	if err != nil {
		return err
	}

	summary, err := event.Summary()
	if err != nil {
		return err
	}
	listingID, err := event.ListingID()
	if err != nil {
		return err
	}
	listingEntry, listing, err := r.appendToListing(ctx, listingID, summary)
	if err != nil {
		return err
	}

	if err := r.stageEPrintChain(ctx, batch, version, versionManifest); err != nil {
		return err
	}
	if err := r.stageListingChain(ctx, batch, listingID, listingEntry, listing); err != nil {
		return err
	}

	r.versions.Store(version.Identifier.String(), version)
	xlog.C(ctx).Infof("register: applied %s %s into %s", event.EventType, event.Identifier, listingID)
	return nil
}

// appendToListing loads the listing, creating it on first use, appends
// the summary and stores the listing file. It returns the stored entry
// so the caller can stage the listing manifest chain.
func (r *Register) appendToListing(ctx context.Context, listingID identifier.ListingIdentifier, summary canonical.EventSummary) (*store.StorableEntry, *canonical.Listing, error) {
	listing, err := r.LoadListing(ctx, listingID)
	if errors.Is(err, store.ErrDoesNotExist) {
		listing = canonical.NewListing(listingID)
	} else if err != nil {
		return nil, nil, err
	}
	if _, replayed := listing.Find(summary.EventID); !replayed {
		listing.Append(summary)
	}

	data, err := canonical.CanonicalBytes(listing)
	if err != nil {
		return nil, nil, errdefs.Newf(err, "encode listing %s", listingID)
	}
	key := record.ListingSpec{Listing: listingID}.Key()
	entry := &store.StorableEntry{
		Key: key,
		File: canonical.CanonicalFile{
			Modified:    summary.EventDate,
			SizeBytes:   int64(len(data)),
			ContentType: canonical.ContentTypeJSON,
			Filename:    listingID.String() + ".json",
			Ref:         key.URI(),
		},
		Content: bytes.NewReader(data),
	}
	if err := r.storage.StoreEntry(ctx, entry); err != nil {
		return nil, nil, errdefs.Newf(err, "store listing %s", listingID)
	}
	return entry, listing, nil
}

// stageEPrintChain stages the version manifest and every ancestor in
// the e-print hierarchy up to the global manifest. The day a version
// rolls up under is the first announcement date of its e-print.
func (r *Register) stageEPrintChain(ctx context.Context, batch *manifestBatch, version *canonical.Version, versionManifest *integrity.Manifest) error {
	versioned := version.Identifier
	id := versioned.ID()
	day := version.AnnouncedDateFirst

	versionKey := record.VersionManifestSpec{Versioned: versioned}.Key()
	batch.put(versionKey, versionManifest)

	versionEntry := versionManifest.EntryFor(versionKey)
	versionEntry.NumberOfVersions = 1
	versionEntry.NumberOfEvents = len(version.Events)
	versionEntry.NumberOfEventsByType = countByType(version.Events)

	chain := []record.KeySpec{
		record.EPrintManifestSpec{ID: id},
		record.DayManifestSpec{Date: day},
		record.MonthManifestSpec{Year: day.Year, Month: day.Month},
		record.YearManifestSpec{Year: day.Year},
		record.EPrintsManifestSpec{},
		record.GlobalManifestSpec{},
	}
	return stageChain(ctx, batch, versionEntry, chain)
}

// stageListingChain stages the listing file entry and every ancestor in
// the announcement hierarchy up to the global manifest.
func (r *Register) stageListingChain(ctx context.Context, batch *manifestBatch, listingID identifier.ListingIdentifier, stored *store.StorableEntry, listing *canonical.Listing) error {
	date := listingID.Date()
	listingEntry := integrity.ManifestEntry{
		Key:                  stored.Key,
		Checksum:             stored.Checksum,
		NumberOfEvents:       len(listing.Events),
		NumberOfEventsByType: listing.CountByType(),
		SizeBytes:            stored.File.SizeBytes,
		MimeType:             stored.File.MimeType(),
	}

	chain := []record.KeySpec{
		record.ListingDayManifestSpec{Date: date},
		record.ListingMonthManifestSpec{Year: date.Year, Month: date.Month},
		record.ListingYearManifestSpec{Year: date.Year},
		record.ListingsManifestSpec{},
		record.GlobalManifestSpec{},
	}
	return stageChain(ctx, batch, listingEntry, chain)
}

// stageChain upserts entry into the first spec's manifest, then walks
// upward staging each manifest's rollup entry into its parent.
func stageChain(ctx context.Context, batch *manifestBatch, entry integrity.ManifestEntry, chain []record.KeySpec) error {
	for _, spec := range chain {
		key := spec.Key()
		m, err := batch.upsert(ctx, key, entry)
		if err != nil {
			return err
		}
		entry = m.EntryFor(key)
	}
	return nil
}

func countByType(events []canonical.EventSummary) map[canonical.EventType]int {
	counts := make(map[canonical.EventType]int)
	for _, summary := range events {
		counts[summary.EventType]++
	}
	return counts
}

// eventUpdatedAt normalizes the mutation instant recorded on a version.
func eventUpdatedAt(event *canonical.Event) time.Time {
	return event.EventDate.UTC()
}
