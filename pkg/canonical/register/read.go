package register

import (
	"context"
	"encoding/json"
	"io"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// LoadVersion returns the stored state of one version. The result is
// the caller's to mutate.
func (r *Register) LoadVersion(ctx context.Context, versioned identifier.VersionedIdentifier) (*canonical.Version, error) {
	if cached, ok := r.versions.Load(versioned.String()); ok {
		return cached.Clone()
	}
	loaded, err, _ := r.group.Do("version:"+versioned.String(), func() (any, error) {
		key := record.VersionMetadataSpec{Versioned: versioned}.Key()
		stream, _, err := r.storage.LoadEntry(ctx, key)
		if err != nil {
			return nil, errdefs.Newf(err, "load version %s", versioned)
		}
		defer stream.Close()
		data, err := io.ReadAll(stream)
		if err != nil {
			return nil, errdefs.Newf(err, "read version %s", versioned)
		}
		version := new(canonical.Version)
		if err := json.Unmarshal(data, version); err != nil {
			return nil, errdefs.Newf(errdefs.ErrDataLoss, "decode version %s: %w", versioned, err)
		}
		r.versions.Store(versioned.String(), version)
		return version, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*canonical.Version).Clone()
}

// LoadEPrint assembles the e-print from the versions its manifest
// references.
func (r *Register) LoadEPrint(ctx context.Context, id identifier.Identifier) (*canonical.EPrint, error) {
	manifest, err := r.storage.LoadManifest(ctx, record.EPrintManifestSpec{ID: id}.Key())
	if err != nil {
		return nil, errdefs.Newf(err, "load e-print %s", id)
	}
	eprint := canonical.NewEPrint(id)
	for _, entry := range manifest.Entries {
		spec, err := record.ParseKey(entry.Key)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrDataLoss, "e-print %s: stray member %s: %w", id, entry.Key, err)
		}
		versionSpec, ok := spec.(record.VersionManifestSpec)
		if !ok {
			return nil, errdefs.Newf(errdefs.ErrDataLoss, "e-print %s: stray member %s", id, entry.Key)
		}
		version, err := r.LoadVersion(ctx, versionSpec.Versioned)
		if err != nil {
			return nil, err
		}
		if err := eprint.Add(version); err != nil {
			return nil, err
		}
	}
	return eprint, nil
}

// LoadHistory returns every event summary that touched the e-print, in
// version then arrival order.
func (r *Register) LoadHistory(ctx context.Context, id identifier.Identifier) ([]canonical.EventSummary, error) {
	eprint, err := r.LoadEPrint(ctx, id)
	if err != nil {
		return nil, err
	}
	var history []canonical.EventSummary
	for _, n := range eprint.VersionNumbers() {
		version, _ := eprint.Version(n)
		history = append(history, version.Events...)
	}
	return history, nil
}

// LoadVersionHistory returns the event summaries of one version in
// arrival order.
func (r *Register) LoadVersionHistory(ctx context.Context, versioned identifier.VersionedIdentifier) ([]canonical.EventSummary, error) {
	version, err := r.LoadVersion(ctx, versioned)
	if err != nil {
		return nil, err
	}
	return version.Events, nil
}

// LoadListing returns the listing stored for one (date, shard).
func (r *Register) LoadListing(ctx context.Context, listingID identifier.ListingIdentifier) (*canonical.Listing, error) {
	key := record.ListingSpec{Listing: listingID}.Key()
	stream, _, err := r.storage.LoadEntry(ctx, key)
	if err != nil {
		return nil, errdefs.Newf(err, "load listing %s", listingID)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, errdefs.Newf(err, "read listing %s", listingID)
	}
	listing := new(canonical.Listing)
	if err := json.Unmarshal(data, listing); err != nil {
		return nil, errdefs.Newf(errdefs.ErrDataLoss, "decode listing %s: %w", listingID, err)
	}
	return listing, nil
}

// LoadEvent rebuilds a full event from its reversible identifier: the
// summary comes from the listing, the version state from the record.
func (r *Register) LoadEvent(ctx context.Context, eventID identifier.EventIdentifier) (*canonical.Event, error) {
	listing, err := r.LoadListing(ctx, eventID.ListingID())
	if err != nil {
		return nil, err
	}
	summary, ok := listing.Find(eventID)
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrNotFound, "event %s not in listing %s", eventID, eventID.ListingID())
	}
	version, err := r.LoadVersion(ctx, eventID.Versioned())
	if err != nil {
		return nil, err
	}
	return summary.WithVersion(version), nil
}

// LoadSource opens the stored source package of a version.
func (r *Register) LoadSource(ctx context.Context, versioned identifier.VersionedIdentifier) (io.ReadSeekCloser, canonical.CanonicalFile, error) {
	version, err := r.LoadVersion(ctx, versioned)
	if err != nil {
		return nil, canonical.CanonicalFile{}, err
	}
	if version.Source.IsZero() {
		return nil, canonical.CanonicalFile{}, errdefs.Newf(errdefs.ErrNotFound, "%s has no source", versioned)
	}
	return r.loadMember(ctx, versioned, version.Source)
}

// LoadRender opens the stored canonical render of a version.
func (r *Register) LoadRender(ctx context.Context, versioned identifier.VersionedIdentifier) (io.ReadSeekCloser, canonical.CanonicalFile, error) {
	version, err := r.LoadVersion(ctx, versioned)
	if err != nil {
		return nil, canonical.CanonicalFile{}, err
	}
	if version.Render == nil || version.Render.IsZero() {
		return nil, canonical.CanonicalFile{}, errdefs.Newf(errdefs.ErrNotFound, "%s has no render", versioned)
	}
	return r.loadMember(ctx, versioned, *version.Render)
}

// LoadFormat opens one stored dissemination format of a version.
func (r *Register) LoadFormat(ctx context.Context, versioned identifier.VersionedIdentifier, contentType canonical.ContentType) (io.ReadSeekCloser, canonical.CanonicalFile, error) {
	version, err := r.LoadVersion(ctx, versioned)
	if err != nil {
		return nil, canonical.CanonicalFile{}, err
	}
	file, ok := version.Formats[contentType]
	if !ok {
		return nil, canonical.CanonicalFile{}, errdefs.Newf(errdefs.ErrNotFound, "%s has no %s format", versioned, contentType)
	}
	return r.loadMember(ctx, versioned, file)
}

// loadMember opens the bitstream a stored descriptor references and
// verifies the stored checksum against the version manifest.
func (r *Register) loadMember(ctx context.Context, versioned identifier.VersionedIdentifier, file canonical.CanonicalFile) (io.ReadSeekCloser, canonical.CanonicalFile, error) {
	key, ok := file.Ref.Key()
	if !ok {
		return nil, canonical.CanonicalFile{}, errdefs.Newf(errdefs.ErrDataLoss, "%s: member ref %s is not canonical", versioned, file.Ref)
	}
	stream, checksum, err := r.storage.LoadEntry(ctx, key)
	if err != nil {
		return nil, canonical.CanonicalFile{}, errdefs.Newf(err, "load %s", key)
	}
	manifest, err := r.storage.LoadManifest(ctx, record.VersionManifestSpec{Versioned: versioned}.Key())
	if err == nil {
		if entry, found := manifest.Entry(key); found && entry.Checksum != checksum {
			stream.Close()
			return nil, canonical.CanonicalFile{}, errdefs.Newf(integrity.ErrChecksumMismatch,
				"%s: stored %s, manifest %s", key, checksum, entry.Checksum)
		}
	}
	return stream, file, nil
}
