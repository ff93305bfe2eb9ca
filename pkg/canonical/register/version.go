package register

import (
	"bytes"
	"context"
	"errors"
	"path"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// createVersion materializes the version a new, replace or withdraw
// event announces. The version must not exist yet. Every file the event
// references is dereferenced, stored under its canonical key, and its
// ref rewritten in place; the version manifest collects the stored
// entries.
func (r *Register) createVersion(ctx context.Context, event *canonical.Event) (*canonical.Version, *integrity.Manifest, error) {
	versioned := event.Identifier
	manifestKey := record.VersionManifestSpec{Versioned: versioned}.Key()
	_, err := r.storage.LoadManifest(ctx, manifestKey)
	switch {
	case err == nil:
		return nil, nil, errdefs.Newf(ErrConsistency, "%s %s: version already exists", event.EventType, versioned)
	case !errors.Is(err, store.ErrDoesNotExist):
		return nil, nil, err
	}

	version, err := event.Version.Clone()
	if err != nil {
		return nil, nil, err
	}
	version.IsAnnounced = true
	if event.EventType == canonical.EventTypeWithdraw {
		version.IsWithdrawn = true
	}
	summary, err := event.Summary()
	if err != nil {
		return nil, nil, err
	}
	appendEventSummary(version, summary)
	version.UpdatedDate = eventUpdatedAt(event)
	if err := version.Validate(); err != nil {
		return nil, nil, err
	}

	manifest := integrity.NewManifest()
	var fileErr error
	version.Files(func(_ canonical.ContentType, file *canonical.CanonicalFile) bool {
		fileErr = r.storeVersionFile(ctx, versioned, file, manifest)
		return fileErr == nil
	})
	if fileErr != nil {
		return nil, nil, fileErr
	}

	if err := r.storeVersionMetadata(ctx, version, manifest); err != nil {
		return nil, nil, err
	}
	return version, manifest, nil
}

// updateVersion applies an in-place mutation event to an existing
// version. The version must exist. Metadata-only events may not carry
// bitstream content; content-bearing events merge file members by the
// add / replace / delete rules.
func (r *Register) updateVersion(ctx context.Context, event *canonical.Event) (*canonical.Version, *integrity.Manifest, error) {
	versioned := event.Identifier
	current, err := r.LoadVersion(ctx, versioned)
	if errors.Is(err, store.ErrDoesNotExist) {
		return nil, nil, errdefs.Newf(ErrConsistency, "%s %s: version does not exist", event.EventType, versioned)
	} else if err != nil {
		return nil, nil, err
	}
	manifestKey := record.VersionManifestSpec{Versioned: versioned}.Key()
	manifest, err := r.storage.LoadManifest(ctx, manifestKey)
	if err != nil {
		return nil, nil, err
	}

	incoming := event.Version
	if event.EventType.IsMetadataOnly() {
		if err := rejectContent(versioned, incoming); err != nil {
			return nil, nil, err
		}
	}

	updated, err := current.Clone()
	if err != nil {
		return nil, nil, err
	}
	mergeMetadata(updated, event)
	if !event.EventType.IsMetadataOnly() {
		if err := r.mergeFiles(ctx, versioned, updated, incoming, manifest); err != nil {
			return nil, nil, err
		}
	}

	summary, err := event.Summary()
	if err != nil {
		return nil, nil, err
	}
	appendEventSummary(updated, summary)
	updated.UpdatedDate = eventUpdatedAt(event)
	if err := updated.Validate(); err != nil {
		return nil, nil, err
	}

	if err := r.storeVersionMetadata(ctx, updated, manifest); err != nil {
		return nil, nil, err
	}
	return updated, manifest, nil
}

// mergeMetadata folds the event's descriptive changes into the version.
// Cross-list events add their categories; journal reference events copy
// the publication fields; the remaining mutation types replace the
// metadata wholesale when the event carries any.
func mergeMetadata(version *canonical.Version, event *canonical.Event) {
	incoming := event.Version
	switch event.EventType {
	case canonical.EventTypeCross:
		for _, category := range event.Categories {
			version.Metadata.AddSecondary(category)
		}
	case canonical.EventTypeJRef:
		if incoming.Metadata.JournalRef != "" {
			version.Metadata.JournalRef = incoming.Metadata.JournalRef
		}
		if incoming.Metadata.DOI != "" {
			version.Metadata.DOI = incoming.Metadata.DOI
		}
	default:
		if !incoming.Metadata.IsZero() {
			version.Metadata = incoming.Metadata
		}
	}
}

// mergeFiles reconciles the stored file members with the incoming
// state: members with new content are stored and replaced, members
// present only locally are deleted, and members whose incoming
// descriptor carries no content are left untouched.
func (r *Register) mergeFiles(ctx context.Context, versioned identifier.VersionedIdentifier, version, incoming *canonical.Version, manifest *integrity.Manifest) error {
	if !incoming.Source.IsZero() && hasNewContent(versioned, incoming.Source) {
		previous := version.Source
		version.Source = incoming.Source
		if err := r.storeVersionFile(ctx, versioned, &version.Source, manifest); err != nil {
			return err
		}
		removeSupersededMember(versioned, previous, version.Source, manifest)
	}

	switch {
	case incoming.Render == nil:
		if version.Render != nil {
			manifest.Remove(memberKey(versioned, *version.Render))
			version.Render = nil
		}
	case hasNewContent(versioned, *incoming.Render):
		render := *incoming.Render
		if err := r.storeVersionFile(ctx, versioned, &render, manifest); err != nil {
			return err
		}
		if version.Render != nil {
			removeSupersededMember(versioned, *version.Render, render, manifest)
		}
		version.Render = &render
	}

	for contentType, file := range incoming.Formats {
		if !hasNewContent(versioned, file) {
			continue
		}
		if err := r.storeVersionFile(ctx, versioned, &file, manifest); err != nil {
			return err
		}
		if previous, stored := version.Formats[contentType]; stored {
			removeSupersededMember(versioned, previous, file, manifest)
		}
		if version.Formats == nil {
			version.Formats = map[canonical.ContentType]canonical.CanonicalFile{}
		}
		version.Formats[contentType] = file
	}
	for contentType, file := range version.Formats {
		if _, kept := incoming.Formats[contentType]; !kept {
			manifest.Remove(memberKey(versioned, file))
			delete(version.Formats, contentType)
		}
	}
	return nil
}

// removeSupersededMember drops the prior member entry when a replaced
// file landed under a different canonical filename.
func removeSupersededMember(versioned identifier.VersionedIdentifier, previous, current canonical.CanonicalFile, manifest *integrity.Manifest) {
	if previous.IsZero() {
		return
	}
	old := memberKey(versioned, previous)
	if old != memberKey(versioned, current) {
		manifest.Remove(old)
	}
}

// appendEventSummary records the summary on the version unless it is
// already there. Replicated events arrive with their own summary
// embedded in the version state, so replay must not double-append.
func appendEventSummary(version *canonical.Version, summary canonical.EventSummary) {
	for _, existing := range version.Events {
		if existing.EventID == summary.EventID {
			return
		}
	}
	version.Events = append(version.Events, summary)
}

// rejectContent fails when a partial version state carries bitstream
// content. Metadata events may reference existing members by their
// canonical keys but never introduce bytes.
func rejectContent(versioned identifier.VersionedIdentifier, incoming *canonical.Version) error {
	var offender string
	incoming.Files(func(_ canonical.ContentType, file *canonical.CanonicalFile) bool {
		if hasNewContent(versioned, *file) {
			offender = file.Ref.String()
			return false
		}
		return true
	})
	if offender != "" {
		return errdefs.Newf(canonical.ErrInvalidEvent, "%s: metadata event carries content %s", versioned, offender)
	}
	return nil
}

// hasNewContent reports whether the descriptor references bytes that
// are not already stored as this version's member.
func hasNewContent(versioned identifier.VersionedIdentifier, file canonical.CanonicalFile) bool {
	if file.Ref.IsZero() {
		return false
	}
	return file.Ref != memberKey(versioned, file).URI()
}

// memberKey renders the canonical key a file member of the version
// stores under.
func memberKey(versioned identifier.VersionedIdentifier, file canonical.CanonicalFile) canonical.Key {
	return record.VersionFileSpec{Versioned: versioned, Filename: memberName(file)}.Key()
}

// memberName resolves the stored file name, falling back to the last
// path element of the ref.
func memberName(file canonical.CanonicalFile) string {
	if file.Filename != "" {
		return file.Filename
	}
	return path.Base(file.Ref.Path())
}

// storeVersionFile dereferences the file's ref, stores the bytes under
// the member's canonical key, rewrites the descriptor in place and
// records the stored entry in the version manifest.
func (r *Register) storeVersionFile(ctx context.Context, versioned identifier.VersionedIdentifier, file *canonical.CanonicalFile, manifest *integrity.Manifest) error {
	name := memberName(*file)
	if name == "" || name == "." || name == "/" {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "%s: file member has no name", versioned)
	}
	key := record.VersionFileSpec{Versioned: versioned, Filename: name}.Key()

	content, err := r.resolve(ctx, file.Ref)
	if err != nil {
		return errdefs.Newf(err, "%s: dereference %s", versioned, file.Ref)
	}
	defer content.Close()

	entry := &store.StorableEntry{Key: key, File: *file, Content: content}
	entry.File.Filename = name
	if err := r.storage.StoreEntry(ctx, entry); err != nil {
		return errdefs.Newf(err, "%s: store %s", versioned, key)
	}

	*file = entry.File
	file.Ref = key.URI()
	manifest.UpdateOrExtend(integrity.ManifestEntry{
		Key:       key,
		Checksum:  entry.Checksum,
		SizeBytes: entry.File.SizeBytes,
		MimeType:  entry.File.MimeType(),
	})
	return nil
}

// storeVersionMetadata stores the version's canonical JSON blob and
// records it in the version manifest.
func (r *Register) storeVersionMetadata(ctx context.Context, version *canonical.Version, manifest *integrity.Manifest) error {
	data, err := canonical.CanonicalBytes(version)
	if err != nil {
		return errdefs.Newf(err, "encode version %s", version.Identifier)
	}
	spec := record.VersionMetadataSpec{Versioned: version.Identifier}
	key := spec.Key()
	entry := &store.StorableEntry{
		Key: key,
		File: canonical.CanonicalFile{
			Modified:    version.UpdatedDate,
			SizeBytes:   int64(len(data)),
			ContentType: canonical.ContentTypeJSON,
			Filename:    spec.MemberName(),
			Ref:         key.URI(),
		},
		Content: bytes.NewReader(data),
	}
	if err := r.storage.StoreEntry(ctx, entry); err != nil {
		return errdefs.Newf(err, "store version %s", version.Identifier)
	}
	manifest.UpdateOrExtend(integrity.ManifestEntry{
		Key:       key,
		Checksum:  entry.Checksum,
		SizeBytes: entry.File.SizeBytes,
		MimeType:  entry.File.MimeType(),
	})
	return nil
}
