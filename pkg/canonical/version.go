package canonical

import (
	"encoding/json"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrInvalidVersion is returned when a version violates a structural
// invariant.
var ErrInvalidVersion = errdefs.Newf(errdefs.ErrInvalidParameter, "invalid version")

// VersionReference points at an earlier version of the same e-print
// without embedding its state.
type VersionReference struct {
	// Identifier is the versioned identifier of the earlier version.
	Identifier identifier.VersionedIdentifier `json:"identifier"`
	// SubmittedDate is the submission instant of the earlier version.
	SubmittedDate time.Time `json:"submitted_date"`
	// AnnouncedDate is the announcement date of the earlier version.
	AnnouncedDate identifier.Date `json:"announced_date"`
	// SourceType is the legacy source code of the earlier version.
	SourceType SourceType `json:"source_type,omitempty"`
}

// Version is one submission-level snapshot of an e-print, the unit an
// announcement creates or replaces.
type Version struct {
	// Identifier is the versioned identifier of this snapshot.
	Identifier identifier.VersionedIdentifier `json:"identifier"`
	// AnnouncedDate is the date this version was announced.
	AnnouncedDate identifier.Date `json:"announced_date"`
	// AnnouncedDateFirst is the date the first version of the e-print was
	// announced. Never after AnnouncedDate; equal for the first version.
	AnnouncedDateFirst identifier.Date `json:"announced_date_first"`
	// SubmittedDate is the instant the submitter finalized this version.
	SubmittedDate time.Time `json:"submitted_date"`
	// UpdatedDate is the instant of the last mutation of this record.
	UpdatedDate time.Time `json:"updated_date,omitempty"`
	// Metadata is the submitter supplied descriptive record.
	Metadata Metadata `json:"metadata"`
	// Submitter identifies who submitted this version, when known.
	Submitter *Person `json:"submitter,omitempty"`
	// Proxy is the proxy submitter line, when the submission came through
	// a proxy.
	Proxy string `json:"proxy,omitempty"`
	// IsAnnounced marks versions that have been announced. Versions enter
	// the record through announcement events, so this is true for every
	// persisted version.
	IsAnnounced bool `json:"is_announced"`
	// IsWithdrawn marks withdrawal versions.
	IsWithdrawn bool `json:"is_withdrawn"`
	// IsLegacy marks versions migrated from the classic record.
	IsLegacy bool `json:"is_legacy"`
	// ReasonForWithdrawal carries the submitter's stated reason on a
	// withdrawal version.
	ReasonForWithdrawal string `json:"reason_for_withdrawal,omitempty"`
	// SourceType is the legacy code describing the source package kind.
	SourceType SourceType `json:"source_type,omitempty"`
	// Source describes the submission source package.
	Source CanonicalFile `json:"source"`
	// Render describes the canonical rendered form, usually a PDF.
	Render *CanonicalFile `json:"render,omitempty"`
	// Formats describes additional dissemination formats keyed by
	// content type.
	Formats map[ContentType]CanonicalFile `json:"formats,omitempty"`
	// Events summarizes every announcement event that touched this
	// version, in arrival order.
	Events []EventSummary `json:"events,omitempty"`
	// PreviousVersions references the earlier versions of the e-print at
	// the time this version was announced.
	PreviousVersions []VersionReference `json:"previous_versions,omitempty"`
}

// Validate checks the structural invariants of the version.
func (v *Version) Validate() error {
	if v.Identifier.IsZero() {
		return errdefs.Newf(ErrInvalidVersion, "missing identifier")
	}
	if v.AnnouncedDate.IsZero() || v.AnnouncedDateFirst.IsZero() {
		return errdefs.Newf(ErrInvalidVersion, "%s: missing announced date", v.Identifier)
	}
	if v.AnnouncedDateFirst.Compare(v.AnnouncedDate) > 0 {
		return errdefs.Newf(ErrInvalidVersion, "%s: first announced %s after announced %s",
			v.Identifier, v.AnnouncedDateFirst, v.AnnouncedDate)
	}
	if v.Identifier.Version() == 1 && v.AnnouncedDateFirst != v.AnnouncedDate {
		return errdefs.Newf(ErrInvalidVersion, "%s: first version announced dates differ", v.Identifier)
	}
	if v.Source.IsZero() && !v.IsWithdrawn {
		return errdefs.Newf(ErrInvalidVersion, "%s: missing source descriptor", v.Identifier)
	}
	return nil
}

// Clone returns a deep copy of the version. Versions round-trip their
// JSON form losslessly, so the copy is taken through it; this keeps the
// identifier types' internal state intact.
func (v *Version) Clone() (*Version, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errdefs.Newf(ErrInvalidVersion, "%s: clone: %w", v.Identifier, err)
	}
	clone := new(Version)
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, errdefs.Newf(ErrInvalidVersion, "%s: clone: %w", v.Identifier, err)
	}
	return clone, nil
}

// Reference returns a VersionReference pointing at this version.
func (v *Version) Reference() VersionReference {
	return VersionReference{
		Identifier:    v.Identifier,
		SubmittedDate: v.SubmittedDate,
		AnnouncedDate: v.AnnouncedDate,
		SourceType:    v.SourceType,
	}
}

// Files iterates the bitstream descriptors of the version: the source,
// the render when present, then the additional formats in content type
// order. The yielded pointers alias the version so that callers can
// rewrite refs in place.
func (v *Version) Files(yield func(ContentType, *CanonicalFile) bool) {
	if !v.Source.IsZero() {
		if !yield(v.Source.ContentType, &v.Source) {
			return
		}
	}
	if v.Render != nil && !v.Render.IsZero() {
		if !yield(v.Render.ContentType, v.Render) {
			return
		}
	}
	for _, ct := range sortedFormatKeys(v.Formats) {
		file := v.Formats[ct]
		if !yield(ct, &file) {
			return
		}
		v.Formats[ct] = file
	}
}
