package record

import (
	"fmt"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
)

// VersionMetadataSpec addresses the canonical JSON blob of one version:
// e-prints/YYYY/MM/<id>/v<n>/<id>v<n>.json
type VersionMetadataSpec struct {
	Versioned identifier.VersionedIdentifier
}

// Key renders the canonical key.
func (s VersionMetadataSpec) Key() canonical.Key {
	return versionDir(s.Versioned).Child(s.MemberName())
}

// MemberName returns the metadata file name within the version.
func (s VersionMetadataSpec) MemberName() string {
	return fileStem(s.Versioned) + ".json"
}

// VersionFileSpec addresses one bitstream of a version, named by the
// canonical file that carries it:
// e-prints/YYYY/MM/<id>/v<n>/<filename>
type VersionFileSpec struct {
	Versioned identifier.VersionedIdentifier
	Filename  string
}

// Key renders the canonical key.
func (s VersionFileSpec) Key() canonical.Key {
	return versionDir(s.Versioned).Child(s.Filename)
}

// MemberName returns the file name within the version.
func (s VersionFileSpec) MemberName() string { return s.Filename }

// VersionManifestSpec addresses the manifest of one version:
// e-prints/YYYY/MM/<id>/v<n>.manifest.json
type VersionManifestSpec struct {
	Versioned identifier.VersionedIdentifier
}

// Key renders the canonical key.
func (s VersionManifestSpec) Key() canonical.Key {
	year, month := yearMonth(s.Versioned.ID())
	parts := append([]string{EPrintsRoot, year, month}, idPath(s.Versioned.ID())...)
	return canonical.MakeKey(parts...).Child(fmt.Sprintf("v%d%s", s.Versioned.Version(), manifestSuffix))
}

// MemberName returns the versioned identifier within the e-print.
func (s VersionManifestSpec) MemberName() string { return s.Versioned.String() }

// EPrintManifestSpec addresses the manifest of one e-print:
// e-prints/YYYY/MM/<id>.manifest.json
type EPrintManifestSpec struct {
	ID identifier.Identifier
}

// Key renders the canonical key.
func (s EPrintManifestSpec) Key() canonical.Key {
	year, month := yearMonth(s.ID)
	parts := append([]string{EPrintsRoot, year, month}, idPath(s.ID)...)
	key := canonical.MakeKey(parts...)
	return canonical.Key(key.String() + manifestSuffix)
}

// MemberName returns the bare identifier within the day.
func (s EPrintManifestSpec) MemberName() string { return s.ID.String() }

// DayManifestSpec addresses the manifest of one announcement day within
// the e-print hierarchy:
// e-prints/YYYY/MM/YYYY-MM-DD.manifest.json
type DayManifestSpec struct {
	Date identifier.Date
}

// Key renders the canonical key.
func (s DayManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(
		EPrintsRoot,
		fmt.Sprintf("%04d", s.Date.Year),
		fmt.Sprintf("%02d", s.Date.Month),
		s.Date.String()+manifestSuffix,
	)
}

// MemberName returns the date within the month.
func (s DayManifestSpec) MemberName() string { return s.Date.String() }

// MonthManifestSpec addresses the manifest of one month:
// e-prints/YYYY/YYYY-MM.manifest.json
type MonthManifestSpec struct {
	Year  int
	Month time.Month
}

// Key renders the canonical key.
func (s MonthManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(
		EPrintsRoot,
		fmt.Sprintf("%04d", s.Year),
		s.MemberName()+manifestSuffix,
	)
}

// MemberName returns the "YYYY-MM" form within the year.
func (s MonthManifestSpec) MemberName() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}

// YearManifestSpec addresses the manifest of one year:
// e-prints/YYYY.manifest.json
type YearManifestSpec struct {
	Year int
}

// Key renders the canonical key.
func (s YearManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(EPrintsRoot, s.MemberName()+manifestSuffix)
}

// MemberName returns the "YYYY" form within the e-print hierarchy.
func (s YearManifestSpec) MemberName() string {
	return fmt.Sprintf("%04d", s.Year)
}

// EPrintsManifestSpec addresses the manifest covering the whole e-print
// hierarchy: e-prints.manifest.json
type EPrintsManifestSpec struct{}

// Key renders the canonical key.
func (EPrintsManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(EPrintsRoot + manifestSuffix)
}

// MemberName returns the e-print hierarchy name within the global
// manifest.
func (EPrintsManifestSpec) MemberName() string { return EPrintsRoot }

// ListingSpec addresses one listing file:
// announcement/YYYY/MM/DD/YYYY-MM-DD-<shard>.json
type ListingSpec struct {
	Listing identifier.ListingIdentifier
}

// Key renders the canonical key.
func (s ListingSpec) Key() canonical.Key {
	date := s.Listing.Date()
	return canonical.MakeKey(
		ListingsRoot,
		fmt.Sprintf("%04d", date.Year),
		fmt.Sprintf("%02d", date.Month),
		fmt.Sprintf("%02d", date.Day),
		s.Listing.String()+".json",
	)
}

// MemberName returns the listing identifier within the day.
func (s ListingSpec) MemberName() string { return s.Listing.String() }

// ListingDayManifestSpec addresses the manifest of one announcement day
// within the listing hierarchy:
// announcement/YYYY/MM/YYYY-MM-DD.manifest.json
type ListingDayManifestSpec struct {
	Date identifier.Date
}

// Key renders the canonical key.
func (s ListingDayManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(
		ListingsRoot,
		fmt.Sprintf("%04d", s.Date.Year),
		fmt.Sprintf("%02d", s.Date.Month),
		s.Date.String()+manifestSuffix,
	)
}

// MemberName returns the date within the month.
func (s ListingDayManifestSpec) MemberName() string { return s.Date.String() }

// ListingMonthManifestSpec addresses the manifest of one listing month:
// announcement/YYYY/YYYY-MM.manifest.json
type ListingMonthManifestSpec struct {
	Year  int
	Month time.Month
}

// Key renders the canonical key.
func (s ListingMonthManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(
		ListingsRoot,
		fmt.Sprintf("%04d", s.Year),
		s.MemberName()+manifestSuffix,
	)
}

// MemberName returns the "YYYY-MM" form within the year.
func (s ListingMonthManifestSpec) MemberName() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}

// ListingYearManifestSpec addresses the manifest of one listing year:
// announcement/YYYY.manifest.json
type ListingYearManifestSpec struct {
	Year int
}

// Key renders the canonical key.
func (s ListingYearManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(ListingsRoot, s.MemberName()+manifestSuffix)
}

// MemberName returns the "YYYY" form within the listing hierarchy.
func (s ListingYearManifestSpec) MemberName() string {
	return fmt.Sprintf("%04d", s.Year)
}

// ListingsManifestSpec addresses the manifest covering the whole
// announcement hierarchy: announcement.manifest.json
type ListingsManifestSpec struct{}

// Key renders the canonical key.
func (ListingsManifestSpec) Key() canonical.Key {
	return canonical.MakeKey(ListingsRoot + manifestSuffix)
}

// MemberName returns the listing hierarchy name within the global
// manifest.
func (ListingsManifestSpec) MemberName() string { return ListingsRoot }

// GlobalManifestSpec addresses the root manifest covering the entire
// record: global.manifest.json
type GlobalManifestSpec struct{}

// Key renders the canonical key.
func (GlobalManifestSpec) Key() canonical.Key {
	return canonical.MakeKey("global" + manifestSuffix)
}

// MemberName returns the record root name.
func (GlobalManifestSpec) MemberName() string { return "global" }

// versionDir returns the directory key of a version:
// e-prints/YYYY/MM/<id>/v<n>
func versionDir(v identifier.VersionedIdentifier) canonical.Key {
	year, month := yearMonth(v.ID())
	parts := append([]string{EPrintsRoot, year, month}, idPath(v.ID())...)
	parts = append(parts, fmt.Sprintf("v%d", v.Version()))
	return canonical.MakeKey(parts...)
}
