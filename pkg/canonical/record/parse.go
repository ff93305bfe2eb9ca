package record

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrBadKey is returned when a key does not belong to the record layout.
var ErrBadKey = errdefs.Newf(errdefs.ErrInvalidParameter, "bad record key")

var (
	yearSegment            = regexp.MustCompile(`^\d{4}$`)
	monthSegment           = regexp.MustCompile(`^\d{2}$`)
	daySegment             = regexp.MustCompile(`^\d{2}$`)
	dateName               = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	monthName              = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	versionSegment         = regexp.MustCompile(`^v(\d+)$`)
	versionManifestSegment = regexp.MustCompile(`^v(\d+)\.manifest\.json$`)
)

// ParseKey maps a canonical key back to the typed spec that renders it.
// It is the exact inverse of KeySpec.Key for every spec in the layout.
func ParseKey(key canonical.Key) (KeySpec, error) {
	if key.IsZero() {
		return nil, errdefs.Newf(ErrBadKey, "empty key")
	}
	segments := strings.Split(key.Path(), "/")
	if len(segments) == 1 {
		switch segments[0] {
		case "global" + manifestSuffix:
			return GlobalManifestSpec{}, nil
		case EPrintsRoot + manifestSuffix:
			return EPrintsManifestSpec{}, nil
		case ListingsRoot + manifestSuffix:
			return ListingsManifestSpec{}, nil
		}
		return nil, errdefs.Newf(ErrBadKey, "%s: unknown top-level key", key)
	}
	switch segments[0] {
	case EPrintsRoot:
		return parseEPrintsKey(key, segments[1:])
	case ListingsRoot:
		return parseListingsKey(key, segments[1:])
	}
	return nil, errdefs.Newf(ErrBadKey, "%s: unknown hierarchy %q", key, segments[0])
}

// parseEPrintsKey parses the segments after the "e-prints" root.
func parseEPrintsKey(key canonical.Key, segments []string) (KeySpec, error) {
	switch len(segments) {
	case 1:
		// YYYY.manifest.json
		year, ok := cutManifestName(segments[0], yearSegment)
		if !ok {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a year manifest", key)
		}
		return YearManifestSpec{Year: atoi(year)}, nil
	case 2:
		// YYYY/YYYY-MM.manifest.json
		name, ok := cutManifestName(segments[1], monthName)
		if !ok || !yearSegment.MatchString(segments[0]) {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a month manifest", key)
		}
		m := monthName.FindStringSubmatch(name)
		if m[1] != segments[0] {
			return nil, errdefs.Newf(ErrBadKey, "%s: year mismatch", key)
		}
		return MonthManifestSpec{Year: atoi(m[1]), Month: time.Month(atoi(m[2]))}, nil
	case 3:
		// YYYY/MM/YYYY-MM-DD.manifest.json or YYYY/MM/<new-id>.manifest.json
		if !yearSegment.MatchString(segments[0]) || !monthSegment.MatchString(segments[1]) {
			return nil, errdefs.Newf(ErrBadKey, "%s: bad year or month segment", key)
		}
		name, ok := strings.CutSuffix(segments[2], manifestSuffix)
		if !ok {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a manifest key", key)
		}
		if dateName.MatchString(name) {
			date, err := identifier.ParseDate(name)
			if err != nil {
				return nil, errdefs.NewE(ErrBadKey, err)
			}
			return DayManifestSpec{Date: date}, nil
		}
		return eprintManifestSpec(key, segments[:2], name)
	case 4:
		// YYYY/MM/<new-id>/v<n>.manifest.json
		// or YYYY/MM/<category>/<numeric>.manifest.json
		if m := versionManifestSegment.FindStringSubmatch(segments[3]); m != nil {
			return versionManifestSpec(key, segments[:2], segments[2], atoi(m[1]))
		}
		name, ok := strings.CutSuffix(segments[3], manifestSuffix)
		if !ok {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a manifest key", key)
		}
		return eprintManifestSpec(key, segments[:2], segments[2]+"/"+name)
	case 5:
		// YYYY/MM/<new-id>/v<n>/<filename>
		// or YYYY/MM/<category>/<numeric>/v<n>.manifest.json
		if m := versionSegment.FindStringSubmatch(segments[3]); m != nil {
			return versionFileSpec(key, segments[:2], segments[2], atoi(m[1]), segments[4])
		}
		if m := versionManifestSegment.FindStringSubmatch(segments[4]); m != nil {
			return versionManifestSpec(key, segments[:2], segments[2]+"/"+segments[3], atoi(m[1]))
		}
		return nil, errdefs.Newf(ErrBadKey, "%s: expected a version key", key)
	case 6:
		// YYYY/MM/<category>/<numeric>/v<n>/<filename>
		m := versionSegment.FindStringSubmatch(segments[4])
		if m == nil {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a version directory", key)
		}
		return versionFileSpec(key, segments[:2], segments[2]+"/"+segments[3], atoi(m[1]), segments[5])
	}
	return nil, errdefs.Newf(ErrBadKey, "%s: does not match the e-print layout", key)
}

// parseListingsKey parses the segments after the "announcement" root.
func parseListingsKey(key canonical.Key, segments []string) (KeySpec, error) {
	switch len(segments) {
	case 1:
		year, ok := cutManifestName(segments[0], yearSegment)
		if !ok {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a listing year manifest", key)
		}
		return ListingYearManifestSpec{Year: atoi(year)}, nil
	case 2:
		name, ok := cutManifestName(segments[1], monthName)
		if !ok || !yearSegment.MatchString(segments[0]) {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a listing month manifest", key)
		}
		m := monthName.FindStringSubmatch(name)
		if m[1] != segments[0] {
			return nil, errdefs.Newf(ErrBadKey, "%s: year mismatch", key)
		}
		return ListingMonthManifestSpec{Year: atoi(m[1]), Month: time.Month(atoi(m[2]))}, nil
	case 3:
		name, ok := cutManifestName(segments[2], dateName)
		if !ok || !yearSegment.MatchString(segments[0]) || !monthSegment.MatchString(segments[1]) {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a listing day manifest", key)
		}
		date, err := identifier.ParseDate(name)
		if err != nil {
			return nil, errdefs.NewE(ErrBadKey, err)
		}
		return ListingDayManifestSpec{Date: date}, nil
	case 4:
		// YYYY/MM/DD/YYYY-MM-DD-<shard>.json
		if !yearSegment.MatchString(segments[0]) || !monthSegment.MatchString(segments[1]) || !daySegment.MatchString(segments[2]) {
			return nil, errdefs.Newf(ErrBadKey, "%s: bad listing date segments", key)
		}
		name, ok := strings.CutSuffix(segments[3], ".json")
		if !ok {
			return nil, errdefs.Newf(ErrBadKey, "%s: expected a listing file", key)
		}
		listingID, err := identifier.ParseListing(name)
		if err != nil {
			return nil, errdefs.NewE(ErrBadKey, err)
		}
		spec := ListingSpec{Listing: listingID}
		if spec.Key() != key {
			return nil, errdefs.Newf(ErrBadKey, "%s: listing date does not match its directory", key)
		}
		return spec, nil
	}
	return nil, errdefs.Newf(ErrBadKey, "%s: does not match the announcement layout", key)
}

// eprintManifestSpec builds an EPrintManifestSpec and checks that the
// identifier agrees with its directory.
func eprintManifestSpec(key canonical.Key, yearMonthSegments []string, idValue string) (KeySpec, error) {
	id, err := identifier.Parse(idValue)
	if err != nil {
		return nil, errdefs.NewE(ErrBadKey, err)
	}
	spec := EPrintManifestSpec{ID: id}
	if spec.Key() != key {
		return nil, errdefs.Newf(ErrBadKey, "%s: identifier %s does not match its directory %s/%s",
			key, id, yearMonthSegments[0], yearMonthSegments[1])
	}
	return spec, nil
}

// versionManifestSpec builds a VersionManifestSpec and checks that the
// rendered key reproduces the input.
func versionManifestSpec(key canonical.Key, yearMonthSegments []string, idValue string, version int) (KeySpec, error) {
	versioned, err := parseVersioned(idValue, version)
	if err != nil {
		return nil, err
	}
	spec := VersionManifestSpec{Versioned: versioned}
	if spec.Key() != key {
		return nil, errdefs.Newf(ErrBadKey, "%s: identifier %s does not match its directory %s/%s",
			key, versioned, yearMonthSegments[0], yearMonthSegments[1])
	}
	return spec, nil
}

// versionFileSpec builds a VersionMetadataSpec or VersionFileSpec
// depending on the file name.
func versionFileSpec(key canonical.Key, yearMonthSegments []string, idValue string, version int, filename string) (KeySpec, error) {
	versioned, err := parseVersioned(idValue, version)
	if err != nil {
		return nil, err
	}
	var spec KeySpec
	if filename == fileStem(versioned)+".json" {
		spec = VersionMetadataSpec{Versioned: versioned}
	} else {
		spec = VersionFileSpec{Versioned: versioned, Filename: filename}
	}
	if spec.Key() != key {
		return nil, errdefs.Newf(ErrBadKey, "%s: identifier %s does not match its directory %s/%s",
			key, versioned, yearMonthSegments[0], yearMonthSegments[1])
	}
	return spec, nil
}

func parseVersioned(idValue string, version int) (identifier.VersionedIdentifier, error) {
	id, err := identifier.Parse(idValue)
	if err != nil {
		return identifier.VersionedIdentifier{}, errdefs.NewE(ErrBadKey, err)
	}
	versioned, err := identifier.NewVersioned(id, version)
	if err != nil {
		return identifier.VersionedIdentifier{}, errdefs.NewE(ErrBadKey, err)
	}
	return versioned, nil
}

// cutManifestName strips the manifest suffix and validates the remaining
// name against the pattern.
func cutManifestName(segment string, pattern *regexp.Regexp) (string, bool) {
	name, ok := strings.CutSuffix(segment, manifestSuffix)
	if !ok || !pattern.MatchString(name) {
		return "", false
	}
	return name, true
}

// atoi converts digit-only segments already validated by a pattern.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
