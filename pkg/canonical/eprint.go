package canonical

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// EPrint is a scholarly submission: an arXiv identifier plus the ordered
// set of its announced versions. An e-print is never deleted;
// withdrawals appear as a new version marked withdrawn.
type EPrint struct {
	// Identifier is the bare arXiv identifier, without a version.
	Identifier identifier.Identifier
	// Versions maps version numbers to version snapshots.
	Versions map[int]*Version
}

// NewEPrint returns an empty e-print for the identifier.
func NewEPrint(id identifier.Identifier) *EPrint {
	return &EPrint{Identifier: id, Versions: map[int]*Version{}}
}

// Version returns the version with the given number.
func (e *EPrint) Version(n int) (*Version, bool) {
	v, ok := e.Versions[n]
	return v, ok
}

// Latest returns the highest numbered version, or nil when the e-print
// has no versions.
func (e *EPrint) Latest() *Version {
	var latest *Version
	for _, v := range e.Versions {
		if latest == nil || v.Identifier.Version() > latest.Identifier.Version() {
			latest = v
		}
	}
	return latest
}

// VersionNumbers returns the announced version numbers in ascending
// order.
func (e *EPrint) VersionNumbers() []int {
	numbers := lo.Keys(e.Versions)
	slices.Sort(numbers)
	return numbers
}

// Add inserts a version snapshot. Adding a version number that is
// already present is a conflict.
func (e *EPrint) Add(v *Version) error {
	n := v.Identifier.Version()
	if _, exists := e.Versions[n]; exists {
		return errdefs.Newf(errdefs.ErrAlreadyExists, "%s: version %d already announced", e.Identifier, n)
	}
	if e.Versions == nil {
		e.Versions = map[int]*Version{}
	}
	e.Versions[n] = v
	return nil
}

// eprintJSON is the serialized shape of an e-print. Versions serialize
// as an array sorted by version number so that the byte representation
// is deterministic.
type eprintJSON struct {
	Identifier identifier.Identifier `json:"identifier"`
	Versions   []*Version            `json:"versions"`
}

// MarshalJSON implements json.Marshaler.
func (e *EPrint) MarshalJSON() ([]byte, error) {
	ordered := make([]*Version, 0, len(e.Versions))
	for _, n := range e.VersionNumbers() {
		ordered = append(ordered, e.Versions[n])
	}
	return json.Marshal(eprintJSON{Identifier: e.Identifier, Versions: ordered})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *EPrint) UnmarshalJSON(data []byte) error {
	var raw eprintJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Identifier = raw.Identifier
	e.Versions = make(map[int]*Version, len(raw.Versions))
	for _, v := range raw.Versions {
		e.Versions[v.Identifier.Version()] = v
	}
	return nil
}

// sortedFormatKeys returns the format map keys in lexical order.
func sortedFormatKeys(formats map[ContentType]CanonicalFile) []ContentType {
	keys := lo.Keys(formats)
	slices.SortFunc(keys, func(a, b ContentType) int {
		return strings.Compare(string(a), string(b))
	})
	return keys
}
