package identifier

import (
	"regexp"
	"strconv"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// versionedRegexp splits the trailing version marker. The identifier part
// is validated separately by Parse.
var versionedRegexp = regexp.MustCompile(`^(.+)v(\d+)$`)

// VersionedIdentifier is an arXiv identifier plus a positive version
// number. It serializes as "<identifier>v<n>".
type VersionedIdentifier struct {
	id      Identifier
	version int
}

// NewVersioned combines an identifier and a version number.
func NewVersioned(id Identifier, version int) (VersionedIdentifier, error) {
	var zero VersionedIdentifier
	if id.IsZero() {
		return zero, errdefs.Newf(ErrBadIdentifier, "versioned identifier requires a non-zero identifier")
	}
	if version < 1 {
		return zero, errdefs.Newf(ErrBadIdentifier, "version must be positive, got %d", version)
	}
	return VersionedIdentifier{id: id, version: version}, nil
}

// ParseVersioned parses s as "<identifier>v<n>".
func ParseVersioned(s string) (VersionedIdentifier, error) {
	var zero VersionedIdentifier
	m := versionedRegexp.FindStringSubmatch(s)
	if m == nil {
		return zero, errdefs.Newf(ErrBadIdentifier, "%q has no version suffix", s)
	}
	id, err := Parse(m[1])
	if err != nil {
		return zero, err
	}
	version, err := strconv.Atoi(m[2])
	if err != nil {
		return zero, errdefs.Newf(ErrBadIdentifier, "%q: bad version: %w", s, err)
	}
	return NewVersioned(id, version)
}

// MustParseVersioned parses s as a versioned identifier and panics on
// error. It is intended for tests and static initialization.
func MustParseVersioned(s string) VersionedIdentifier {
	v, err := ParseVersioned(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ID returns the identifier without the version.
func (v VersionedIdentifier) ID() Identifier { return v.id }

// Version returns the version number, always >= 1 for a valid value.
func (v VersionedIdentifier) Version() int { return v.version }

// String returns the "<identifier>v<n>" form.
func (v VersionedIdentifier) String() string {
	return v.id.String() + "v" + strconv.Itoa(v.version)
}

// IsZero reports whether v is the zero value.
func (v VersionedIdentifier) IsZero() bool { return v.id.IsZero() }

// Compare orders by identifier first, then by version.
func (v VersionedIdentifier) Compare(other VersionedIdentifier) int {
	if c := v.id.Compare(other.id); c != 0 {
		return c
	}
	return compareInt(v.version, other.version)
}

// MarshalText implements encoding.TextMarshaler.
func (v VersionedIdentifier) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VersionedIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseVersioned(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
