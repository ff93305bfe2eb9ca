// Package identifier defines the arXiv identifier grammar and the derived
// identifiers used to address versions, listings and announcement events.
package identifier

import (
	"regexp"
	"strconv"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrBadIdentifier is returned when a value does not match the accepted
// identifier grammar.
var ErrBadIdentifier = errdefs.Newf(errdefs.ErrInvalidParameter, "bad identifier")

var (
	// oldStyleRegexp matches identifiers of the form "archive[.SC]/YYMMNNN",
	// e.g. "hep-ph/0301001" or "math.GT/0309136".
	oldStyleRegexp = regexp.MustCompile(`^([a-z][a-z-]*[a-z](?:\.[A-Za-z]{2})?)/(\d{2})(\d{2})(\d{3})$`)

	// newStyleRegexp matches identifiers of the form "YYMM.NNNNN",
	// e.g. "0704.0001" or "2901.00345".
	newStyleRegexp = regexp.MustCompile(`^(\d{2})(\d{2})\.(\d{4,5})$`)
)

// Identifier is a normalized arXiv identifier in either the old style
// "archive[.sub]/YYMMNNN" or the new style "YYMM.NNNNN".
//
// The zero value is not a valid identifier.
type Identifier struct {
	value       string
	category    string
	year        int
	month       int
	incremental int
}

// Parse parses s as an arXiv identifier.
func Parse(s string) (Identifier, error) {
	var zero Identifier
	if m := newStyleRegexp.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		inc, _ := strconv.Atoi(m[3])
		if mm < 1 || mm > 12 {
			return zero, errdefs.Newf(ErrBadIdentifier, "%q: month %02d out of range", s, mm)
		}
		return Identifier{value: s, year: fullYear(yy), month: mm, incremental: inc}, nil
	}
	if m := oldStyleRegexp.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[2])
		mm, _ := strconv.Atoi(m[3])
		inc, _ := strconv.Atoi(m[4])
		if mm < 1 || mm > 12 {
			return zero, errdefs.Newf(ErrBadIdentifier, "%q: month %02d out of range", s, mm)
		}
		return Identifier{value: s, category: m[1], year: fullYear(yy), month: mm, incremental: inc}, nil
	}
	return zero, errdefs.Newf(ErrBadIdentifier, "%q does not match the old or new identifier form", s)
}

// MustParse parses s as an arXiv identifier and panics on error. It is
// intended for tests and static initialization.
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// fullYear widens a two digit identifier year. arXiv started in 1991, so
// years 91 and above belong to the twentieth century.
func fullYear(yy int) int {
	if yy >= 91 {
		return 1900 + yy
	}
	return 2000 + yy
}

// String returns the normalized identifier value.
func (id Identifier) String() string { return id.value }

// IsZero reports whether id is the zero value.
func (id Identifier) IsZero() bool { return id.value == "" }

// IsOldStyle reports whether the identifier has the pre-2007 form with a
// leading archive part.
func (id Identifier) IsOldStyle() bool { return id.category != "" }

// CategoryPart returns the archive (and optional subject class) of an
// old style identifier, e.g. "math.GT". It is empty for new style
// identifiers.
func (id Identifier) CategoryPart() string { return id.category }

// NumericPart returns the numeric portion of the identifier: "YYMMNNN"
// for old style identifiers and "YYMM.NNNNN" for new style ones.
func (id Identifier) NumericPart() string {
	if id.IsOldStyle() {
		return id.value[len(id.category)+1:]
	}
	return id.value
}

// Year returns the four digit year encoded in the identifier.
func (id Identifier) Year() int { return id.year }

// Month returns the month encoded in the identifier, 1 through 12.
func (id Identifier) Month() int { return id.month }

// IncrementalPart returns the within-month sequence number.
func (id Identifier) IncrementalPart() int { return id.incremental }

// Compare orders identifiers chronologically by (year, month, sequence).
// Identifiers from different archives announced in the same instant sort
// by their category part so that the order is total.
func (id Identifier) Compare(other Identifier) int {
	if c := compareInt(id.year, other.year); c != 0 {
		return c
	}
	if c := compareInt(id.month, other.month); c != 0 {
		return c
	}
	if c := compareInt(id.incremental, other.incremental); c != 0 {
		return c
	}
	switch {
	case id.category < other.category:
		return -1
	case id.category > other.category:
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
