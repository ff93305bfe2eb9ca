package identifier

import (
	"regexp"
	"strings"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// DefaultShard is the listing shard used when an event does not name one.
// Listings may eventually be split by primary category, so the shard is
// carried everywhere even though a single shard per day is the norm.
const DefaultShard = "listing"

// shardRegexp constrains shard names so they stay safe inside keys and
// inside the event identifier encoding.
var shardRegexp = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ListingIdentifier addresses one listing file: the announcement date
// plus the shard name. It serializes as "YYYY-MM-DD-<shard>".
type ListingIdentifier struct {
	date  Date
	shard string
}

// NewListing combines a date and a shard name. An empty shard selects
// DefaultShard.
func NewListing(date Date, shard string) (ListingIdentifier, error) {
	var zero ListingIdentifier
	if date.IsZero() {
		return zero, errdefs.Newf(ErrBadIdentifier, "listing identifier requires a date")
	}
	if shard == "" {
		shard = DefaultShard
	}
	if !shardRegexp.MatchString(shard) {
		return zero, errdefs.Newf(ErrBadIdentifier, "bad shard name %q", shard)
	}
	return ListingIdentifier{date: date, shard: shard}, nil
}

// ParseListing parses s as "YYYY-MM-DD-<shard>".
func ParseListing(s string) (ListingIdentifier, error) {
	var zero ListingIdentifier
	if len(s) < len(dateLayout)+2 || s[len(dateLayout)] != '-' {
		return zero, errdefs.Newf(ErrBadIdentifier, "%q is not a listing identifier", s)
	}
	date, err := ParseDate(s[:len(dateLayout)])
	if err != nil {
		return zero, errdefs.NewE(ErrBadIdentifier, err)
	}
	return NewListing(date, s[len(dateLayout)+1:])
}

// Date returns the announcement date.
func (l ListingIdentifier) Date() Date { return l.date }

// Shard returns the shard name, never empty for a valid value.
func (l ListingIdentifier) Shard() string { return l.shard }

// String returns the "YYYY-MM-DD-<shard>" form.
func (l ListingIdentifier) String() string {
	return l.date.String() + "-" + l.shard
}

// IsZero reports whether l is the zero value.
func (l ListingIdentifier) IsZero() bool { return l.shard == "" }

// Compare orders by date first, then by shard name.
func (l ListingIdentifier) Compare(other ListingIdentifier) int {
	if c := l.date.Compare(other.date); c != 0 {
		return c
	}
	return strings.Compare(l.shard, other.shard)
}

// MarshalText implements encoding.TextMarshaler.
func (l ListingIdentifier) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ListingIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseListing(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
