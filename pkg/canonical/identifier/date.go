package identifier

import (
	"time"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// dateLayout is the serialized form of announcement dates.
const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. Announcement dates
// address listings, so they participate in identifiers.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the date on which t falls, in t's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, errdefs.Newf(errdefs.ErrInvalidParameter, "bad date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns the "YYYY-MM-DD" form.
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// Time returns midnight UTC on the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Compare orders dates chronologically.
func (d Date) Compare(other Date) int {
	if c := compareInt(d.Year, other.Year); c != 0 {
		return c
	}
	if c := compareInt(int(d.Month), int(other.Month)); c != 0 {
		return c
	}
	return compareInt(d.Day, other.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
