package identifier

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// eventIDSeparator joins the encoded parts. Versioned identifiers,
// RFC 3339 timestamps and shard names can never contain it.
const eventIDSeparator = "::"

// EventIdentifier addresses one announcement event. It is derived from
// the versioned identifier, the event instant and the listing shard, and
// encodes as unpadded URL-safe base64 so that it is reversible and safe
// inside keys and query strings.
type EventIdentifier struct {
	versioned VersionedIdentifier
	timestamp time.Time
	shard     string
}

// NewEvent derives the event identifier for (versioned, at, shard). The
// instant is normalized to UTC; an empty shard selects DefaultShard.
func NewEvent(versioned VersionedIdentifier, at time.Time, shard string) (EventIdentifier, error) {
	var zero EventIdentifier
	if versioned.IsZero() {
		return zero, errdefs.Newf(ErrBadIdentifier, "event identifier requires a versioned identifier")
	}
	if at.IsZero() {
		return zero, errdefs.Newf(ErrBadIdentifier, "event identifier requires a timestamp")
	}
	if shard == "" {
		shard = DefaultShard
	}
	if !shardRegexp.MatchString(shard) {
		return zero, errdefs.Newf(ErrBadIdentifier, "bad shard name %q", shard)
	}
	return EventIdentifier{versioned: versioned, timestamp: at.UTC(), shard: shard}, nil
}

// ParseEvent decodes s back into the (versioned, timestamp, shard) triple
// it was derived from.
func ParseEvent(s string) (EventIdentifier, error) {
	var zero EventIdentifier
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return zero, errdefs.Newf(ErrBadIdentifier, "%q is not a base64 event identifier: %w", s, err)
	}
	parts := strings.Split(string(decoded), eventIDSeparator)
	if len(parts) != 3 {
		return zero, errdefs.Newf(ErrBadIdentifier, "%q does not decode to an event identifier", s)
	}
	versioned, err := ParseVersioned(parts[0])
	if err != nil {
		return zero, errdefs.NewE(ErrBadIdentifier, err)
	}
	at, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return zero, errdefs.Newf(ErrBadIdentifier, "bad event timestamp %q: %w", parts[1], err)
	}
	return NewEvent(versioned, at, parts[2])
}

// Versioned returns the versioned identifier the event acted on.
func (e EventIdentifier) Versioned() VersionedIdentifier { return e.versioned }

// Timestamp returns the event instant in UTC.
func (e EventIdentifier) Timestamp() time.Time { return e.timestamp }

// Shard returns the listing shard the event belongs to.
func (e EventIdentifier) Shard() string { return e.shard }

// ListingID returns the identifier of the listing that contains the event.
func (e EventIdentifier) ListingID() ListingIdentifier {
	return ListingIdentifier{date: DateOf(e.timestamp), shard: e.shard}
}

// String returns the URL-safe base64 form.
func (e EventIdentifier) String() string {
	joined := strings.Join([]string{
		e.versioned.String(),
		e.timestamp.Format(time.RFC3339Nano),
		e.shard,
	}, eventIDSeparator)
	return base64.RawURLEncoding.EncodeToString([]byte(joined))
}

// IsZero reports whether e is the zero value.
func (e EventIdentifier) IsZero() bool { return e.versioned.IsZero() }

// MarshalText implements encoding.TextMarshaler.
func (e EventIdentifier) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseEvent(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
