package canonical

import (
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrInvalidEvent is returned when an event violates a structural
// invariant.
var ErrInvalidEvent = errdefs.Newf(errdefs.ErrInvalidParameter, "invalid event")

// Event is a discrete announcement-time action against one version of an
// e-print. Full events embed the affected version state; listings store
// the summary shape instead.
type Event struct {
	// Identifier is the versioned identifier the event acts on.
	Identifier identifier.VersionedIdentifier `json:"identifier"`
	// EventDate is the instant the event was announced.
	EventDate time.Time `json:"event_date"`
	// EventType classifies the action.
	EventType EventType `json:"event_type"`
	// Categories lists the categories the event concerns, e.g. the added
	// category of a cross-list event.
	Categories []Category `json:"categories,omitempty"`
	// Description is a human readable note carried from the announcement.
	Description string `json:"description,omitempty"`
	// IsLegacy marks events reconstructed from the classic record.
	IsLegacy bool `json:"is_legacy"`
	// EventAgent names the process or person that performed the action.
	EventAgent string `json:"event_agent,omitempty"`
	// Shard names the listing shard the event belongs to. Empty selects
	// the default shard.
	Shard string `json:"shard,omitempty"`
	// Version is the state of the affected version. For events that
	// create a version it is the full new state; for metadata events it
	// is a partial state whose file descriptors carry no content.
	Version *Version `json:"version"`
}

// Validate checks the structural invariants of the event.
func (e *Event) Validate() error {
	if e.Identifier.IsZero() {
		return errdefs.Newf(ErrInvalidEvent, "missing identifier")
	}
	if e.EventDate.IsZero() {
		return errdefs.Newf(ErrInvalidEvent, "%s: missing event date", e.Identifier)
	}
	if !e.EventType.IsValid() {
		return errdefs.Newf(ErrInvalidEvent, "%s: unknown event type %q", e.Identifier, e.EventType)
	}
	if e.Version == nil {
		return errdefs.Newf(ErrInvalidEvent, "%s: missing version state", e.Identifier)
	}
	if e.Version.Identifier != e.Identifier {
		return errdefs.Newf(ErrInvalidEvent, "%s: version state identifies %s", e.Identifier, e.Version.Identifier)
	}
	return nil
}

// ListingShard returns the shard name, defaulting when unset.
func (e *Event) ListingShard() string {
	if e.Shard == "" {
		return identifier.DefaultShard
	}
	return e.Shard
}

// ListingID returns the identifier of the listing the event belongs to.
func (e *Event) ListingID() (identifier.ListingIdentifier, error) {
	return identifier.NewListing(identifier.DateOf(e.EventDate), e.ListingShard())
}

// EventID derives the reversible event identifier.
func (e *Event) EventID() (identifier.EventIdentifier, error) {
	return identifier.NewEvent(e.Identifier, e.EventDate, e.ListingShard())
}

// Summary strips the embedded version state.
func (e *Event) Summary() (EventSummary, error) {
	eventID, err := e.EventID()
	if err != nil {
		return EventSummary{}, err
	}
	return EventSummary{
		EventID:     eventID,
		Identifier:  e.Identifier,
		EventDate:   e.EventDate,
		EventType:   e.EventType,
		Categories:  e.Categories,
		Description: e.Description,
		IsLegacy:    e.IsLegacy,
		EventAgent:  e.EventAgent,
		Shard:       e.Shard,
	}, nil
}

// EventSummary is an event without the embedded version state. Listings
// and version histories store summaries so that the record has no
// self-referential shapes.
type EventSummary struct {
	// EventID is the derived reversible event identifier.
	EventID identifier.EventIdentifier `json:"event_id"`
	// Identifier is the versioned identifier the event acted on.
	Identifier identifier.VersionedIdentifier `json:"identifier"`
	// EventDate is the instant the event was announced.
	EventDate time.Time `json:"event_date"`
	// EventType classifies the action.
	EventType EventType `json:"event_type"`
	// Categories lists the categories the event concerned.
	Categories []Category `json:"categories,omitempty"`
	// Description is a human readable note carried from the announcement.
	Description string `json:"description,omitempty"`
	// IsLegacy marks events reconstructed from the classic record.
	IsLegacy bool `json:"is_legacy"`
	// EventAgent names the process or person that performed the action.
	EventAgent string `json:"event_agent,omitempty"`
	// Shard names the listing shard the event belongs to.
	Shard string `json:"shard,omitempty"`
}

// ListingShard returns the shard name, defaulting when unset.
func (s EventSummary) ListingShard() string {
	if s.Shard == "" {
		return identifier.DefaultShard
	}
	return s.Shard
}

// WithVersion rebuilds a full event by attaching version state to the
// summary.
func (s EventSummary) WithVersion(version *Version) *Event {
	return &Event{
		Identifier:  s.Identifier,
		EventDate:   s.EventDate,
		EventType:   s.EventType,
		Categories:  s.Categories,
		Description: s.Description,
		IsLegacy:    s.IsLegacy,
		EventAgent:  s.EventAgent,
		Shard:       s.Shard,
		Version:     version,
	}
}
