package canonical

import (
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
)

// Listing is the ordered sequence of events announced on one
// (date, shard). Events append in arrival order; the list is never
// reordered or truncated.
type Listing struct {
	// Identifier addresses the listing file.
	Identifier identifier.ListingIdentifier `json:"identifier"`
	// Events are the announcement event summaries in arrival order.
	Events []EventSummary `json:"events"`
}

// NewListing returns an empty listing.
func NewListing(id identifier.ListingIdentifier) *Listing {
	return &Listing{Identifier: id, Events: []EventSummary{}}
}

// Append adds summaries at the end of the listing.
func (l *Listing) Append(summaries ...EventSummary) {
	l.Events = append(l.Events, summaries...)
}

// Find returns the summary with the given event identifier.
func (l *Listing) Find(eventID identifier.EventIdentifier) (EventSummary, bool) {
	for _, summary := range l.Events {
		if summary.EventID == eventID {
			return summary, true
		}
	}
	return EventSummary{}, false
}

// CountByType tallies the listed events by event type.
func (l *Listing) CountByType() map[EventType]int {
	counts := make(map[EventType]int)
	for _, summary := range l.Events {
		counts[summary.EventType]++
	}
	return counts
}
